package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/deckbp/internal/hub"
	"github.com/DoyleJ11/deckbp/internal/lobby"
	"github.com/DoyleJ11/deckbp/internal/logging"
	"github.com/DoyleJ11/deckbp/internal/session"
	"github.com/DoyleJ11/deckbp/internal/types"
	wire "github.com/DoyleJ11/deckbp/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	idleTimeout  = 5 * time.Minute
)

// Options tune a Handler.
type Options struct {
	Lang           language.Tag
	OriginPatterns []string
	Log            *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := logging.OrNop(opts.Log)

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb, err := h.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		lang := session.ParseLanguage(r.URL.Query().Get("lang"), opts.Lang)
		clientID := uuid.NewString()
		log := log.With(zap.String("code", code), zap.String("client_id", clientID))

		out := make(chan lobby.Snapshot, 8)
		if err := lb.Send(lobby.Join{ClientID: clientID, Lang: lang, Outbox: out}); err != nil {
			conn.Close(websocket.StatusGoingAway, "lobby closed")
			return
		}
		defer func() { _ = lb.Send(lobby.Leave{ClientID: clientID}) }()

		// Writer goroutine
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go func() {
			defer cancel()
			for snap := range out {
				if err := write(ctx, conn, types.FromSnapshot(snap)); err != nil {
					log.Debug("write snapshot", zap.Error(err))
					return
				}
			}
			// Outbox closed: lobby shut down or dropped us as slow.
			conn.Close(websocket.StatusGoingAway, "lobby closed")
		}()

		// Reader loop
		for {
			readCtx, readCancel := context.WithTimeout(ctx, idleTimeout)
			_, data, err := conn.Read(readCtx)
			readCancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read", zap.Error(err))
				}
				return
			}

			var cm wire.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(ctx, conn, types.ErrorMessage(types.ErrBadMessage))
				continue
			}
			cmd, err := types.ToCommand(cm)
			if err != nil {
				_ = write(ctx, conn, types.ErrorMessage(err))
				continue
			}

			if err := lb.Send(lobby.FromClient{ClientID: clientID, Cmd: cmd}); err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
