package hub

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/deckbp/internal/lobby"
	"github.com/DoyleJ11/deckbp/internal/logging"
	"github.com/DoyleJ11/deckbp/internal/session"
)

var (
	ErrCodeTaken = errors.New("lobby code already in use")
	ErrStopped   = errors.New("hub stopped")
)

// Factory builds the session a new lobby will own.
type Factory func(ctx context.Context, code string) (*session.Session, error)

type HubMsg interface{ isHubMsg() }

// CreateLobby fails with ErrCodeTaken if Code is in use.
type CreateLobby struct {
	Code  string
	Reply chan Created
}

type Created struct {
	Lobby *lobby.Lobby
	Err   error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby drops Code. With Lobby set, only that exact lobby is removed.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

// DefaultLobbyIdle is how long a lobby may sit without clients.
const DefaultLobbyIdle = 10 * time.Minute

type Hub struct {
	inbox     chan HubMsg
	lobbies   map[string]*lobby.Lobby
	factory   Factory
	log       *zap.Logger
	lobbyIdle time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Hub)

// WithLobbyIdle sets how long an empty lobby lives before the hub forgets it.
func WithLobbyIdle(d time.Duration) Option {
	return func(h *Hub) { h.lobbyIdle = d }
}

func NewHub(parent context.Context, factory Factory, log *zap.Logger, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:     make(chan HubMsg, 64),
		lobbies:   make(map[string]*lobby.Lobby),
		factory:   factory,
		log:       logging.OrNop(log),
		lobbyIdle: DefaultLobbyIdle,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if h.lobbies[msg.Code] != nil {
					msg.Reply <- Created{Err: ErrCodeTaken}
					break
				}
				sess, err := h.factory(h.ctx, msg.Code)
				if err != nil {
					h.log.Error("create session", zap.String("code", msg.Code), zap.Error(err))
					msg.Reply <- Created{Err: err}
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.Code, sess, h.log,
					lobby.WithIdleTimeout(h.lobbyIdle),
					lobby.WithOnIdle(h.forget),
				)
				h.lobbies[msg.Code] = lb
				h.log.Info("lobby created", zap.String("code", msg.Code))
				msg.Reply <- Created{Lobby: lb}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				lb := h.lobbies[msg.Code]
				if lb == nil || (msg.Lobby != nil && msg.Lobby != lb) {
					break
				}
				_ = lb.Send(lobby.Shutdown{})
				delete(h.lobbies, msg.Code)
				h.log.Info("lobby removed", zap.String("code", msg.Code))

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for code, lb := range h.lobbies {
		_ = lb.Send(lobby.Shutdown{})
		delete(h.lobbies, code)
	}
}

// Create asks the hub for a new lobby under code.
func (h *Hub) Create(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case c := <-reply:
		return c.Lobby, c.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the lobby under code, or nil.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Count reports how many lobbies are live.
func (h *Hub) Count(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountLobbies{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// forget runs on an idle lobby's goroutine after it stopped.
func (h *Hub) forget(lb *lobby.Lobby) {
	_ = h.send(context.Background(), RemoveLobby{Code: lb.Code(), Lobby: lb})
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case <-h.done:
		return ErrStopped
	default:
	}
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
