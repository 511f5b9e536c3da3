package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/hub"
	wire "github.com/DoyleJ11/deckbp/pkg/types"
)

const maxCodeAttempts = 8

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateSession starts a lobby with a fresh session under a new join code.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("generate code: %w", err))
			return
		}

		_, err = s.hub.Create(r.Context(), code)
		if errors.Is(err, hub.ErrCodeTaken) {
			s.log.Debug("collision on code, regenerating", zap.String("code", code))
			continue
		}
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
		return
	}
	writeError(w, http.StatusServiceUnavailable, errors.New("no free session code"))
}

func (s *Server) ListDecks(w http.ResponseWriter, r *http.Request) {
	out := make([]wire.Deck, 0, len(s.pool))
	for i, d := range s.pool {
		out = append(out, wire.Deck{
			Index:    i,
			Name:     d.Name,
			IconPath: d.IconPath,
			IconURL:  fmt.Sprintf("/decks/%d/icon", i),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// DeckIcon serves the pool icon at display size, or the placeholder.
func (s *Server) DeckIcon(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 || i >= len(s.pool) {
		http.Error(w, "unknown deck", http.StatusNotFound)
		return
	}
	b, err := s.icons.PNG(s.pool[i].IconPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	_, _ = w.Write(b)
}

// Healthz reports the number of live lobbies; 503 once the hub has stopped.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	n, err := s.hub.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status  string `json:"status"`
		Lobbies int    `json:"lobbies"`
	}{Status: "ok", Lobbies: n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	kind, _ := apperrors.KindOf(err)
	writeJSON(w, status, struct {
		Type  string         `json:"type"`
		Kind  apperrors.Kind `json:"kind,omitempty"`
		Error string         `json:"error"`
	}{Type: wire.TypeError, Kind: kind, Error: err.Error()})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	kind, ok := apperrors.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case apperrors.KindInvalidState, apperrors.KindPrecondition:
		return http.StatusConflict
	case apperrors.KindCapacity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
