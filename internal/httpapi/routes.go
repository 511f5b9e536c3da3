package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/deckbp/internal/deck"
	"github.com/DoyleJ11/deckbp/internal/hub"
	"github.com/DoyleJ11/deckbp/internal/icon"
	"github.com/DoyleJ11/deckbp/internal/logging"
	"github.com/DoyleJ11/deckbp/internal/ws"
)

type Server struct {
	hub   *hub.Hub
	pool  deck.Pool
	icons *icon.Renderer
	lang  language.Tag
	log   *zap.Logger
	codes func() (string, error)
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

func WithLanguage(tag language.Tag) Option { return func(s *Server) { s.lang = tag } }

// WithCodeGenerator replaces GenerateCode.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Server) { s.codes = gen }
}

func NewServer(h *hub.Hub, pool deck.Pool, icons *icon.Renderer, opts ...Option) *Server {
	s := &Server{
		hub:   h,
		pool:  pool,
		icons: icons,
		lang:  language.English,
		codes: GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrNop(s.log)
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	// Public routes
	r.Post("/sessions", s.CreateSession)
	r.Get("/decks", s.ListDecks)
	r.Get("/decks/{index}/icon", s.DeckIcon)
	r.Get("/healthz", s.Healthz)
	r.Get("/ws", ws.Handler(s.hub, ws.Options{Lang: s.lang, Log: s.log}))
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
