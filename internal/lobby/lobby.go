package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/engine"
	"github.com/DoyleJ11/deckbp/internal/logging"
	"github.com/DoyleJ11/deckbp/internal/session"
)

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	ClientID string
	Cmd      session.Command
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Lang     language.Tag
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan Info
}

func (GetState) isLobbyMsg() {}

// Snapshot is either a rendered view or, for the client that issued a
// rejected command, the error.
type Snapshot struct {
	Version int
	View    session.View
	Err     *CommandError
}

// CommandError is a rejected command as reported to its sender.
type CommandError struct {
	Kind    apperrors.Kind
	Message string
}

// Info is a race-free look at the lobby for tests and health checks.
type Info struct {
	Version    int
	NumClients int
	Phase      engine.Phase
}

type client struct {
	lang   language.Tag
	outbox chan Snapshot
}

type Lobby struct {
	code    string
	inbox   chan Msg
	sess    *session.Session
	version int
	clients map[string]client
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	idleAfter time.Duration
	idle      *time.Timer
	onIdle    func(*Lobby)
}

type Option func(*Lobby)

// WithIdleTimeout stops the lobby once it has had no clients for d.
// Zero keeps it alive until Shutdown.
func WithIdleTimeout(d time.Duration) Option {
	return func(l *Lobby) { l.idleAfter = d }
}

// WithOnIdle registers fn to run after the lobby stopped for being idle.
// Done is already closed when fn runs.
func WithOnIdle(fn func(*Lobby)) Option {
	return func(l *Lobby) { l.onIdle = fn }
}

func NewLobby(parent context.Context, code string, sess *session.Session, log *zap.Logger, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		code:    code,
		inbox:   make(chan Msg, 64), // Small buffer
		sess:    sess,
		clients: make(map[string]client),
		log:     logging.OrNop(log).With(zap.String("code", code)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.run()
	return l
}

func (l *Lobby) run() {
	if l.loop() && l.onIdle != nil {
		l.onIdle(l)
	}
}

// loop reports whether it stopped because the lobby went idle.
func (l *Lobby) loop() bool {
	defer close(l.done)
	for {
		l.watchIdle()

		select {
		case <-l.ctx.Done():
			l.shutdown()
			return false

		case <-l.idleC():
			l.log.Info("lobby idle, closing", zap.Duration("idle", l.idleAfter))
			l.shutdown()
			return true

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				c := client{lang: msg.Lang, outbox: msg.Outbox}
				l.clients[msg.ClientID] = c
				c.outbox <- Snapshot{Version: l.version, View: l.sess.View(c.lang)}
				l.log.Debug("client joined", zap.String("client_id", msg.ClientID))

			case Leave:
				l.drop(msg.ClientID)
				l.log.Debug("client left", zap.String("client_id", msg.ClientID))

			case FromClient:
				if err := l.sess.Dispatch(l.ctx, msg.Cmd); err != nil {
					l.reject(msg.ClientID, err)
				}
				// A rejected command may still leave a notice, so everyone
				// gets a fresh view.
				l.version++
				l.broadcast()

			case GetState:
				msg.Reply <- Info{
					Version:    l.version,
					NumClients: len(l.clients),
					Phase:      l.sess.Phase(),
				}

			case Shutdown:
				l.shutdown()
				return false
			}
		}
	}
}

func (l *Lobby) reject(clientID string, err error) {
	kind, ok := apperrors.KindOf(err)
	if !ok {
		kind = apperrors.KindInvalidState
	}
	l.log.Debug("command rejected", zap.String("client_id", clientID), zap.Error(err))

	c, ok := l.clients[clientID]
	if !ok {
		return
	}
	select {
	case c.outbox <- Snapshot{Version: l.version, Err: &CommandError{Kind: kind, Message: err.Error()}}:
	default:
		l.drop(clientID)
	}
}

// watchIdle runs the idle timer only while nobody is connected.
func (l *Lobby) watchIdle() {
	switch {
	case l.idleAfter <= 0:
	case len(l.clients) == 0 && l.idle == nil:
		l.idle = time.NewTimer(l.idleAfter)
	case len(l.clients) > 0 && l.idle != nil:
		l.idle.Stop()
		l.idle = nil
	}
}

func (l *Lobby) idleC() <-chan time.Time {
	if l.idle == nil {
		return nil
	}
	return l.idle.C
}

func (l *Lobby) shutdown() {
	for id := range l.clients {
		l.drop(id) // Tell client no more snapshots
	}
	if l.idle != nil {
		l.idle.Stop()
	}
	l.cancel()
	l.log.Debug("lobby shut down")
}

func (l *Lobby) drop(id string) {
	if c, ok := l.clients[id]; ok {
		close(c.outbox)
		delete(l.clients, id)
	}
}

func (l *Lobby) broadcast() {
	views := map[language.Tag]session.View{}
	for id, c := range l.clients {
		v, ok := views[c.lang]
		if !ok {
			v = l.sess.View(c.lang)
			views[c.lang] = v
		}
		select {
		case c.outbox <- Snapshot{Version: l.version, View: v}:
			//ok
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow client", zap.String("client_id", id))
			l.drop(id)
		}
	}
}

func (l *Lobby) Code() string { return l.code }

// Inbox exposes the inbox so tests or the WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Send delivers m unless the lobby has stopped.
func (l *Lobby) Send(m Msg) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.inbox <- m:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

var ErrClosed = errors.New("lobby closed")
