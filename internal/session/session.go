// Package session owns one operator's ban/pick round: the roster options,
// the roster builders and the round state. Every operator command goes
// through a Session, and every view is rendered from one.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/deck"
	"github.com/DoyleJ11/deckbp/internal/engine"
	"github.com/DoyleJ11/deckbp/internal/logging"
	"github.com/DoyleJ11/deckbp/internal/roster"
	"github.com/DoyleJ11/deckbp/internal/selection"
)

var (
	ErrLocked        = apperrors.New(apperrors.KindInvalidState, "options are locked while a round is running")
	ErrBuilderClosed = apperrors.New(apperrors.KindInvalidState, "no roster builder is open for this side")
	ErrBuilderOpen   = apperrors.New(apperrors.KindInvalidState, "a roster builder is open")
	ErrCapacity      = apperrors.New(apperrors.KindCapacity, "selection is full")
)

type rosterBuilder struct {
	side engine.Side
	set  *selection.Set[int]
}

// Session is not safe for concurrent use. The lobby actor serializes access.
type Session struct {
	id     string
	roster *roster.Manager
	policy engine.Policy
	log    *zap.Logger

	rules    engine.Rules
	state    engine.State
	builder  *rosterBuilder
	notice   *notice
	friendly []deck.Record
	opponent []deck.Record
	rng      *rand.Rand
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithPolicy replaces the random opponent policy.
func WithPolicy(p engine.Policy) Option {
	return func(s *Session) { s.policy = p }
}

// New returns a session in SETUP. r drives the random opponent draw and,
// unless WithPolicy is given, the scripted opponent.
func New(id string, m *roster.Manager, r *rand.Rand, opts ...Option) *Session {
	s := &Session{
		id:     id,
		roster: m,
		rng:    r,
		state:  engine.NewState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == nil {
		s.policy = engine.NewRandomPolicy(r)
	}
	s.log = logging.OrNop(s.log).With(zap.String("session", id))
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) requireSetup() error {
	if s.state.Phase != engine.PhaseSetup {
		return fmt.Errorf("%w: phase %s", ErrLocked, s.state.Phase)
	}
	return nil
}

func (s *Session) SetOpponentMode(mode roster.OpponentMode) error {
	s.notice = nil
	if err := s.requireSetup(); err != nil {
		return err
	}
	return s.roster.SetOpponentMode(mode)
}

func (s *Session) SetOpponentCount(n int) error {
	s.notice = nil
	if err := s.requireSetup(); err != nil {
		return err
	}
	return s.roster.SetOpponentCount(n)
}

// SetFriendlyMode switches back to the saved default roster, or opens the
// friendly builder for a custom one.
func (s *Session) SetFriendlyMode(mode roster.FriendlyMode) error {
	s.notice = nil
	if err := s.requireSetup(); err != nil {
		return err
	}
	switch mode {
	case roster.FriendlyDefault:
		if s.builder != nil && s.builder.side == engine.SideFriendly {
			s.builder = nil
		}
		s.roster.UseDefaultFriendly()
		s.setNotice(toneNormal, keyFriendlyDefault)
		return nil
	case roster.FriendlyCustom:
		return s.OpenBuilder(engine.SideFriendly)
	}
	return fmt.Errorf("%w: friendly %q", roster.ErrBadMode, mode)
}

func (s *Session) SetManualOpponentBan(enabled bool) error {
	s.notice = nil
	if err := s.requireSetup(); err != nil {
		return err
	}
	s.rules.ManualOpponentBan = enabled
	return nil
}

func (s *Session) SetManualOpponentPick(enabled bool) error {
	s.notice = nil
	if err := s.requireSetup(); err != nil {
		return err
	}
	s.rules.ManualOpponentPick = enabled
	return nil
}

// OpenBuilder starts a fresh roster selection over the whole pool: exactly
// six decks for the friendly side, four to six for the opponent.
func (s *Session) OpenBuilder(side engine.Side) error {
	s.notice = nil
	if err := s.requireSetup(); err != nil {
		return err
	}
	if side != engine.SideFriendly && side != engine.SideOpponent {
		return fmt.Errorf("%w: %q", engine.ErrWrongSide, side)
	}
	if s.builder != nil {
		return fmt.Errorf("%w: %s", ErrBuilderOpen, s.builder.side)
	}

	lo, hi := deck.FriendlyRosterSize, deck.FriendlyRosterSize
	if side == engine.SideOpponent {
		lo, hi = deck.MinOpponentRoster, deck.MaxOpponentRoster
	}
	set, err := selection.New(s.roster.Pool().Indices(), lo, hi)
	if err != nil {
		return err
	}
	s.builder = &rosterBuilder{side: side, set: set}
	return nil
}

func (s *Session) openBuilder(side engine.Side) (*rosterBuilder, error) {
	if s.builder == nil || s.builder.side != side {
		return nil, fmt.Errorf("%w: %s", ErrBuilderClosed, side)
	}
	return s.builder, nil
}

func (s *Session) ToggleBuilder(side engine.Side, poolIndex int) error {
	s.notice = nil
	b, err := s.openBuilder(side)
	if err != nil {
		return err
	}
	out, err := b.set.Toggle(poolIndex)
	if err != nil {
		return err
	}
	if out == selection.Rejected {
		s.setNotice(toneError, keyCapacity, b.set.Len(), b.set.Max())
		return fmt.Errorf("%w: %s builder at %d", ErrCapacity, side, b.set.Max())
	}
	return nil
}

// ConfirmBuilder installs the built roster. An incomplete selection keeps
// the builder open.
func (s *Session) ConfirmBuilder(side engine.Side) error {
	s.notice = nil
	b, err := s.openBuilder(side)
	if err != nil {
		return err
	}
	indices, err := b.set.Finalize()
	if err != nil {
		return err
	}

	switch side {
	case engine.SideFriendly:
		if err := s.roster.SetCustomFriendly(indices); err != nil {
			return err
		}
		s.setNotice(toneNormal, keyFriendlyCustom)
	default:
		if err := s.roster.SetCustomOpponent(indices); err != nil {
			return err
		}
		if err := s.roster.SetOpponentMode(roster.OpponentCustom); err != nil {
			return err
		}
		s.setNotice(toneNormal, keyOpponentCustom, len(indices))
	}
	s.builder = nil
	return nil
}

// CancelBuilder discards the builder. Cancelling the friendly builder falls
// back to the default roster.
func (s *Session) CancelBuilder(side engine.Side) error {
	s.notice = nil
	if _, err := s.openBuilder(side); err != nil {
		return err
	}
	s.builder = nil
	if side == engine.SideFriendly {
		s.roster.UseDefaultFriendly()
		s.setNotice(toneNormal, keyFriendlyDefault)
	}
	return nil
}

// SaveFriendlyRoster persists an unsaved custom friendly roster and makes
// it the default.
func (s *Session) SaveFriendlyRoster(ctx context.Context) error {
	s.notice = nil
	if err := s.requireSetup(); err != nil {
		return err
	}
	if err := s.roster.SaveFriendly(ctx); err != nil {
		if errors.Is(err, apperrors.Persistence) {
			s.log.Warn("save friendly roster failed", zap.Error(err))
			s.setNotice(toneError, keySaveFailed, err.Error())
		}
		return err
	}
	s.log.Info("friendly roster saved")
	s.setNotice(toneSuccess, keySaveOK)
	return nil
}

// StartRound freezes both rosters and enters BAN.
func (s *Session) StartRound() error {
	s.notice = nil
	if err := s.requireSetup(); err != nil {
		return err
	}
	if s.builder != nil {
		return fmt.Errorf("%w: %s", ErrBuilderOpen, s.builder.side)
	}

	opponent, err := s.roster.Opponent(s.rng)
	if err != nil {
		if errors.Is(err, apperrors.Config) {
			s.setNotice(toneError, keyPoolTooSmall)
		}
		return err
	}
	friendly := s.roster.Friendly()

	if _, err := s.apply(engine.Command{
		Type:         engine.CmdStartRound,
		FriendlySize: len(friendly),
		OpponentSize: len(opponent),
		Rules:        s.rules,
	}); err != nil {
		return err
	}
	s.friendly, s.opponent = friendly, opponent
	s.log.Info("round started",
		zap.Int("opponent_decks", len(opponent)),
		zap.String("opponent_mode", string(s.roster.OpponentMode())),
		zap.Bool("manual_ban", s.rules.ManualOpponentBan),
		zap.Bool("manual_pick", s.rules.ManualOpponentPick))
	return nil
}

// Click bans or picks the deck at slot of side, depending on the phase.
func (s *Session) Click(side engine.Side, slot int) error {
	s.notice = nil
	events, err := s.apply(engine.Command{Type: engine.CmdClick, Side: side, Slot: slot})
	if err != nil {
		return err
	}
	if engine.ContainsEvent(events, engine.EvtSelectionRejected) {
		s.setNotice(toneError, keyCapacity, engine.PicksPerSide, engine.PicksPerSide)
		return fmt.Errorf("%w: %s picks", ErrCapacity, side)
	}
	return nil
}

// Undo steps back once. It is a no-op with an error at the floor.
func (s *Session) Undo() error {
	s.notice = nil
	prev := s.state.Phase
	if _, err := s.apply(engine.Command{Type: engine.CmdUndo}); err != nil {
		return err
	}

	switch {
	case prev == engine.PhaseDone && s.state.Phase == engine.PhaseDone:
		s.setNotice(toneNormal, keyUndoMatchup)
	case s.state.Phase == engine.PhasePick:
		s.setNotice(toneInfo, keyUndoPick)
	case s.state.Phase == engine.PhaseBan:
		s.setNotice(toneInfo, keyUndoBan)
	}
	return nil
}

// Reset returns to SETUP with every option at its initial value.
func (s *Session) Reset() error {
	s.notice = nil
	if _, err := s.apply(engine.Command{Type: engine.CmdReset}); err != nil {
		return err
	}
	s.roster.Reset()
	s.rules = engine.Rules{}
	s.builder = nil
	s.friendly, s.opponent = nil, nil
	return nil
}

// GenerateMatchup reshuffles both pick lists into three pairings.
func (s *Session) GenerateMatchup() error {
	s.notice = nil
	_, err := s.apply(engine.Command{Type: engine.CmdGenerateMatchup})
	return err
}

func (s *Session) apply(cmd engine.Command) ([]engine.Event, error) {
	events, next, err := engine.Apply(s.state, cmd, s.policy)
	if err != nil {
		s.log.Debug("command rejected",
			zap.String("command", string(cmd.Type)),
			zap.String("phase", string(s.state.Phase)),
			zap.Error(err))
		return nil, err
	}
	s.state = next

	for _, ev := range events {
		switch {
		case ev.Scripted:
			s.log.Debug("scripted opponent",
				zap.String("event", string(ev.Type)),
				zap.String("side", string(ev.Side)),
				zap.Int("slot", ev.Slot))
		case ev.Type == engine.EvtPhaseChanged:
			s.log.Debug("phase changed", zap.String("phase", string(ev.Phase)))
		}
	}
	return events, nil
}

func (s *Session) Phase() engine.Phase { return s.state.Phase }

func (s *Session) CanUndo() bool { return engine.CanUndo(s.state) }

func (s *Session) IsDeckClickable(side engine.Side, slot int) bool {
	return engine.Clickable(s.state, side, slot)
}

func (s *Session) Highlight(side engine.Side, slot int) engine.Highlight {
	return engine.HighlightOf(s.state, side, slot)
}

// Decks returns the roster shown for side: the live friendly roster in
// SETUP, the frozen one afterwards. The opponent roster is empty in SETUP.
func (s *Session) Decks(side engine.Side) []deck.Record {
	if s.state.Phase == engine.PhaseSetup {
		if side == engine.SideFriendly {
			return s.roster.Friendly()
		}
		return nil
	}
	if side == engine.SideFriendly {
		return deck.Clone(s.friendly)
	}
	return deck.Clone(s.opponent)
}

// Matchup returns the generated pairings as deck records.
func (s *Session) Matchup() []Pairing {
	if s.state.Matchup == nil {
		return nil
	}
	out := make([]Pairing, 0, len(s.state.Matchup))
	for _, p := range s.state.Matchup {
		out = append(out, Pairing{Friendly: s.friendly[p.Friendly], Opponent: s.opponent[p.Opponent]})
	}
	return out
}

type Pairing struct {
	Friendly deck.Record `json:"friendly"`
	Opponent deck.Record `json:"opponent"`
}
