// Package roster manages the friendly and opponent rosters a round starts
// from: default versus custom friendly decks with save-back, and random
// versus curated opponent decks.
package roster

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/catalog"
	"github.com/DoyleJ11/deckbp/internal/deck"
)

var (
	ErrPoolTooSmall     = apperrors.New(apperrors.KindConfig, "deck pool has too few decks")
	ErrNothingToSave    = apperrors.New(apperrors.KindInvalidState, "friendly roster has no unsaved changes")
	ErrNoCustomOpponent = apperrors.New(apperrors.KindPrecondition, "custom opponent roster not built")
	ErrBadMode          = apperrors.New(apperrors.KindInvalidState, "unknown roster mode")
	ErrBadCount         = apperrors.New(apperrors.KindInvalidState, "opponent count out of range")
	ErrBadRoster        = apperrors.New(apperrors.KindInvalidState, "roster has the wrong number of decks")
)

type FriendlyMode string

const (
	FriendlyDefault FriendlyMode = "default"
	FriendlyCustom  FriendlyMode = "custom"
)

type OpponentMode string

const (
	OpponentRandom OpponentMode = "random"
	OpponentCustom OpponentMode = "custom"
)

// DefaultOpponentCount is the opponent roster size before the operator
// changes it.
const DefaultOpponentCount = deck.MinOpponentRoster

// Manager is not safe for concurrent use; a session owns one.
type Manager struct {
	pool  deck.Pool
	store catalog.FriendlyStore

	defaults     []deck.Record
	friendly     []deck.Record
	friendlyMode FriendlyMode
	changed      bool

	opponentMode   OpponentMode
	opponentCount  int
	customOpponent []deck.Record
}

// New builds a manager from already loaded friendly defaults.
func New(pool deck.Pool, store catalog.FriendlyStore, defaults []deck.Record) (*Manager, error) {
	if len(defaults) != deck.FriendlyRosterSize {
		return nil, apperrors.New(apperrors.KindConfig,
			fmt.Sprintf("friendly defaults have %d decks, want %d", len(defaults), deck.FriendlyRosterSize))
	}
	m := &Manager{
		pool:     pool,
		store:    store,
		defaults: deck.Clone(defaults),
	}
	m.Reset()
	return m, nil
}

// Load reads the friendly defaults from store and builds a manager.
func Load(ctx context.Context, pool deck.Pool, store catalog.FriendlyStore) (*Manager, error) {
	defaults, err := store.LoadFriendly(ctx)
	if err != nil {
		return nil, err
	}
	return New(pool, store, defaults)
}

func (m *Manager) Pool() deck.Pool               { return m.pool }
func (m *Manager) Friendly() []deck.Record       { return deck.Clone(m.friendly) }
func (m *Manager) Defaults() []deck.Record       { return deck.Clone(m.defaults) }
func (m *Manager) FriendlyMode() FriendlyMode    { return m.friendlyMode }
func (m *Manager) Changed() bool                 { return m.changed }
func (m *Manager) OpponentMode() OpponentMode    { return m.opponentMode }
func (m *Manager) OpponentCount() int            { return m.opponentCount }
func (m *Manager) CustomOpponent() []deck.Record { return deck.Clone(m.customOpponent) }

func (m *Manager) SetOpponentMode(mode OpponentMode) error {
	switch mode {
	case OpponentRandom, OpponentCustom:
		m.opponentMode = mode
		return nil
	}
	return fmt.Errorf("%w: opponent %q", ErrBadMode, mode)
}

func (m *Manager) SetOpponentCount(n int) error {
	if n < deck.MinOpponentRoster || n > deck.MaxOpponentRoster {
		return fmt.Errorf("%w: %d not in %d..%d", ErrBadCount, n, deck.MinOpponentRoster, deck.MaxOpponentRoster)
	}
	m.opponentCount = n
	return nil
}

// UseDefaultFriendly drops any custom friendly roster, saved or not.
func (m *Manager) UseDefaultFriendly() {
	m.friendly = deck.Clone(m.defaults)
	m.friendlyMode = FriendlyDefault
	m.changed = false
}

// SetCustomFriendly installs the pool decks at indices as the friendly
// roster and marks it unsaved.
func (m *Manager) SetCustomFriendly(indices []int) error {
	if len(indices) != deck.FriendlyRosterSize {
		return fmt.Errorf("%w: friendly %d, want %d", ErrBadRoster, len(indices), deck.FriendlyRosterSize)
	}
	records, err := m.pool.Pick(indices)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInvalidState, "custom friendly roster", err)
	}
	m.friendly = records
	m.friendlyMode = FriendlyCustom
	m.changed = true
	return nil
}

// SaveFriendly persists the custom friendly roster and promotes it to the
// default. On failure nothing in memory changes.
func (m *Manager) SaveFriendly(ctx context.Context) error {
	if !m.changed {
		return ErrNothingToSave
	}
	if err := m.store.SaveFriendly(ctx, m.friendly); err != nil {
		return fmt.Errorf("save friendly roster: %w", err)
	}
	m.defaults = deck.Clone(m.friendly)
	m.changed = false
	return nil
}

func (m *Manager) SetCustomOpponent(indices []int) error {
	if len(indices) < deck.MinOpponentRoster || len(indices) > deck.MaxOpponentRoster {
		return fmt.Errorf("%w: opponent %d, want %d..%d", ErrBadRoster, len(indices), deck.MinOpponentRoster, deck.MaxOpponentRoster)
	}
	records, err := m.pool.Pick(indices)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInvalidState, "custom opponent roster", err)
	}
	m.customOpponent = records
	return nil
}

// Opponent returns the opponent roster for a new round: a uniform sample
// without replacement in random mode, the curated roster in custom mode.
func (m *Manager) Opponent(r *rand.Rand) ([]deck.Record, error) {
	if m.opponentMode == OpponentCustom {
		if m.customOpponent == nil {
			return nil, ErrNoCustomOpponent
		}
		return deck.Clone(m.customOpponent), nil
	}

	if len(m.pool) < m.opponentCount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrPoolTooSmall, len(m.pool), m.opponentCount)
	}
	out := make([]deck.Record, 0, m.opponentCount)
	for _, i := range r.Perm(len(m.pool))[:m.opponentCount] {
		out = append(out, m.pool[i])
	}
	return out, nil
}

// Reset restores every option to its initial value and drops unsaved and
// curated rosters. Saved defaults survive.
func (m *Manager) Reset() {
	m.UseDefaultFriendly()
	m.opponentMode = OpponentRandom
	m.opponentCount = DefaultOpponentCount
	m.customOpponent = nil
}
