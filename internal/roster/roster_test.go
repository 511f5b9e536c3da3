package roster

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/deck"
)

type memStore struct {
	records []deck.Record
	saves   int
	err     error
}

func (s *memStore) LoadFriendly(context.Context) ([]deck.Record, error) {
	return deck.Clone(s.records), nil
}

func (s *memStore) SaveFriendly(_ context.Context, records []deck.Record) error {
	if s.err != nil {
		return s.err
	}
	s.saves++
	s.records = deck.Clone(records)
	return nil
}

func makePool(n int) deck.Pool {
	pool := make(deck.Pool, n)
	for i := range pool {
		pool[i] = deck.Record{Name: fmt.Sprintf("deck-%d", i), IconPath: fmt.Sprintf("icons/%d.png", i)}
	}
	return pool
}

func newManager(t *testing.T, poolSize int) (*Manager, *memStore) {
	t.Helper()
	pool := makePool(poolSize)
	store := &memStore{records: deck.Clone(pool[:deck.FriendlyRosterSize])}
	m, err := Load(context.Background(), pool, store)
	require.NoError(t, err)
	return m, store
}

func TestNewRejectsShortDefaults(t *testing.T) {
	_, err := New(makePool(8), &memStore{}, makePool(5))
	assert.ErrorIs(t, err, apperrors.Config)
}

func TestInitialOptions(t *testing.T) {
	m, _ := newManager(t, 10)
	assert.Equal(t, FriendlyDefault, m.FriendlyMode())
	assert.Equal(t, OpponentRandom, m.OpponentMode())
	assert.Equal(t, DefaultOpponentCount, m.OpponentCount())
	assert.False(t, m.Changed())
	assert.Equal(t, m.Defaults(), m.Friendly())
}

func TestSetOpponentCount(t *testing.T) {
	cases := []struct {
		n       int
		wantErr bool
	}{
		{n: 3, wantErr: true},
		{n: 4},
		{n: 6},
		{n: 7, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.n), func(t *testing.T) {
			m, _ := newManager(t, 10)
			err := m.SetOpponentCount(tc.n)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrBadCount)
				assert.Equal(t, DefaultOpponentCount, m.OpponentCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.n, m.OpponentCount())
		})
	}
}

func TestSetOpponentModeRejectsUnknown(t *testing.T) {
	m, _ := newManager(t, 10)
	require.ErrorIs(t, m.SetOpponentMode("mirror"), ErrBadMode)
	assert.Equal(t, OpponentRandom, m.OpponentMode())
}

// Custom friendly roster survives a save and becomes the default.
func TestCustomFriendlyRoundTrip(t *testing.T) {
	m, store := newManager(t, 10)
	indices := []int{9, 8, 7, 6, 5, 4}

	require.NoError(t, m.SetCustomFriendly(indices))
	assert.True(t, m.Changed())
	assert.Equal(t, FriendlyCustom, m.FriendlyMode())

	require.NoError(t, m.SaveFriendly(context.Background()))
	assert.False(t, m.Changed())
	assert.Equal(t, 1, store.saves)

	want, err := m.Pool().Pick(indices)
	require.NoError(t, err)
	assert.Equal(t, want, store.records)

	reloaded, err := Load(context.Background(), m.Pool(), store)
	require.NoError(t, err)
	assert.Equal(t, want, reloaded.Friendly())

	m.UseDefaultFriendly()
	assert.Equal(t, want, m.Friendly())
}

func TestSaveFriendlyWithoutChanges(t *testing.T) {
	m, store := newManager(t, 10)
	require.ErrorIs(t, m.SaveFriendly(context.Background()), ErrNothingToSave)
	assert.Zero(t, store.saves)
}

func TestSaveFriendlyFailureKeepsState(t *testing.T) {
	m, store := newManager(t, 10)
	defaults := m.Defaults()
	store.err = apperrors.Wrap(apperrors.KindPersistence, "write", errors.New("disk full"))

	require.NoError(t, m.SetCustomFriendly([]int{4, 5, 6, 7, 8, 9}))
	err := m.SaveFriendly(context.Background())
	require.ErrorIs(t, err, apperrors.Persistence)
	assert.True(t, m.Changed())
	assert.Equal(t, defaults, m.Defaults())
}

func TestSetCustomFriendlyWrongCount(t *testing.T) {
	m, _ := newManager(t, 10)
	require.ErrorIs(t, m.SetCustomFriendly([]int{1, 2, 3}), ErrBadRoster)
	assert.False(t, m.Changed())
}

func TestRandomOpponent(t *testing.T) {
	m, _ := newManager(t, 10)
	require.NoError(t, m.SetOpponentCount(5))
	r := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 50; i++ {
		got, err := m.Opponent(r)
		require.NoError(t, err)
		require.Len(t, got, 5)

		seen := map[string]bool{}
		for _, rec := range got {
			assert.False(t, seen[rec.Name], "duplicate %s", rec.Name)
			seen[rec.Name] = true
		}
	}
}

func TestRandomOpponentPoolTooSmall(t *testing.T) {
	m, _ := newManager(t, 6)
	require.NoError(t, m.SetOpponentCount(6))
	_, err := m.Opponent(rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	small, err := New(makePool(3), &memStore{}, makePool(6))
	require.NoError(t, err)
	_, err = small.Opponent(rand.New(rand.NewPCG(1, 2)))
	require.ErrorIs(t, err, ErrPoolTooSmall)
	assert.ErrorIs(t, err, apperrors.Config)
}

func TestCustomOpponent(t *testing.T) {
	m, _ := newManager(t, 10)
	require.NoError(t, m.SetOpponentMode(OpponentCustom))

	_, err := m.Opponent(nil)
	require.ErrorIs(t, err, ErrNoCustomOpponent)

	require.ErrorIs(t, m.SetCustomOpponent([]int{1, 2, 3}), ErrBadRoster)
	require.ErrorIs(t, m.SetCustomOpponent([]int{0, 0, 1, 2}), apperrors.InvalidState)
	require.ErrorIs(t, m.SetCustomFriendly([]int{4, 5, 6, 7, 8, 8}), apperrors.InvalidState)
	assert.Nil(t, m.CustomOpponent())
	assert.Equal(t, FriendlyDefault, m.FriendlyMode())
	require.NoError(t, m.SetCustomOpponent([]int{3, 1, 4, 2}))

	got, err := m.Opponent(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"deck-3", "deck-1", "deck-4", "deck-2"}, names(got))
}

func TestResetRestoresOptions(t *testing.T) {
	m, _ := newManager(t, 10)
	require.NoError(t, m.SetOpponentMode(OpponentCustom))
	require.NoError(t, m.SetOpponentCount(6))
	require.NoError(t, m.SetCustomOpponent([]int{0, 1, 2, 3}))
	require.NoError(t, m.SetCustomFriendly([]int{4, 5, 6, 7, 8, 9}))

	m.Reset()

	assert.Equal(t, OpponentRandom, m.OpponentMode())
	assert.Equal(t, DefaultOpponentCount, m.OpponentCount())
	assert.Nil(t, m.CustomOpponent())
	assert.Equal(t, FriendlyDefault, m.FriendlyMode())
	assert.Equal(t, FriendlyDefault, m.FriendlyMode())
	assert.False(t, m.Changed())
	assert.Equal(t, m.Defaults(), m.Friendly())
}

func names(records []deck.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}
