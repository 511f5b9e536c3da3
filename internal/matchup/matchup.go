// Package matchup pairs the final picks of both sides into 1v1 matches.
package matchup

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
)

// Size is the number of picks per side and the number of matches produced.
const Size = 3

var ErrPicksNotReady = apperrors.New(apperrors.KindPrecondition, "both sides need exactly 3 picks")

// Pairing is one 1v1 match.
type Pairing[T any] struct {
	Friendly T `json:"friendly"`
	Opponent T `json:"opponent"`
}

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Resolve shuffles each side independently and pairs them by position. The
// inputs are not modified; every call shuffles again.
func Resolve[T any](friendly, opponent []T, shuffle ShuffleFunc) ([]Pairing[T], error) {
	if len(friendly) != Size || len(opponent) != Size {
		return nil, fmt.Errorf("%w: friendly=%d opponent=%d", ErrPicksNotReady, len(friendly), len(opponent))
	}

	f := slices.Clone(friendly)
	o := slices.Clone(opponent)
	shuffle(len(f), func(i, j int) { f[i], f[j] = f[j], f[i] })
	shuffle(len(o), func(i, j int) { o[i], o[j] = o[j], o[i] })

	out := make([]Pairing[T], Size)
	for i := range out {
		out[i] = Pairing[T]{Friendly: f[i], Opponent: o[i]}
	}
	return out, nil
}
