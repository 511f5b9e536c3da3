package engine

import (
	"math/rand/v2"
	"slices"
)

// Policy decides on behalf of the scripted opponent and shuffles matchups.
type Policy interface {
	// ChooseBan picks one friendly slot to ban; false when none is available.
	ChooseBan(available []int) (int, bool)
	// ChoosePicks picks up to n distinct slots.
	ChoosePicks(available []int, n int) []int
	Shuffle(n int, swap func(i, j int))
}

// RandomPolicy chooses uniformly at random.
type RandomPolicy struct {
	rand *rand.Rand
}

func NewRandomPolicy(r *rand.Rand) *RandomPolicy {
	return &RandomPolicy{rand: r}
}

func (p *RandomPolicy) ChooseBan(available []int) (int, bool) {
	if len(available) == 0 {
		return 0, false
	}
	return available[p.rand.IntN(len(available))], true
}

func (p *RandomPolicy) ChoosePicks(available []int, n int) []int {
	if len(available) <= n {
		return slices.Clone(available)
	}
	out := make([]int, 0, n)
	for _, i := range p.rand.Perm(len(available))[:n] {
		out = append(out, available[i])
	}
	return out
}

func (p *RandomPolicy) Shuffle(n int, swap func(i, j int)) {
	p.rand.Shuffle(n, swap)
}
