package engine

import "slices"

// Backward lists where one undo step may land from each phase.
var Backward = map[Phase][]Phase{
	PhaseCustomOpponentBan:   {PhaseBan},
	PhasePick:                {PhaseBan},
	PhasePendingOpponentPick: {PhasePick},
	PhaseCustomOpponentPick:  {PhaseBan},
	PhaseDone:                {PhaseDone, PhasePick},
}

// rank orders phases along the round.
var rank = map[Phase]int{
	PhaseSetup:               0,
	PhaseBan:                 1,
	PhaseCustomOpponentBan:   2,
	PhasePick:                3,
	PhasePendingOpponentPick: 4,
	PhaseCustomOpponentPick:  5,
	PhaseDone:                6,
}

// IsBackward reports whether one undo step may move from from to to.
func IsBackward(from, to Phase) bool {
	return slices.Contains(Backward[from], to)
}

// Before reports whether a comes strictly before b in a round.
func Before(a, b Phase) bool {
	return rank[a] < rank[b]
}
