package engine

import "github.com/DoyleJ11/deckbp/internal/selection"

func NewState() State {
	return State{
		Phase:   PhaseSetup,
		Rosters: map[Side]int{},
		Bans:    map[Side]int{},
		Picks:   map[Side]*selection.Set[int]{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// ScriptedEvents returns the events produced by the scripted opponent.
func ScriptedEvents(events []Event) []Event {
	var out []Event
	for _, event := range events {
		if event.Scripted {
			out = append(out, event)
		}
	}
	return out
}
