package engine

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/deck"
	"github.com/DoyleJ11/deckbp/internal/matchup"
	"github.com/DoyleJ11/deckbp/internal/selection"
)

var (
	ErrWrongPhase         = apperrors.New(apperrors.KindInvalidState, "command not allowed in this phase")
	ErrWrongSide          = apperrors.New(apperrors.KindInvalidState, "deck belongs to the wrong side for this phase")
	ErrUnknownDeck        = apperrors.New(apperrors.KindInvalidState, "unknown deck slot")
	ErrAlreadyBanned      = apperrors.New(apperrors.KindInvalidState, "side already has a ban")
	ErrBannedDeck         = apperrors.New(apperrors.KindInvalidState, "deck is banned")
	ErrRosterSize         = apperrors.New(apperrors.KindInvalidState, "roster size out of range")
	ErrUndoFloor          = apperrors.New(apperrors.KindInvalidState, "nothing to undo")
	ErrUnsupportedCommand = apperrors.New(apperrors.KindInvalidState, "unsupported command")
)

// PicksPerSide is how many decks each side fields.
const PicksPerSide = matchup.Size

type Side string

const (
	SideFriendly Side = "friendly"
	SideOpponent Side = "opponent"
)

func (s Side) Other() Side {
	if s == SideFriendly {
		return SideOpponent
	}
	return SideFriendly
}

type Phase string

const (
	PhaseSetup               Phase = "setup"
	PhaseBan                 Phase = "ban"
	PhaseCustomOpponentBan   Phase = "custom_opponent_ban"
	PhasePick                Phase = "pick"
	PhasePendingOpponentPick Phase = "pending_opponent_pick"
	PhaseCustomOpponentPick  Phase = "custom_opponent_pick"
	PhaseDone                Phase = "done"
)

// Rules are the operator options frozen for one round.
type Rules struct {
	ManualOpponentBan  bool
	ManualOpponentPick bool
}

// State is the RoundState. Decks are identified by slot index inside the
// roster frozen at round start.
type State struct {
	Phase   Phase
	Rules   Rules
	Rosters map[Side]int
	Bans    map[Side]int
	Picks   map[Side]*selection.Set[int]
	Matchup []matchup.Pairing[int]
}

type CommandType string

const (
	CmdStartRound      CommandType = "StartRound"
	CmdBan             CommandType = "Ban"
	CmdPick            CommandType = "Pick"
	CmdClick           CommandType = "Click"
	CmdGenerateMatchup CommandType = "GenerateMatchup"
	CmdUndo            CommandType = "Undo"
	CmdReset           CommandType = "Reset"
)

/*
	CmdStartRound      -> EvtRoundStarted -> EvtPhaseChanged(ban)
	CmdBan (opponent)  -> EvtDeckBanned -> EvtDeckBanned(friendly, scripted) -> EvtPhaseChanged(pick)
	                                    or EvtPhaseChanged(custom_opponent_ban)
	CmdPick            -> EvtDeckPicked | EvtDeckUnpicked | EvtSelectionRejected
	                      at 3: EvtPhaseChanged(pending) -> scripted picks -> EvtPhaseChanged(done)
	CmdClick           -> CmdBan or CmdPick depending on phase
	CmdUndo            -> EvtUndone -> EvtMatchupCleared | EvtPhaseChanged
*/

type Command struct {
	Type CommandType
	Side Side
	Slot int

	// StartRound only.
	FriendlySize int
	OpponentSize int
	Rules        Rules
}

type EventType string

const (
	EvtRoundStarted      EventType = "RoundStarted"
	EvtDeckBanned        EventType = "DeckBanned"
	EvtDeckPicked        EventType = "DeckPicked"
	EvtDeckUnpicked      EventType = "DeckUnpicked"
	EvtSelectionRejected EventType = "SelectionRejected"
	EvtPhaseChanged      EventType = "PhaseChanged"
	EvtMatchupGenerated  EventType = "MatchupGenerated"
	EvtMatchupCleared    EventType = "MatchupCleared"
	EvtUndone            EventType = "Undone"
	EvtRoundReset        EventType = "RoundReset"
)

type Event struct {
	Type     EventType
	Side     Side
	Slot     int
	Phase    Phase
	Scripted bool
}

// Apply validates cmd against s and returns the resulting events and state.
// On error s is returned untouched.
func Apply(s State, cmd Command, p Policy) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartRound:
		return startRound(s, cmd)
	case CmdBan:
		return ban(s, cmd, p)
	case CmdPick:
		return pick(s, cmd, p)
	case CmdClick:
		switch s.Phase {
		case PhaseBan, PhaseCustomOpponentBan:
			return ban(s, cmd, p)
		case PhasePick, PhaseCustomOpponentPick:
			return pick(s, cmd, p)
		default:
			return nil, s, fmt.Errorf("%w: click in %s", ErrWrongPhase, s.Phase)
		}
	case CmdGenerateMatchup:
		return generateMatchup(s, p)
	case CmdUndo:
		return undo(s)
	case CmdReset:
		return []Event{{Type: EvtRoundReset}, {Type: EvtPhaseChanged, Phase: PhaseSetup}}, NewState(), nil
	default:
		return nil, s, fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Type)
	}
}

func startRound(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseSetup {
		return nil, s, fmt.Errorf("%w: start round in %s", ErrWrongPhase, s.Phase)
	}
	if cmd.FriendlySize != deck.FriendlyRosterSize {
		return nil, s, fmt.Errorf("%w: friendly roster has %d decks, want %d", ErrRosterSize, cmd.FriendlySize, deck.FriendlyRosterSize)
	}
	if cmd.OpponentSize < deck.MinOpponentRoster || cmd.OpponentSize > deck.MaxOpponentRoster {
		return nil, s, fmt.Errorf("%w: opponent roster has %d decks, want %d..%d",
			ErrRosterSize, cmd.OpponentSize, deck.MinOpponentRoster, deck.MaxOpponentRoster)
	}

	ns := NewState()
	ns.Phase = PhaseBan
	ns.Rules = cmd.Rules
	ns.Rosters[SideFriendly] = cmd.FriendlySize
	ns.Rosters[SideOpponent] = cmd.OpponentSize

	events := []Event{
		{Type: EvtRoundStarted},
		{Type: EvtPhaseChanged, Phase: PhaseBan},
	}
	return events, ns, nil
}

func ban(s State, cmd Command, p Policy) ([]Event, State, error) {
	var want Side
	switch s.Phase {
	case PhaseBan:
		want = SideOpponent
	case PhaseCustomOpponentBan:
		want = SideFriendly
	default:
		return nil, s, fmt.Errorf("%w: ban in %s", ErrWrongPhase, s.Phase)
	}
	if cmd.Side != want {
		return nil, s, fmt.Errorf("%w: %s deck during %s", ErrWrongSide, cmd.Side, s.Phase)
	}
	if !validSlot(s, cmd.Side, cmd.Slot) {
		return nil, s, fmt.Errorf("%w: %s slot %d", ErrUnknownDeck, cmd.Side, cmd.Slot)
	}
	if _, ok := s.Bans[cmd.Side]; ok {
		return nil, s, fmt.Errorf("%w: %s", ErrAlreadyBanned, cmd.Side)
	}

	ns := s.Clone()
	ns.Bans[cmd.Side] = cmd.Slot
	events := []Event{{Type: EvtDeckBanned, Side: cmd.Side, Slot: cmd.Slot}}

	if s.Phase == PhaseCustomOpponentBan {
		return append(events, enterPick(&ns)...), ns, nil
	}
	return append(events, resolveFriendlyBan(&ns, p)...), ns, nil
}

// resolveFriendlyBan runs right after the operator bans an opponent deck.
func resolveFriendlyBan(s *State, p Policy) []Event {
	if s.Rules.ManualOpponentBan {
		s.Phase = PhaseCustomOpponentBan
		return []Event{{Type: EvtPhaseChanged, Phase: PhaseCustomOpponentBan}}
	}

	var events []Event
	if slot, ok := p.ChooseBan(Available(*s, SideFriendly)); ok {
		s.Bans[SideFriendly] = slot
		events = append(events, Event{Type: EvtDeckBanned, Side: SideFriendly, Slot: slot, Scripted: true})
	}
	return append(events, enterPick(s)...)
}

func enterPick(s *State) []Event {
	s.Phase = PhasePick
	s.Picks[SideFriendly] = newPickSet(*s, SideFriendly)
	return []Event{{Type: EvtPhaseChanged, Phase: PhasePick}}
}

func pick(s State, cmd Command, p Policy) ([]Event, State, error) {
	var want Side
	switch s.Phase {
	case PhasePick:
		want = SideFriendly
	case PhaseCustomOpponentPick:
		want = SideOpponent
	default:
		return nil, s, fmt.Errorf("%w: pick in %s", ErrWrongPhase, s.Phase)
	}
	if cmd.Side != want {
		return nil, s, fmt.Errorf("%w: %s deck during %s", ErrWrongSide, cmd.Side, s.Phase)
	}
	if !validSlot(s, cmd.Side, cmd.Slot) {
		return nil, s, fmt.Errorf("%w: %s slot %d", ErrUnknownDeck, cmd.Side, cmd.Slot)
	}
	if isBanned(s, cmd.Side, cmd.Slot) {
		return nil, s, fmt.Errorf("%w: %s slot %d", ErrBannedDeck, cmd.Side, cmd.Slot)
	}

	ns := s.Clone()
	set := ns.Picks[cmd.Side]
	if set == nil {
		set = newPickSet(ns, cmd.Side)
		ns.Picks[cmd.Side] = set
	}
	outcome, err := set.Toggle(cmd.Slot)
	if err != nil {
		return nil, s, err
	}

	var events []Event
	switch outcome {
	case selection.Selected:
		events = append(events, Event{Type: EvtDeckPicked, Side: cmd.Side, Slot: cmd.Slot})
	case selection.Deselected:
		events = append(events, Event{Type: EvtDeckUnpicked, Side: cmd.Side, Slot: cmd.Slot})
	case selection.Rejected:
		return []Event{{Type: EvtSelectionRejected, Side: cmd.Side, Slot: cmd.Slot}}, s, nil
	}

	if set.Len() < PicksPerSide {
		return events, ns, nil
	}

	if s.Phase == PhaseCustomOpponentPick {
		ns.Phase = PhaseDone
		return append(events, Event{Type: EvtPhaseChanged, Phase: PhaseDone}), ns, nil
	}

	ns.Phase = PhasePendingOpponentPick
	events = append(events, Event{Type: EvtPhaseChanged, Phase: PhasePendingOpponentPick})
	return append(events, resolveOpponentPick(&ns, p)...), ns, nil
}

// resolveOpponentPick runs once the friendly side has three picks.
func resolveOpponentPick(s *State, p Policy) []Event {
	set := newPickSet(*s, SideOpponent)
	s.Picks[SideOpponent] = set

	if s.Rules.ManualOpponentPick {
		s.Phase = PhaseCustomOpponentPick
		return []Event{{Type: EvtPhaseChanged, Phase: PhaseCustomOpponentPick}}
	}

	// Fewer than three candidates only happens if roster sizes were violated
	// upstream; take what is there.
	var events []Event
	for _, slot := range p.ChoosePicks(Available(*s, SideOpponent), PicksPerSide) {
		if out, err := set.Toggle(slot); err == nil && out == selection.Selected {
			events = append(events, Event{Type: EvtDeckPicked, Side: SideOpponent, Slot: slot, Scripted: true})
		}
	}
	s.Phase = PhaseDone
	return append(events, Event{Type: EvtPhaseChanged, Phase: PhaseDone})
}

func generateMatchup(s State, p Policy) ([]Event, State, error) {
	pairs, err := matchup.Resolve(PickedSlots(s, SideFriendly), PickedSlots(s, SideOpponent), p.Shuffle)
	if err != nil {
		return nil, s, err
	}
	ns := s.Clone()
	ns.Matchup = pairs
	return []Event{{Type: EvtMatchupGenerated}}, ns, nil
}

func undo(s State) ([]Event, State, error) {
	ns := s.Clone()
	events := []Event{{Type: EvtUndone}}

	switch s.Phase {
	case PhaseDone:
		if ns.Matchup != nil {
			ns.Matchup = nil
			return append(events, Event{Type: EvtMatchupCleared}), ns, nil
		}
		clearPicks(&ns)
		ns.Phase = PhasePick

	case PhasePendingOpponentPick:
		clearPicks(&ns)
		ns.Phase = PhasePick

	case PhasePick, PhaseCustomOpponentPick:
		clear(ns.Picks)
		clear(ns.Bans)
		ns.Phase = PhaseBan

	case PhaseCustomOpponentBan:
		clear(ns.Bans)
		ns.Phase = PhaseBan

	default:
		return nil, s, fmt.Errorf("%w: %s", ErrUndoFloor, s.Phase)
	}

	return append(events, Event{Type: EvtPhaseChanged, Phase: ns.Phase}), ns, nil
}

// clearPicks empties the friendly set and drops the opponent set, which is
// rebuilt when the friendly side completes again.
func clearPicks(s *State) {
	if set := s.Picks[SideFriendly]; set != nil {
		set.Clear()
	}
	delete(s.Picks, SideOpponent)
}

func validSlot(s State, side Side, slot int) bool {
	return slot >= 0 && slot < s.Rosters[side]
}

func isBanned(s State, side Side, slot int) bool {
	b, ok := s.Bans[side]
	return ok && b == slot
}

func newPickSet(s State, side Side) *selection.Set[int] {
	set, err := selection.New(Available(s, side), PicksPerSide, PicksPerSide)
	if err != nil {
		// Bounds are constant and valid.
		panic(err)
	}
	return set
}

// CanUndo reports whether Undo would change s.
func CanUndo(s State) bool {
	switch s.Phase {
	case PhaseDone, PhasePendingOpponentPick, PhaseCustomOpponentPick, PhasePick, PhaseCustomOpponentBan:
		return true
	}
	return false
}

// Clickable reports whether clicking the deck would be accepted in s.
func Clickable(s State, side Side, slot int) bool {
	if !validSlot(s, side, slot) {
		return false
	}
	switch s.Phase {
	case PhaseBan:
		return side == SideOpponent
	case PhaseCustomOpponentBan:
		return side == SideFriendly
	case PhasePick:
		return side == SideFriendly && !isBanned(s, side, slot)
	case PhaseCustomOpponentPick:
		return side == SideOpponent && !isBanned(s, side, slot)
	}
	return false
}

type Highlight string

const (
	HighlightNormal Highlight = "normal"
	HighlightBanned Highlight = "banned"
	HighlightPicked Highlight = "picked"
)

func HighlightOf(s State, side Side, slot int) Highlight {
	if isBanned(s, side, slot) {
		return HighlightBanned
	}
	if set := s.Picks[side]; set != nil && set.Contains(slot) {
		return HighlightPicked
	}
	return HighlightNormal
}

// Banned returns the banned slot of side, if any.
func Banned(s State, side Side) (int, bool) {
	b, ok := s.Bans[side]
	return b, ok
}

// PickedSlots returns the picks of side in selection order.
func PickedSlots(s State, side Side) []int {
	if set := s.Picks[side]; set != nil {
		return set.Selected()
	}
	return nil
}

// Available returns the roster slots of side that are not banned.
func Available(s State, side Side) []int {
	out := make([]int, 0, s.Rosters[side])
	for slot := range s.Rosters[side] {
		if !isBanned(s, side, slot) {
			out = append(out, slot)
		}
	}
	return out
}

// Clone deep-copies s so Apply never mutates its input.
func (s State) Clone() State {
	ns := s
	ns.Rosters = make(map[Side]int, len(s.Rosters))
	for k, v := range s.Rosters {
		ns.Rosters[k] = v
	}
	ns.Bans = make(map[Side]int, len(s.Bans))
	for k, v := range s.Bans {
		ns.Bans[k] = v
	}
	ns.Picks = make(map[Side]*selection.Set[int], len(s.Picks))
	for k, v := range s.Picks {
		ns.Picks[k] = v.Clone()
	}
	ns.Matchup = slices.Clone(s.Matchup)
	return ns
}
