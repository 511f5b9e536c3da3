package session

import (
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DoyleJ11/deckbp/internal/deck"
	"github.com/DoyleJ11/deckbp/internal/engine"
	"github.com/DoyleJ11/deckbp/internal/roster"
)

// View is everything a renderer needs to draw the session.
type View struct {
	Phase    engine.Phase `json:"phase"`
	Status   string       `json:"status"`
	Tone     Tone         `json:"tone"`
	Friendly []DeckView   `json:"friendly"`
	Opponent []DeckView   `json:"opponent"`
	Matchup  []Pairing    `json:"matchup,omitempty"`

	CanUndo            bool `json:"can_undo"`
	CanStart           bool `json:"can_start"`
	CanSave            bool `json:"can_save"`
	CanGenerateMatchup bool `json:"can_generate_matchup"`

	Options OptionsView  `json:"options"`
	Builder *BuilderView `json:"builder,omitempty"`
}

type DeckView struct {
	Slot int `json:"slot"`
	// PoolIndex is the deck's position in the pool, -1 if it is not there.
	PoolIndex int              `json:"pool_index"`
	Name      string           `json:"name"`
	IconPath  string           `json:"icon_path"`
	Clickable bool             `json:"clickable"`
	Highlight engine.Highlight `json:"highlight"`
}

type OptionsView struct {
	OpponentMode       roster.OpponentMode `json:"opponent_mode"`
	OpponentCount      int                 `json:"opponent_count"`
	FriendlyMode       roster.FriendlyMode `json:"friendly_mode"`
	ManualOpponentBan  bool                `json:"manual_opponent_ban"`
	ManualOpponentPick bool                `json:"manual_opponent_pick"`
	Changed            bool                `json:"changed"`
	Locked             bool                `json:"locked"`
}

type BuilderView struct {
	Side     engine.Side `json:"side"`
	Status   string      `json:"status"`
	Min      int         `json:"min"`
	Max      int         `json:"max"`
	Selected []int       `json:"selected"`
	Complete bool        `json:"complete"`
}

// View renders the session for tag.
func (s *Session) View(tag language.Tag) View {
	status, tone := s.StatusText(tag)
	setup := s.state.Phase == engine.PhaseSetup

	v := View{
		Phase:              s.state.Phase,
		Status:             status,
		Tone:               tone,
		Friendly:           s.deckViews(engine.SideFriendly),
		Opponent:           s.deckViews(engine.SideOpponent),
		Matchup:            s.Matchup(),
		CanUndo:            s.CanUndo(),
		CanStart:           s.canStart(),
		CanSave:            setup && s.roster.Changed(),
		CanGenerateMatchup: s.state.Phase == engine.PhaseDone,
		Options: OptionsView{
			OpponentMode:       s.roster.OpponentMode(),
			OpponentCount:      s.roster.OpponentCount(),
			FriendlyMode:       s.roster.FriendlyMode(),
			ManualOpponentBan:  s.rules.ManualOpponentBan,
			ManualOpponentPick: s.rules.ManualOpponentPick,
			Changed:            s.roster.Changed(),
			Locked:             !setup,
		},
	}

	if b := s.builder; b != nil {
		p := message.NewPrinter(MatchLanguage(tag))
		v.Builder = &BuilderView{
			Side:     b.side,
			Status:   builderStatus(p, b.set.Min(), b.set.Max(), b.set.Len()),
			Min:      b.set.Min(),
			Max:      b.set.Max(),
			Selected: b.set.Selected(),
			Complete: b.set.IsComplete(),
		}
	}
	return v
}

func (s *Session) canStart() bool {
	if s.state.Phase != engine.PhaseSetup || s.builder != nil {
		return false
	}
	return s.roster.OpponentMode() == roster.OpponentRandom || s.roster.CustomOpponent() != nil
}

func (s *Session) deckViews(side engine.Side) []DeckView {
	records := s.Decks(side)
	pool := s.roster.Pool()
	out := make([]DeckView, 0, len(records))
	for slot, r := range records {
		out = append(out, DeckView{
			Slot:      slot,
			PoolIndex: slices.Index([]deck.Record(pool), r),
			Name:      r.Name,
			IconPath:  r.IconPath,
			Clickable: s.IsDeckClickable(side, slot),
			Highlight: s.Highlight(side, slot),
		})
	}
	return out
}
