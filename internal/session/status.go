package session

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DoyleJ11/deckbp/internal/engine"
	"github.com/DoyleJ11/deckbp/internal/roster"
)

// Tone tells the view how to color the status line.
type Tone string

const (
	toneNormal   Tone = "normal"
	toneInfo     Tone = "info"
	toneOpponent Tone = "opponent"
	toneSuccess  Tone = "success"
	toneError    Tone = "error"
)

// notice is the outcome of the last command. It replaces the phase text
// until the next command.
type notice struct {
	tone Tone
	key  string
	args []any
}

func (s *Session) setNotice(tone Tone, key string, args ...any) {
	s.notice = &notice{tone: tone, key: key, args: args}
}

// StatusText returns the operator status line in the language closest to
// tag, and its tone.
func (s *Session) StatusText(tag language.Tag) (string, Tone) {
	p := message.NewPrinter(MatchLanguage(tag))
	if s.notice != nil {
		return p.Sprintf(s.notice.key, s.notice.args...), s.notice.tone
	}

	switch s.state.Phase {
	case engine.PhaseSetup:
		if s.roster.OpponentMode() == roster.OpponentCustom && s.roster.CustomOpponent() == nil {
			return p.Sprintf(keySetupCustomOpponent), toneNormal
		}
		return p.Sprintf(keySetup), toneNormal
	case engine.PhaseBan:
		return p.Sprintf(keyBan), toneInfo
	case engine.PhaseCustomOpponentBan:
		return p.Sprintf(keyCustomOpponentBan), toneOpponent
	case engine.PhasePick:
		return p.Sprintf(keyPick, len(engine.PickedSlots(s.state, engine.SideFriendly)), engine.PicksPerSide), toneInfo
	case engine.PhasePendingOpponentPick:
		return p.Sprintf(keyPendingOpponentPick), toneSuccess
	case engine.PhaseCustomOpponentPick:
		return p.Sprintf(keyCustomOpponentPick, len(engine.PickedSlots(s.state, engine.SideOpponent)), engine.PicksPerSide), toneOpponent
	case engine.PhaseDone:
		if s.state.Matchup != nil {
			return p.Sprintf(keyMatchup), toneSuccess
		}
		return p.Sprintf(keyDone), toneSuccess
	}
	return string(s.state.Phase), toneNormal
}

// builderStatus is the "choose N decks" line of an open builder.
func builderStatus(p *message.Printer, lo, hi, n int) string {
	if lo == hi {
		return p.Sprintf(keyBuilderExact, lo, n, lo)
	}
	return p.Sprintf(keyBuilderRange, lo, hi, n)
}

var supportedTags = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

var tagMatcher = language.NewMatcher(supportedTags)

// MatchLanguage maps tag onto a language with a registered catalog.
func MatchLanguage(tag language.Tag) language.Tag {
	_, idx, _ := tagMatcher.Match(tag)
	return supportedTags[idx]
}

// ParseLanguage is MatchLanguage for a raw tag string; unparsable input
// falls back to fallback.
func ParseLanguage(raw string, fallback language.Tag) language.Tag {
	if raw == "" {
		return MatchLanguage(fallback)
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return MatchLanguage(fallback)
	}
	return MatchLanguage(tag)
}

const (
	keySetup               = "status.setup"
	keySetupCustomOpponent = "status.setup.custom_opponent"
	keyBan                 = "status.ban"
	keyCustomOpponentBan   = "status.custom_opponent_ban"
	keyPick                = "status.pick"
	keyPendingOpponentPick = "status.pending_opponent_pick"
	keyCustomOpponentPick  = "status.custom_opponent_pick"
	keyDone                = "status.done"
	keyMatchup             = "status.matchup"

	keyUndoMatchup     = "notice.undo.matchup"
	keyUndoPick        = "notice.undo.pick"
	keyUndoBan         = "notice.undo.ban"
	keyFriendlyDefault = "notice.friendly.default"
	keyFriendlyCustom  = "notice.friendly.custom"
	keyOpponentCustom  = "notice.opponent.custom"
	keySaveOK          = "notice.save.ok"
	keySaveFailed      = "notice.save.failed"
	keyPoolTooSmall    = "notice.pool_too_small"
	keyCapacity        = "notice.capacity"

	keyBuilderExact = "builder.exact"
	keyBuilderRange = "builder.range"
)

func init() {
	register(language.English, map[string]string{
		keySetup:               "Set up the rosters, then start the round",
		keySetupCustomOpponent: "Build the [custom] opponent roster, then start the round",
		keyBan:                 "[Ban] Click one [opponent deck] to ban (1/1)",
		keyCustomOpponentBan:   "[Opponent ban] Click one [friendly deck] to ban",
		keyPick:                "[Pick] Choose 3 [friendly decks] (%d/%d)",
		keyPendingOpponentPick: "Friendly lineup locked! Waiting for the opponent...",
		keyCustomOpponentPick:  "[Opponent pick] Choose 3 [opponent decks] (%d/%d)",
		keyDone:                "Both lineups locked!",
		keyMatchup:             "Final matchup (random 1v1)",

		keyUndoMatchup:     "[Undo] Matchup cleared. You can generate it again.",
		keyUndoPick:        "[Undo] Back to [friendly pick]",
		keyUndoBan:         "[Undo] Back to [ban]. Ban an [opponent deck] again",
		keyFriendlyDefault: "Friendly roster reset to [default]",
		keyFriendlyCustom:  "Friendly roster is [custom]",
		keyOpponentCustom:  "Opponent roster is [custom] (%d decks)",
		keySaveOK:          "Saved the [friendly roster]",
		keySaveFailed:      "Save failed: %s",
		keyPoolTooSmall:    "The deck pool does not have enough decks.",
		keyCapacity:        "Selection is full (%d/%d)",

		keyBuilderExact: "Choose %d decks (%d/%d)",
		keyBuilderRange: "Choose %d to %d decks (%d)",
	})

	register(language.SimplifiedChinese, map[string]string{
		keySetup:               "请设置卡组，然后点击'生成对局'",
		keySetupCustomOpponent: "请点击'生成对局'按钮以 [自定义] 对方卡组",
		keyBan:                 "[Ban阶段] 请点击一套 [对方卡组] 进行Ban (1/1)",
		keyCustomOpponentBan:   "[对方Ban阶段] 请点击一套 [我方卡组] 进行Ban",
		keyPick:                "[Pick阶段] 请选择 3 套 [我方卡组] 出战 (%d/%d)",
		keyPendingOpponentPick: "我方阵容确定！等待对方选择...",
		keyCustomOpponentPick:  "[对方Pick阶段] 请选择 3 套 [对方卡组] 出战 (%d/%d)",
		keyDone:                "双方阵容确定！",
		keyMatchup:             "最终对战 (1v1 随机匹配)",

		keyUndoMatchup:     "[撤销] 已清空对战表。您可以重新生成。",
		keyUndoPick:        "[撤销] 返回 [我方Pick阶段]",
		keyUndoBan:         "[撤销] 返回 [Ban阶段]。请重新Ban [对方卡组]",
		keyFriendlyDefault: "我方卡组已重置为 [默认]",
		keyFriendlyCustom:  "我方卡组已 [自定义]",
		keyOpponentCustom:  "对方卡组已 [自定义] (%d套)",
		keySaveOK:          "成功保存 [我方卡组]",
		keySaveFailed:      "保存失败: %s",
		keyPoolTooSmall:    "卡组资源池中的卡组数量不足。",
		keyCapacity:        "已达到选择上限 (%d/%d)",

		keyBuilderExact: "请选择 %d 套卡组 (%d/%d)",
		keyBuilderRange: "请选择 %d 到 %d 套卡组 (%d)",
	})
}

func register(tag language.Tag, messages map[string]string) {
	for key, msg := range messages {
		if err := message.SetString(tag, key, msg); err != nil {
			panic(fmt.Sprintf("register %s message %s: %v", tag, key, err))
		}
	}
}
