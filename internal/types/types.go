package types

import (
	"fmt"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/engine"
	"github.com/DoyleJ11/deckbp/internal/lobby"
	"github.com/DoyleJ11/deckbp/internal/session"
	wire "github.com/DoyleJ11/deckbp/pkg/types"
)

var ErrBadMessage = apperrors.New(apperrors.KindInvalidState, "bad client message")

type ServerMessage struct {
	Type    string         `json:"type"` // "StateSnapshot" | "Error"
	Version int            `json:"version,omitempty"`
	View    *session.View  `json:"view,omitempty"`
	Kind    apperrors.Kind `json:"kind,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// FromSnapshot turns a lobby snapshot into its wire message.
func FromSnapshot(snap lobby.Snapshot) ServerMessage {
	if snap.Err != nil {
		return ServerMessage{Type: wire.TypeError, Version: snap.Version, Kind: snap.Err.Kind, Error: snap.Err.Message}
	}
	v := snap.View
	return ServerMessage{Type: wire.TypeStateSnapshot, Version: snap.Version, View: &v}
}

// ErrorMessage reports err to a single client.
func ErrorMessage(err error) ServerMessage {
	kind, ok := apperrors.KindOf(err)
	if !ok {
		kind = apperrors.KindInvalidState
	}
	return ServerMessage{Type: wire.TypeError, Kind: kind, Error: err.Error()}
}

// ToCommand validates m and maps it onto a session command.
func ToCommand(m wire.ClientMessage) (session.Command, error) {
	cmd := session.Command{
		Type:      session.CommandType(m.Type),
		Slot:      m.Slot,
		PoolIndex: m.PoolIndex,
		Mode:      m.Mode,
		Count:     m.Count,
		Enabled:   m.Enabled,
	}

	switch cmd.Type {
	case session.CmdOpenBuilder, session.CmdToggleBuilder, session.CmdConfirmBuilder,
		session.CmdCancelBuilder, session.CmdClick:
		side, ok := parseSide(m.Side)
		if !ok {
			return session.Command{}, fmt.Errorf("%w: %s needs side, got %q", ErrBadMessage, m.Type, m.Side)
		}
		cmd.Side = side
	case session.CmdSetOpponentMode, session.CmdSetOpponentCount, session.CmdSetFriendlyMode,
		session.CmdSetManualBan, session.CmdSetManualPick, session.CmdSaveFriendly,
		session.CmdStartRound, session.CmdUndo, session.CmdReset, session.CmdGenerateMatchup:
	default:
		return session.Command{}, fmt.Errorf("%w: unknown type %q", ErrBadMessage, m.Type)
	}
	return cmd, nil
}

func parseSide(side string) (engine.Side, bool) {
	switch side {
	case wire.SideFriendly:
		return engine.SideFriendly, true
	case wire.SideOpponent:
		return engine.SideOpponent, true
	default:
		return "", false
	}
}
