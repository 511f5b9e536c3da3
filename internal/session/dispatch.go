package session

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/engine"
	"github.com/DoyleJ11/deckbp/internal/roster"
)

var ErrUnknownCommand = apperrors.New(apperrors.KindInvalidState, "unknown command")

type CommandType string

const (
	CmdSetOpponentMode  CommandType = "SetOpponentMode"
	CmdSetOpponentCount CommandType = "SetOpponentCount"
	CmdSetFriendlyMode  CommandType = "SetFriendlyMode"
	CmdSetManualBan     CommandType = "SetManualBan"
	CmdSetManualPick    CommandType = "SetManualPick"
	CmdOpenBuilder      CommandType = "OpenBuilder"
	CmdToggleBuilder    CommandType = "ToggleBuilder"
	CmdConfirmBuilder   CommandType = "ConfirmBuilder"
	CmdCancelBuilder    CommandType = "CancelBuilder"
	CmdSaveFriendly     CommandType = "SaveFriendly"
	CmdStartRound       CommandType = "StartRound"
	CmdClick            CommandType = "Click"
	CmdUndo             CommandType = "Undo"
	CmdReset            CommandType = "Reset"
	CmdGenerateMatchup  CommandType = "GenerateMatchup"
)

// Command is a serialized operator command. Only the fields its type needs
// are read.
type Command struct {
	Type      CommandType
	Side      engine.Side
	Slot      int
	PoolIndex int
	Mode      string
	Count     int
	Enabled   bool
}

// Dispatch runs cmd against the session.
func (s *Session) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CmdSetOpponentMode:
		return s.SetOpponentMode(roster.OpponentMode(cmd.Mode))
	case CmdSetOpponentCount:
		return s.SetOpponentCount(cmd.Count)
	case CmdSetFriendlyMode:
		return s.SetFriendlyMode(roster.FriendlyMode(cmd.Mode))
	case CmdSetManualBan:
		return s.SetManualOpponentBan(cmd.Enabled)
	case CmdSetManualPick:
		return s.SetManualOpponentPick(cmd.Enabled)
	case CmdOpenBuilder:
		return s.OpenBuilder(cmd.Side)
	case CmdToggleBuilder:
		return s.ToggleBuilder(cmd.Side, cmd.PoolIndex)
	case CmdConfirmBuilder:
		return s.ConfirmBuilder(cmd.Side)
	case CmdCancelBuilder:
		return s.CancelBuilder(cmd.Side)
	case CmdSaveFriendly:
		return s.SaveFriendlyRoster(ctx)
	case CmdStartRound:
		return s.StartRound()
	case CmdClick:
		return s.Click(cmd.Side, cmd.Slot)
	case CmdUndo:
		return s.Undo()
	case CmdReset:
		return s.Reset()
	case CmdGenerateMatchup:
		return s.GenerateMatchup()
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
}
