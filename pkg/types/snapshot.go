package types

// StateSnapshot:
//   version: number
//   view:
//     phase: "setup" | "ban" | "custom_opponent_ban" | "pick"
//            | "pending_opponent_pick" | "custom_opponent_pick" | "done"
//     status: string          // localized operator status line
//     tone: "normal" | "info" | "opponent" | "success" | "error"
//     friendly, opponent: DeckView[]
//       slot, pool_index (-1 if not in pool), name, icon_path,
//       clickable: boolean, highlight: "normal" | "banned" | "picked"
//     matchup: { friendly: Deck, opponent: Deck }[] // once generated
//     can_undo, can_start, can_save, can_generate_matchup: boolean
//     options: opponent_mode, opponent_count, friendly_mode,
//              manual_opponent_ban, manual_opponent_pick, changed, locked
//     builder: { side, status, min, max, selected: number[], complete } // while open

// Sides accepted in ClientMessage.Side.
const (
	SideFriendly = "friendly"
	SideOpponent = "opponent"
)
