// Package types is the public websocket protocol of a ban/pick session.
package types

// Client -> Server
//
// SetOpponentMode:  mode: "random" | "custom"
// SetOpponentCount: count: 4..6
// SetFriendlyMode:  mode: "default" | "custom" (custom opens the friendly builder)
// SetManualBan:     enabled: boolean
// SetManualPick:    enabled: boolean
//
// OpenBuilder:    side: "friendly" | "opponent"
// ToggleBuilder:  side, pool_index: number
// ConfirmBuilder: side
// CancelBuilder:  side
//
// SaveFriendly: {}
// StartRound:   {}
// Click:        side, slot: number (index inside the round roster)
// Undo:         {}
// Reset:        {}
// GenerateMatchup: {}
type ClientMessage struct {
	Type      string `json:"type"`
	Side      string `json:"side,omitempty"`
	Slot      int    `json:"slot,omitempty"`
	PoolIndex int    `json:"pool_index,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Count     int    `json:"count,omitempty"`
	Enabled   bool   `json:"enabled,omitempty"`
}

// Server -> Client
//
// StateSnapshot: see snapshot.go
//
// Error (sent only to the client whose command was rejected):
//
//	kind: "config" | "capacity" | "invalid_state" | "precondition" | "persistence"
//	error: string
const (
	TypeStateSnapshot = "StateSnapshot"
	TypeError         = "Error"
)

// Deck is one entry of GET /decks.
type Deck struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	IconPath string `json:"icon_path"`
	IconURL  string `json:"icon_url"`
}
