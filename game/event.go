// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package game

import (
	"github.com/33cn/raffle/common/address"
	"github.com/33cn/raffle/types"
)

// EventType kind of transition between two consecutive states
type EventType string

// transitions reported by Diff
const (
	EventGameStarted  EventType = "game_started"
	EventPlayerJoined EventType = "player_joined"
	EventGameEnded    EventType = "game_ended"
)

// Event one discrete transition observed between two applied states
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Player    string    `json:"player,omitempty"`
	Winner    string    `json:"winner,omitempty"`
}

// Diff lists the transitions from prev to next in a stable order:
// game start first, then joins in join order, then the game end.
func Diff(prev, next types.GameState) []Event {
	var events []Event
	id := next.SessionID()
	sameSession := id != "" && id == prev.SessionID()

	if next.IsOpen && next.Session != nil {
		// a lagging announcement carries the id but no detail, the start is reported with the detail
		known := sameSession && prev.IsOpen && prev.Session != nil
		if !known {
			events = append(events, Event{Type: EventGameStarted, SessionID: id})
		}
		seen := make(map[string]bool)
		if known {
			for _, p := range prev.Players {
				seen[address.Normalize(p)] = true
			}
		}
		for _, p := range next.Players {
			if seen[address.Normalize(p)] {
				continue
			}
			events = append(events, Event{Type: EventPlayerJoined, SessionID: id, Player: p})
		}
	}

	if !next.IsOpen && next.Winner != "" {
		if prev.IsOpen || prev.Winner != next.Winner || !sameSession {
			events = append(events, Event{Type: EventGameEnded, SessionID: id, Winner: next.Winner})
		}
	}
	return events
}
