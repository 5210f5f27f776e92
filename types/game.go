// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"math/big"
)

// GameSession one indexed game record, players in join order
type GameSession struct {
	ID         string   `json:"id"`
	MaxPlayers uint64   `json:"maxPlayers"`
	EntryFee   *big.Int `json:"entryFee"`
	Players    []string `json:"players"`
	Winner     string   `json:"winner,omitempty"`
}

// HasWinner the session is concluded
func (s *GameSession) HasWinner() bool {
	return s != nil && s.Winner != ""
}

// HasPlayers at least one player joined
func (s *GameSession) HasPlayers() bool {
	return s != nil && len(s.Players) > 0
}

// Valid checks len(players) <= maxPlayers
func (s *GameSession) Valid() bool {
	if s == nil {
		return false
	}
	if s.EntryFee != nil && s.EntryFee.Sign() < 0 {
		return false
	}
	return uint64(len(s.Players)) <= s.MaxPlayers
}

// Clone deep copy, GameState never shares slices with the fetch result
func (s *GameSession) Clone() *GameSession {
	if s == nil {
		return nil
	}
	c := &GameSession{
		ID:         s.ID,
		MaxPlayers: s.MaxPlayers,
		Winner:     s.Winner,
	}
	if s.EntryFee != nil {
		c.EntryFee = new(big.Int).Set(s.EntryFee)
	}
	if s.Players != nil {
		c.Players = append([]string{}, s.Players...)
	}
	return c
}

// GameState reconciled view of contract flag and indexer record.
// A GameState is replaced as a whole on every applied cycle and must not be modified.
type GameState struct {
	IsOpen bool `json:"isOpen"`
	// ID 当前描述的游戏 id, 记录不完整时也会保留
	ID         string       `json:"id,omitempty"`
	Session    *GameSession `json:"session,omitempty"`
	Log        []string     `json:"log"`
	Generation uint64       `json:"generation"`

	MaxPlayers uint64   `json:"maxPlayers"`
	EntryFee   *big.Int `json:"entryFee,omitempty"`
	Players    []string `json:"players,omitempty"`
	Winner     string   `json:"winner,omitempty"`
}

// Full all seats taken, the contract is picking the winner
func (g GameState) Full() bool {
	return g.IsOpen && g.MaxPlayers > 0 && uint64(len(g.Players)) >= g.MaxPlayers
}

// SessionID id of the game the state describes, empty when idle
func (g GameState) SessionID() string {
	if g.ID != "" {
		return g.ID
	}
	if g.Session == nil {
		return ""
	}
	return g.Session.ID
}

// ConnectionState wallet session as seen by the client
type ConnectionState struct {
	Connected    bool   `json:"connected"`
	Address      string `json:"address,omitempty"`
	NetworkID    int64  `json:"networkId"`
	WrongNetwork bool   `json:"wrongNetwork,omitempty"`
}

// Err nil when the session can be used for reads and writes
func (c ConnectionState) Err() error {
	if c.WrongNetwork {
		return ErrWrongNetwork
	}
	if !c.Connected {
		return ErrNotConnected
	}
	return nil
}

// Role capability of the connected address
type Role struct {
	IsOwner bool   `json:"isOwner"`
	Owner   string `json:"owner,omitempty"`
}

// Snapshot immutable unit published to subscribers after each applied cycle
type Snapshot struct {
	State      GameState       `json:"state"`
	Role       Role            `json:"role"`
	Connection ConnectionState `json:"connection"`
	Loading    bool            `json:"loading"`
}
