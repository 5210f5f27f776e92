// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package game merges the contract flag and the indexed game record into one GameState.
//
// The contract flag decides which rule applies, the indexed record only supplies
// detail. The log is rebuilt from scratch on every call, so it is a pure function
// of the inputs and never accumulates lines across cycles.
package game

import (
	"fmt"
	"math/big"

	"github.com/33cn/raffle/types"
)

// PendingSessionID is announced while the contract is open, the indexer still
// serves the previous record and the contract game id could not be read.
const PendingSessionID = "pending"

// log line formats
const (
	fmtStarted  = "Game has started with ID: %s"
	fmtJoined   = "%d / %d Players have joined"
	fmtPlayer   = "%s Joined"
	fmtEnded    = "last game ended with ID: %s"
	fmtWinner   = "Winner is: %s"
	lineWaiting = "Wait for the host to start a new Game"
)

// Reconcile builds the next GameState from the previous one, the contract flag, the
// contract game id (empty when unknown) and the latest indexed record (nil when
// nothing was indexed yet). prev is not modified.
func Reconcile(prev types.GameState, isOpen bool, gameID string, session *types.GameSession) types.GameState {
	next := types.GameState{
		IsOpen:     isOpen,
		Log:        []string{},
		Generation: prev.Generation + 1,
	}
	switch {
	case isOpen:
		reconcileOpen(&next, gameID, session)
	case session.HasWinner():
		next.ID = session.ID
		next.Winner = session.Winner
		if session.Valid() {
			s := session.Clone()
			next.Session = s
			next.MaxPlayers = s.MaxPlayers
			next.EntryFee = s.EntryFee
			next.Players = s.Players
		}
		next.Log = []string{
			fmt.Sprintf(fmtEnded, session.ID),
			fmt.Sprintf(fmtWinner, session.Winner),
			lineWaiting,
		}
	}
	return next
}

func reconcileOpen(next *types.GameState, gameID string, session *types.GameSession) {
	stale := gameID != "" && session != nil && session.ID != gameID
	if stale || !Fresh(session) {
		// the indexer has not caught up with the contract, announce without detail
		id := gameID
		if id == "" && session != nil && !session.HasWinner() {
			id = session.ID
		}
		next.ID = id
		if id == "" {
			id = PendingSessionID
		}
		next.Log = []string{fmt.Sprintf(fmtStarted, id)}
		return
	}
	s := session.Clone()
	next.ID = s.ID
	next.Session = s
	next.MaxPlayers = s.MaxPlayers
	next.EntryFee = s.EntryFee
	if next.EntryFee == nil {
		next.EntryFee = new(big.Int)
	}
	next.Players = s.Players
	next.Log = append(next.Log, fmt.Sprintf(fmtStarted, s.ID))
	if !s.HasPlayers() {
		return
	}
	next.Log = append(next.Log, fmt.Sprintf(fmtJoined, len(s.Players), s.MaxPlayers))
	for _, p := range s.Players {
		next.Log = append(next.Log, fmt.Sprintf(fmtPlayer, p))
	}
}

// Fresh reports whether an indexed record can describe a game the contract reports
// as open: it exists, is well formed and has not concluded.
func Fresh(session *types.GameSession) bool {
	return session != nil && session.ID != "" && !session.HasWinner() && session.Valid()
}
