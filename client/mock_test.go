// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/33cn/raffle/types"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
)

type mockConn struct {
	mu    sync.Mutex
	state types.ConnectionState
}

func newMockConn(addr string) *mockConn {
	return &mockConn{state: types.ConnectionState{Connected: true, Address: addr, NetworkID: 80001}}
}

func (m *mockConn) State() types.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockConn) set(s types.ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

type mockReader struct {
	mock.Mock
	// gameID 合约返回的游戏 id, 为空表示未知
	gameID string
}

func (m *mockReader) IsGameOpen(ctx context.Context) (bool, error) {
	ret := m.Called()
	return ret.Bool(0), ret.Error(1)
}

func (m *mockReader) Owner(ctx context.Context) (string, error) {
	ret := m.Called()
	return ret.String(0), ret.Error(1)
}

func (m *mockReader) GameID(ctx context.Context) (string, error) {
	return m.gameID, nil
}

// funcIndexer delegates every call to fn, calls counts invocations
type funcIndexer struct {
	calls int32
	mu    sync.Mutex
	fn    func(ctx context.Context, call int32) (*types.GameSession, error)
}

func (f *funcIndexer) LatestSession(ctx context.Context) (*types.GameSession, error) {
	n := atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx, n)
}

func (f *funcIndexer) set(fn func(ctx context.Context, call int32) (*types.GameSession, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
}

func (f *funcIndexer) count() int32 {
	return atomic.LoadInt32(&f.calls)
}

func staticIndexer(s *types.GameSession, err error) *funcIndexer {
	return &funcIndexer{fn: func(context.Context, int32) (*types.GameSession, error) {
		return s.Clone(), err
	}}
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) StartGame(ctx context.Context, maxPlayers uint64, entryFee *big.Int) (*ethtypes.Receipt, error) {
	ret := m.Called(maxPlayers, entryFee)
	var r *ethtypes.Receipt
	if v := ret.Get(0); v != nil {
		r = v.(*ethtypes.Receipt)
	}
	return r, ret.Error(1)
}

func (m *mockWriter) JoinGame(ctx context.Context, payment *big.Int) (*ethtypes.Receipt, error) {
	ret := m.Called(payment)
	var r *ethtypes.Receipt
	if v := ret.Get(0); v != nil {
		r = v.(*ethtypes.Receipt)
	}
	return r, ret.Error(1)
}
