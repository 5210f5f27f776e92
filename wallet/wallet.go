// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wallet 管理钱包会话, 保证所有读写只在目标网络上进行
package wallet

import (
	"context"
	"math/big"
	"sync"

	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/types"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

var walletlog = log.New("module", "wallet")

// Backend read/write handle of an established session
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// Session 钱包连接建立后的会话, Transactor 为空时表示只读会话
type Session struct {
	Backend    Backend
	Address    common.Address
	Transactor *bind.TransactOpts
}

// Connector 建立钱包会话, 例如私钥钱包或者外部签名服务
type Connector interface {
	Connect(ctx context.Context) (*Session, error)
}

// Wallet owns the wallet session. It is the only writer of ConnectionState:
// Connect and Disconnect change it, the polling cycle only reads it.
type Wallet struct {
	chainID   int64
	connector Connector
	group     singleflight.Group

	mtx     sync.RWMutex
	session *Session
	state   types.ConnectionState

	onConnect    []func(types.ConnectionState)
	onDisconnect []func()
}

// New 创建钱包, chainID 为目标网络 id
func New(chainID int64, connector Connector) *Wallet {
	return &Wallet{
		chainID:   chainID,
		connector: connector,
		state:     types.ConnectionState{NetworkID: chainID},
	}
}

// OnConnect registers fn to run once per established session
func (w *Wallet) OnConnect(fn func(types.ConnectionState)) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.onConnect = append(w.onConnect, fn)
}

// OnDisconnect registers fn to run after the session is closed
func (w *Wallet) OnDisconnect(fn func()) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.onDisconnect = append(w.onDisconnect, fn)
}

// Connect establishes the session or reuses the current one.
// Concurrent calls share a single connection attempt.
func (w *Wallet) Connect(ctx context.Context) (types.ConnectionState, error) {
	w.mtx.RLock()
	if w.session != nil {
		state := w.state
		w.mtx.RUnlock()
		return state, nil
	}
	w.mtx.RUnlock()

	v, err, _ := w.group.Do("connect", func() (interface{}, error) {
		return w.connect(ctx)
	})
	if err != nil {
		return w.State(), err
	}
	return v.(types.ConnectionState), nil
}

func (w *Wallet) connect(ctx context.Context) (types.ConnectionState, error) {
	w.mtx.RLock()
	if w.session != nil {
		state := w.state
		w.mtx.RUnlock()
		return state, nil
	}
	w.mtx.RUnlock()

	session, err := w.connector.Connect(ctx)
	if err != nil {
		walletlog.Error("connect", "err", err)
		return types.ConnectionState{}, errors.Wrap(err, "connect wallet")
	}
	id, err := session.Backend.ChainID(ctx)
	if err != nil {
		session.Backend.Close()
		walletlog.Error("connect", "chainID err", err)
		return types.ConnectionState{}, errors.Wrap(err, "get chain id")
	}
	if !id.IsInt64() || id.Int64() != w.chainID {
		session.Backend.Close()
		w.mtx.Lock()
		w.state = types.ConnectionState{NetworkID: id.Int64(), WrongNetwork: true}
		w.mtx.Unlock()
		walletlog.Error("connect", "want chainID", w.chainID, "got", id.String())
		return types.ConnectionState{}, errors.Wrapf(types.ErrWrongNetwork, "want chain %d, got %s", w.chainID, id.String())
	}

	state := types.ConnectionState{Connected: true, NetworkID: w.chainID}
	if session.Address != (common.Address{}) {
		state.Address = session.Address.Hex()
	}
	w.mtx.Lock()
	w.session = session
	w.state = state
	listeners := append([]func(types.ConnectionState){}, w.onConnect...)
	w.mtx.Unlock()

	walletlog.Info("wallet connected", "address", state.Address, "chainID", state.NetworkID, "readonly", session.Transactor == nil)
	for _, fn := range listeners {
		fn(state)
	}
	return state, nil
}

// Disconnect closes the session and notifies listeners, a no-op when not connected
func (w *Wallet) Disconnect() {
	w.mtx.Lock()
	session := w.session
	w.session = nil
	w.state = types.ConnectionState{NetworkID: w.chainID}
	listeners := append([]func(){}, w.onDisconnect...)
	w.mtx.Unlock()

	if session == nil {
		return
	}
	session.Backend.Close()
	walletlog.Info("wallet disconnected")
	for _, fn := range listeners {
		fn()
	}
}

// State 当前连接状态
func (w *Wallet) State() types.ConnectionState {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	return w.state
}

// Reader read-capable handle, refused on the wrong network
func (w *Wallet) Reader() (Backend, error) {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	if w.state.WrongNetwork {
		return nil, types.ErrWrongNetwork
	}
	if w.session == nil {
		return nil, types.ErrNotConnected
	}
	return w.session.Backend, nil
}

// Signer returns a private copy of the transactor bound to ctx
func (w *Wallet) Signer(ctx context.Context) (*bind.TransactOpts, error) {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	if w.state.WrongNetwork {
		return nil, types.ErrWrongNetwork
	}
	if w.session == nil || w.session.Transactor == nil {
		return nil, types.ErrNoSigner
	}
	opts := *w.session.Transactor
	opts.Context = ctx
	return &opts, nil
}
