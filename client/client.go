// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client 把钱包、合约、索引服务和轮询器组装成一个会话
package client

import (
	"context"
	"math/big"
	"sync"

	"github.com/33cn/raffle/account"
	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/metrics"
	"github.com/33cn/raffle/queue"
	"github.com/33cn/raffle/rpc/contract"
	"github.com/33cn/raffle/rpc/indexer"
	"github.com/33cn/raffle/types"
	"github.com/33cn/raffle/wallet"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	go_metrics "github.com/rcrowley/go-metrics"
)

var clog = log.New("module", "client")

// ContractWriter 合约写接口, 需要签名
type ContractWriter interface {
	StartGame(ctx context.Context, maxPlayers uint64, entryFee *big.Int) (*ethtypes.Receipt, error)
	JoinGame(ctx context.Context, payment *big.Int) (*ethtypes.Receipt, error)
}

// Connection the wallet session as seen by the client
type Connection interface {
	ConnectionSource
	Connect(ctx context.Context) (types.ConnectionState, error)
	Disconnect()
	OnConnect(fn func(types.ConnectionState))
	OnDisconnect(fn func())
}

// Client one user session against the raffle contract and its indexer
type Client struct {
	cfg    *types.Config
	conn   Connection
	reader ContractReader
	writer ContractWriter
	poller *Poller
	q      *queue.Queue

	mtx    sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// New builds a client from the config, connector supplies the wallet session
func New(cfg *types.Config, connector wallet.Connector) (*Client, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if cfg.Network == nil || cfg.Contract == nil || cfg.Indexer == nil {
		return nil, errors.Wrap(types.ErrInvalidParam, "network, contract and indexer must be configured")
	}
	w := wallet.New(cfg.Network.ChainID, connector)
	raffle, err := contract.New(cfg.Contract.Address, w)
	if err != nil {
		return nil, err
	}
	idx := indexer.NewClient(cfg.Indexer.URL, cfg.IndexerTimeout())
	clog.Info("new client", "contract", raffle.Address().Hex(), "indexer", cfg.Indexer.URL, "chainID", cfg.Network.ChainID)
	return newClient(cfg, w, raffle, raffle, idx), nil
}

func newClient(cfg *types.Config, conn Connection, reader ContractReader, writer ContractWriter, idx SessionSource) *Client {
	registry := go_metrics.NewRegistry()
	q := queue.New("raffle")
	c := &Client{
		cfg:    cfg,
		conn:   conn,
		reader: reader,
		writer: writer,
		q:      q,
	}
	c.poller = NewPoller(conn, reader, idx, q, metrics.NewCycle(registry), cfg.PollPeriod())
	conn.OnConnect(func(state types.ConnectionState) {
		clog.Info("wallet connected", "addr", state.Address, "network", state.NetworkID)
		c.poller.Start()
	})
	conn.OnDisconnect(func() {
		clog.Info("wallet disconnected")
		c.poller.Stop()
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	metrics.StartMetrics(ctx, cfg, registry)
	return c
}

// Connect opens the wallet session, polling starts once it is established
func (c *Client) Connect(ctx context.Context) (types.ConnectionState, error) {
	if c.isClosed() {
		return types.ConnectionState{}, types.ErrIsClosed
	}
	return c.conn.Connect(ctx)
}

// Disconnect ends the wallet session and stops polling
func (c *Client) Disconnect() {
	c.conn.Disconnect()
	// a session that never connected has no listener to stop the poller
	c.poller.Stop()
}

// State latest snapshot
func (c *Client) State() types.Snapshot {
	return c.poller.State()
}

// Refresh runs one reconciliation cycle now
func (c *Client) Refresh(ctx context.Context) (types.Snapshot, error) {
	return c.poller.Refresh(ctx)
}

// Subscribe returns a queue client receiving snapshots and game events
func (c *Client) Subscribe(topics ...string) queue.Client {
	sub := c.q.Client()
	if len(topics) == 0 {
		topics = []string{queue.TopicSnapshot, queue.TopicEvent}
	}
	for _, topic := range topics {
		sub.Sub(topic)
	}
	return sub
}

// StartGame 由合约 owner 开启新一局, entryFee 为十进制的币数量
func (c *Client) StartGame(ctx context.Context, maxPlayers uint64, entryFee string) (*ethtypes.Receipt, error) {
	fee, err := types.ParseCoin(entryFee)
	if err != nil {
		return nil, err
	}
	if maxPlayers == 0 || maxPlayers > 255 {
		return nil, errors.Wrapf(types.ErrInvalidParam, "maxPlayers %d", maxPlayers)
	}
	conn := c.conn.State()
	if err := conn.Err(); err != nil {
		return nil, err
	}
	owner, err := c.reader.Owner(ctx)
	if err != nil {
		return nil, err
	}
	if !account.IsOwner(conn.Address, owner) {
		return nil, types.ErrNotOwner
	}
	open, err := c.reader.IsGameOpen(ctx)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, types.ErrGameStarted
	}

	c.poller.SetLoading(true)
	defer c.poller.SetLoading(false)
	receipt, err := c.writer.StartGame(ctx, maxPlayers, fee)
	if err != nil {
		clog.Error("StartGame", "maxPlayers", maxPlayers, "entryFee", entryFee, "err", err)
		return nil, err
	}
	clog.Info("StartGame", "maxPlayers", maxPlayers, "entryFee", entryFee, "tx", receipt.TxHash.Hex())
	c.refresh(ctx)
	return receipt, nil
}

// JoinGame 加入当前游戏, 支付的金额等于当前游戏的 entryFee
func (c *Client) JoinGame(ctx context.Context) (*ethtypes.Receipt, error) {
	if err := c.conn.State().Err(); err != nil {
		return nil, err
	}
	open, err := c.reader.IsGameOpen(ctx)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, types.ErrGameNotOpen
	}
	state := c.poller.State().State
	if state.Session == nil {
		// the indexer may not have the record of a just started game yet
		snap, err := c.poller.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		state = snap.State
	}
	if state.Session == nil || state.EntryFee == nil {
		return nil, errors.Wrap(types.ErrGameNotOpen, "entry fee not indexed yet")
	}
	if state.Full() {
		return nil, types.ErrGameFull
	}

	c.poller.SetLoading(true)
	defer c.poller.SetLoading(false)
	receipt, err := c.writer.JoinGame(ctx, state.EntryFee)
	if err != nil {
		clog.Error("JoinGame", "session", state.SessionID(), "err", err)
		return nil, err
	}
	clog.Info("JoinGame", "session", state.SessionID(), "fee", types.FormatCoin(state.EntryFee), "tx", receipt.TxHash.Hex())
	c.refresh(ctx)
	return receipt, nil
}

func (c *Client) refresh(ctx context.Context) {
	if _, err := c.poller.Refresh(ctx); err != nil {
		clog.Debug("refresh after write", "err", err)
	}
}

func (c *Client) isClosed() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.closed
}

// Close disconnects and releases the subscription queue
func (c *Client) Close() {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return
	}
	c.closed = true
	c.mtx.Unlock()

	c.Disconnect()
	c.cancel()
	c.q.Close()
}
