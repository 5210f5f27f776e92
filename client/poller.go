// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/33cn/raffle/account"
	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/game"
	"github.com/33cn/raffle/metrics"
	"github.com/33cn/raffle/queue"
	"github.com/33cn/raffle/types"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
)

var plog = log.New("module", "poller")

// message types carried on the queue
const (
	EventSnapshot int64 = iota + 1
	EventGame
)

const announcedCacheSize = 1024

// ContractReader 合约只读接口
type ContractReader interface {
	IsGameOpen(ctx context.Context) (bool, error)
	Owner(ctx context.Context) (string, error)
	GameID(ctx context.Context) (string, error)
}

// SessionSource 索引服务接口
type SessionSource interface {
	LatestSession(ctx context.Context) (*types.GameSession, error)
}

// ConnectionSource 钱包连接状态
type ConnectionSource interface {
	State() types.ConnectionState
}

// slot is the single snapshot cell. It is only ever replaced, by compare-and-swap,
// with a slot carrying a newer seq in the same epoch. Stop moves it to a new epoch.
type slot struct {
	snapshot types.Snapshot
	seq      uint64
	epoch    uint64
}

// Poller runs a reconciliation cycle every period while active. Ticks are not
// gated on completion, so cycles may overlap; each cycle is tagged with a
// sequence number at issue time and a result older than the applied one is dropped.
type Poller struct {
	conn    ConnectionSource
	reader  ContractReader
	indexer SessionSource
	period  time.Duration
	q       *queue.Queue
	metrics *metrics.Cycle

	current atomic.Pointer[slot]
	seq     atomic.Uint64
	loading atomic.Bool

	// pubMtx orders publication: subscribers never see an older snapshot after a newer one
	pubMtx    sync.Mutex
	published uint64
	lastState types.GameState
	announced *lru.Cache

	mtx    sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates an idle poller, period <= 0 means types.DefaultPollPeriod
func NewPoller(conn ConnectionSource, reader ContractReader, indexer SessionSource, q *queue.Queue, m *metrics.Cycle, period time.Duration) *Poller {
	if period <= 0 {
		period = types.DefaultPollPeriod
	}
	if m == nil {
		m = metrics.NewCycle(nil)
	}
	announced, err := lru.New(announcedCacheSize)
	if err != nil {
		panic(err)
	}
	p := &Poller{
		conn:      conn,
		reader:    reader,
		indexer:   indexer,
		period:    period,
		q:         q,
		metrics:   m,
		announced: announced,
	}
	p.current.Store(&slot{snapshot: types.Snapshot{State: types.GameState{Log: []string{}}}})
	return p
}

// Active the poller is scheduling cycles
func (p *Poller) Active() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.cancel != nil
}

// Start moves Idle -> Active and issues the first cycle immediately.
// Starting an active poller is a no-op.
func (p *Poller) Start() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	epoch := p.current.Load().epoch
	plog.Info("poller start", "period", p.period, "epoch", epoch)
	go p.loop(ctx, epoch, p.done)
}

// Stop moves Active -> Idle. After Stop returns no cycle is issued, no in-flight
// cycle changes the state and the state is reset for the next session.
func (p *Poller) Stop() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.nextEpoch()
	<-p.done
	p.cancel = nil
	p.done = nil
	plog.Info("poller stop")
}

func (p *Poller) nextEpoch() {
	p.pubMtx.Lock()
	defer p.pubMtx.Unlock()
	for {
		cur := p.current.Load()
		next := &slot{
			snapshot: types.Snapshot{
				State:      types.GameState{Log: []string{}, Generation: cur.snapshot.State.Generation},
				Connection: p.conn.State(),
			},
			seq:   cur.seq,
			epoch: cur.epoch + 1,
		}
		if p.current.CompareAndSwap(cur, next) {
			p.lastState = next.snapshot.State
			p.send(queue.TopicSnapshot, EventSnapshot, next.snapshot)
			return
		}
	}
}

func (p *Poller) loop(ctx context.Context, epoch uint64, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	p.issue(ctx, epoch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.issue(ctx, epoch)
		}
	}
}

func (p *Poller) issue(ctx context.Context, epoch uint64) {
	seq := p.seq.Add(1)
	p.metrics.Issued.Inc(1)
	go func() {
		err := p.runCycle(ctx, seq, epoch)
		if err == nil || ctx.Err() != nil {
			return
		}
		// a failed read is retried by the next tick
		if types.IsFetchError(err) {
			plog.Warn("cycle abandoned", "seq", seq, "err", err)
			return
		}
		plog.Error("cycle abandoned", "seq", seq, "err", err)
	}()
}

// Refresh runs one cycle synchronously in the current epoch
func (p *Poller) Refresh(ctx context.Context) (types.Snapshot, error) {
	seq := p.seq.Add(1)
	p.metrics.Issued.Inc(1)
	if err := p.runCycle(ctx, seq, p.current.Load().epoch); err != nil {
		return p.State(), err
	}
	return p.State(), nil
}

// runCycle fetches both sources concurrently and applies the merged state.
// A failed fetch leaves the state untouched.
func (p *Poller) runCycle(ctx context.Context, seq, epoch uint64) error {
	start := time.Now()
	if err := p.conn.State().Err(); err != nil {
		p.metrics.Failed.Inc(1)
		return err
	}

	var (
		isOpen  bool
		owner   string
		gameID  string
		session *types.GameSession
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		isOpen, err = p.reader.IsGameOpen(gctx)
		return err
	})
	g.Go(func() (err error) {
		owner, err = p.reader.Owner(gctx)
		return err
	})
	g.Go(func() (err error) {
		gameID, err = p.reader.GameID(gctx)
		return err
	})
	g.Go(func() (err error) {
		session, err = p.indexer.LatestSession(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.metrics.Failed.Inc(1)
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.apply(seq, epoch, isOpen, gameID, owner, session)
	p.metrics.Latency.UpdateSince(start)
	return nil
}

func (p *Poller) apply(seq, epoch uint64, isOpen bool, gameID, owner string, session *types.GameSession) bool {
	for {
		cur := p.current.Load()
		if cur.epoch != epoch || cur.seq >= seq {
			p.metrics.Stale.Inc(1)
			plog.Debug("drop stale cycle", "seq", seq, "applied", cur.seq, "epoch", epoch, "current epoch", cur.epoch)
			return false
		}
		conn := p.conn.State()
		next := &slot{
			snapshot: types.Snapshot{
				State:      game.Reconcile(cur.snapshot.State, isOpen, gameID, session),
				Role:       account.Resolve(conn, owner),
				Connection: conn,
			},
			seq:   seq,
			epoch: epoch,
		}
		if p.current.CompareAndSwap(cur, next) {
			p.metrics.Applied.Inc(1)
			p.publish(next)
			return true
		}
	}
}

func (p *Poller) publish(s *slot) {
	p.pubMtx.Lock()
	defer p.pubMtx.Unlock()
	if p.current.Load().epoch != s.epoch || s.seq <= p.published {
		return
	}
	p.published = s.seq
	snapshot := s.snapshot
	snapshot.Loading = p.loading.Load()

	for _, ev := range game.Diff(p.lastState, snapshot.State) {
		if ev.Type == game.EventGameEnded && ev.SessionID != "" {
			if ok, _ := p.announced.ContainsOrAdd(ev.SessionID, ev.Winner); ok {
				continue
			}
		}
		plog.Info("game event", "type", ev.Type, "session", ev.SessionID, "player", ev.Player, "winner", ev.Winner)
		p.send(queue.TopicEvent, EventGame, ev)
	}
	p.lastState = snapshot.State
	p.send(queue.TopicSnapshot, EventSnapshot, snapshot)
}

func (p *Poller) send(topic string, ty int64, data interface{}) {
	if p.q == nil {
		return
	}
	if err := p.q.Send(p.q.NewMessage(topic, ty, data)); err != nil {
		plog.Debug("send", "topic", topic, "err", err)
	}
}

// State latest applied snapshot
func (p *Poller) State() types.Snapshot {
	s := p.current.Load().snapshot
	s.Loading = p.loading.Load()
	return s
}

// SetLoading toggles the write-in-progress flag and republishes the current snapshot
func (p *Poller) SetLoading(loading bool) {
	if p.loading.Swap(loading) == loading {
		return
	}
	p.pubMtx.Lock()
	defer p.pubMtx.Unlock()
	p.send(queue.TopicSnapshot, EventSnapshot, p.State())
}
