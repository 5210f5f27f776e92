// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/game"
	"github.com/33cn/raffle/metrics"
	"github.com/33cn/raffle/queue"
	"github.com/33cn/raffle/types"
	go_metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerAddr = "0xa42431Da868c58877a627CC71Dc95F01bf40c196"

func init() {
	log.Discard()
}

func openSession(id string, players ...string) *types.GameSession {
	fee, _ := new(big.Int).SetString("1000000000000000000", 10)
	return &types.GameSession{ID: id, MaxPlayers: 5, EntryFee: fee, Players: players}
}

func newTestPoller(conn ConnectionSource, reader ContractReader, idx SessionSource, period time.Duration) (*Poller, *queue.Queue, *metrics.Cycle) {
	q := queue.New("test")
	m := metrics.NewCycle(go_metrics.NewRegistry())
	return NewPoller(conn, reader, idx, q, m, period), q, m
}

func openReader(open bool) *mockReader {
	r := &mockReader{}
	r.On("IsGameOpen").Return(open, nil)
	r.On("Owner").Return(ownerAddr, nil)
	return r
}

func TestRefreshAppliesState(t *testing.T) {
	p, q, _ := newTestPoller(newMockConn("0xA42431DA868C58877A627CC71DC95F01BF40C196"), openReader(true),
		staticIndexer(openSession("1", "0xAAA", "0xBBB"), nil), 0)
	defer q.Close()

	snap, err := p.Refresh(context.Background())
	require.Nil(t, err)
	assert.Equal(t, []string{
		"Game has started with ID: 1",
		"2 / 5 Players have joined",
		"0xAAA Joined",
		"0xBBB Joined",
	}, snap.State.Log)
	assert.Equal(t, uint64(1), snap.State.Generation)
	assert.True(t, snap.Role.IsOwner)
	assert.Equal(t, ownerAddr, snap.Role.Owner)
	assert.True(t, snap.Connection.Connected)
}

func TestRefreshRoleNotOwner(t *testing.T) {
	p, q, _ := newTestPoller(newMockConn("0xBe807Dddb074639cD9fA61b47676c064fc50D62C"), openReader(false), staticIndexer(nil, nil), 0)
	defer q.Close()

	snap, err := p.Refresh(context.Background())
	require.Nil(t, err)
	assert.False(t, snap.Role.IsOwner)
	assert.Empty(t, snap.State.Log)
}

func TestFailedCycleKeepsState(t *testing.T) {
	idx := staticIndexer(openSession("1", "0xAAA"), nil)
	p, q, m := newTestPoller(newMockConn(ownerAddr), openReader(true), idx, 0)
	defer q.Close()

	before, err := p.Refresh(context.Background())
	require.Nil(t, err)

	idx.set(func(context.Context, int32) (*types.GameSession, error) {
		return nil, types.ErrQuery
	})
	after, err := p.Refresh(context.Background())
	assert.True(t, errors.Is(err, types.ErrQuery))
	assert.Equal(t, before, after)
	assert.Equal(t, uint64(1), after.State.Generation)
	assert.Equal(t, int64(1), m.Failed.Count())

	// a contract read failure behaves the same way
	reader := &mockReader{}
	reader.On("IsGameOpen").Return(false, types.ErrRead)
	reader.On("Owner").Return(ownerAddr, nil)
	p.reader = reader
	idx.set(func(context.Context, int32) (*types.GameSession, error) {
		return openSession("1", "0xAAA"), nil
	})
	after, err = p.Refresh(context.Background())
	assert.True(t, errors.Is(err, types.ErrRead))
	assert.Equal(t, before, after)
}

func TestRefreshNotConnected(t *testing.T) {
	conn := newMockConn("")
	conn.set(types.ConnectionState{NetworkID: 80001})
	reader := &mockReader{}
	idx := staticIndexer(openSession("1"), nil)
	p, q, _ := newTestPoller(conn, reader, idx, 0)
	defer q.Close()

	_, err := p.Refresh(context.Background())
	assert.Equal(t, types.ErrNotConnected, err)
	reader.AssertNotCalled(t, "IsGameOpen")
	assert.Equal(t, int32(0), idx.count())
}

func TestOutOfOrderCompletion(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	idx := &funcIndexer{fn: func(ctx context.Context, call int32) (*types.GameSession, error) {
		if call == 1 {
			close(started)
			<-gate
			return openSession("1", "0xAAA"), nil
		}
		return openSession("2", "0xBBB", "0xCCC"), nil
	}}
	p, q, m := newTestPoller(newMockConn(ownerAddr), openReader(true), idx, 0)
	defer q.Close()

	older := make(chan error, 1)
	go func() {
		older <- p.runCycle(context.Background(), 1, 0)
	}()
	<-started

	require.Nil(t, p.runCycle(context.Background(), 2, 0))
	newer := p.State()
	assert.Equal(t, "2", newer.State.SessionID())

	close(gate)
	require.Nil(t, <-older)
	assert.Equal(t, newer, p.State())
	assert.Equal(t, uint64(1), p.State().State.Generation)
	assert.Equal(t, int64(1), m.Stale.Count())
	assert.Equal(t, int64(1), m.Applied.Count())
}

func TestSubscribersSeeIncreasingGenerations(t *testing.T) {
	p, q, _ := newTestPoller(newMockConn(ownerAddr), openReader(true), staticIndexer(openSession("1"), nil), 0)
	defer q.Close()
	sub := q.Client()
	sub.Sub(queue.TopicSnapshot)

	for i := 0; i < 5; i++ {
		_, err := p.Refresh(context.Background())
		require.Nil(t, err)
	}
	var last uint64
	for i := 0; i < 5; i++ {
		msg := <-sub.Recv()
		snap := msg.Data.(types.Snapshot)
		assert.Greater(t, snap.State.Generation, last)
		last = snap.State.Generation
	}
	assert.Equal(t, uint64(5), last)
}

func TestWinnerEventOnce(t *testing.T) {
	ended := &types.GameSession{ID: "1", MaxPlayers: 2, EntryFee: big.NewInt(1), Players: []string{"0xAAA", "0xBBB"}, Winner: "0xBBB"}
	idx := staticIndexer(&types.GameSession{ID: "1", MaxPlayers: 2, EntryFee: big.NewInt(1), Players: []string{"0xAAA", "0xBBB"}}, nil)
	reader := openReader(true)
	p, q, _ := newTestPoller(newMockConn(ownerAddr), reader, idx, 0)
	defer q.Close()
	events := q.Client()
	events.Sub(queue.TopicEvent)

	_, err := p.Refresh(context.Background())
	require.Nil(t, err)

	closed := openReader(false)
	p.reader = closed
	idx.set(func(context.Context, int32) (*types.GameSession, error) { return ended.Clone(), nil })
	for i := 0; i < 3; i++ {
		snap, err := p.Refresh(context.Background())
		require.Nil(t, err)
		assert.Equal(t, "Winner is: 0xBBB", snap.State.Log[1])
		assert.Equal(t, "0xBBB", snap.State.Winner)
	}

	// restart the session, the winner of game 1 is not announced again
	p.Start()
	p.Stop()
	_, err = p.Refresh(context.Background())
	require.Nil(t, err)

	var winners int
	for {
		select {
		case msg := <-events.Recv():
			if ev := msg.Data.(game.Event); ev.Type == game.EventGameEnded {
				winners++
				assert.Equal(t, "1", ev.SessionID)
				assert.Equal(t, "0xBBB", ev.Winner)
			}
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}
	assert.Equal(t, 1, winners)
}

func collectWinners(events queue.Client) map[string]string {
	winners := make(map[string]string)
	for {
		select {
		case msg := <-events.Recv():
			if ev := msg.Data.(game.Event); ev.Type == game.EventGameEnded {
				winners[ev.SessionID] = ev.Winner
			}
		case <-time.After(100 * time.Millisecond):
			return winners
		}
	}
}

func TestWinnerEventPerSessionWithInvalidRecords(t *testing.T) {
	idx := staticIndexer(&types.GameSession{ID: "1", MaxPlayers: 1, Players: []string{"0xA", "0xB"}, Winner: "0xB"}, nil)
	p, q, _ := newTestPoller(newMockConn(ownerAddr), openReader(false), idx, 0)
	defer q.Close()
	events := q.Client()
	events.Sub(queue.TopicEvent)

	_, err := p.Refresh(context.Background())
	require.Nil(t, err)

	p.reader = openReader(true)
	idx.set(func(context.Context, int32) (*types.GameSession, error) {
		return &types.GameSession{ID: "2", MaxPlayers: 1, EntryFee: big.NewInt(1)}, nil
	})
	_, err = p.Refresh(context.Background())
	require.Nil(t, err)

	p.reader = openReader(false)
	idx.set(func(context.Context, int32) (*types.GameSession, error) {
		return &types.GameSession{ID: "2", MaxPlayers: 1, Players: []string{"0xC", "0xD"}, Winner: "0xD"}, nil
	})
	snap, err := p.Refresh(context.Background())
	require.Nil(t, err)
	assert.Equal(t, "last game ended with ID: 2", snap.State.Log[0])

	assert.Equal(t, map[string]string{"1": "0xB", "2": "0xD"}, collectWinners(events))
}

func TestRefreshIndexerLagUsesContractID(t *testing.T) {
	reader := openReader(true)
	reader.gameID = "2"
	idx := staticIndexer(&types.GameSession{ID: "1", MaxPlayers: 2, Players: []string{"0xAAA"}, Winner: "0xAAA"}, nil)
	p, q, _ := newTestPoller(newMockConn(ownerAddr), reader, idx, 0)
	defer q.Close()

	snap, err := p.Refresh(context.Background())
	require.Nil(t, err)
	assert.Equal(t, []string{"Game has started with ID: 2"}, snap.State.Log)
	assert.Equal(t, "2", snap.State.SessionID())
	assert.Empty(t, snap.State.Players)
}

func TestRefreshWrongNetwork(t *testing.T) {
	conn := newMockConn("")
	conn.set(types.ConnectionState{NetworkID: 1, WrongNetwork: true})
	reader := &mockReader{}
	idx := staticIndexer(openSession("1"), nil)
	p, q, _ := newTestPoller(conn, reader, idx, 0)
	defer q.Close()

	_, err := p.Refresh(context.Background())
	assert.Equal(t, types.ErrWrongNetwork, err)
	reader.AssertNotCalled(t, "IsGameOpen")
	assert.Equal(t, int32(0), idx.count())
}

func TestPollerTicks(t *testing.T) {
	idx := staticIndexer(openSession("1"), nil)
	p, q, _ := newTestPoller(newMockConn(ownerAddr), openReader(true), idx, 10*time.Millisecond)
	defer q.Close()

	assert.False(t, p.Active())
	p.Start()
	p.Start()
	assert.True(t, p.Active())
	assert.Eventually(t, func() bool {
		return p.State().State.Generation >= 3
	}, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	assert.False(t, p.Active())
	calls := idx.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, idx.count())
	// the state is discarded with the session, generation keeps counting
	snap := p.State()
	assert.Nil(t, snap.State.Session)
	assert.Empty(t, snap.State.Log)
	assert.GreaterOrEqual(t, snap.State.Generation, uint64(3))
	p.Stop()
}

func TestStopDiscardsInFlightCycle(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	idx := &funcIndexer{fn: func(ctx context.Context, call int32) (*types.GameSession, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-gate
		return openSession("1", "0xAAA"), nil
	}}
	p, q, m := newTestPoller(newMockConn(ownerAddr), openReader(true), idx, time.Hour)
	defer q.Close()
	sub := q.Client()
	sub.Sub(queue.TopicSnapshot)

	p.Start()
	<-started
	p.Stop()
	close(gate)

	assert.Never(t, func() bool {
		return p.State().State.Session != nil
	}, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, int64(0), m.Applied.Count())

	// only the reset snapshot from Stop was published
	msg := <-sub.Recv()
	assert.Nil(t, msg.Data.(types.Snapshot).State.Session)
	select {
	case msg := <-sub.Recv():
		t.Fatalf("unexpected snapshot %v", msg.Data)
	default:
	}
}

func TestErroringCycleDoesNotDelayTicks(t *testing.T) {
	idx := staticIndexer(nil, types.ErrQuery)
	p, q, m := newTestPoller(newMockConn(ownerAddr), openReader(true), idx, 10*time.Millisecond)
	defer q.Close()

	p.Start()
	assert.Eventually(t, func() bool {
		return m.Failed.Count() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	p.Stop()
	assert.Equal(t, uint64(0), p.State().State.Generation)
}

func TestSetLoading(t *testing.T) {
	p, q, _ := newTestPoller(newMockConn(ownerAddr), openReader(true), staticIndexer(openSession("1"), nil), 0)
	defer q.Close()
	sub := q.Client()
	sub.Sub(queue.TopicSnapshot)

	p.SetLoading(true)
	assert.True(t, p.State().Loading)
	msg := <-sub.Recv()
	assert.True(t, msg.Data.(types.Snapshot).Loading)

	// unchanged flag does not republish
	p.SetLoading(true)
	p.SetLoading(false)
	msg = <-sub.Recv()
	assert.False(t, msg.Data.(types.Snapshot).Loading)
	assert.False(t, p.State().Loading)
}
