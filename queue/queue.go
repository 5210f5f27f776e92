// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package queue 多对多消息队列, 轮询模块发布快照, 展示层订阅
//
//	client := q.Client()
//	client.Sub(queue.TopicSnapshot)
//	for msg := range client.Recv() {
//	    process(msg)
//	}
package queue

import (
	"sync"
	"sync/atomic"

	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/types"
	"github.com/google/uuid"
)

// DefaultChanBuffer 每个订阅者的缓冲大小
const DefaultChanBuffer = 64

// topics
const (
	TopicSnapshot = "snapshot"
	TopicEvent    = "event"
)

var (
	qlog = log.New("module", "queue")
	gid  int64
)

// Message 队列中传递的消息
type Message struct {
	Topic string
	Ty    int64
	ID    int64
	Data  interface{}
}

// Client 订阅者
type Client interface {
	ID() string
	Sub(topic string)
	Recv() <-chan Message
	Close()
}

// Queue publishes messages to every client subscribed to the topic.
// Send never blocks: a subscriber that falls behind loses its oldest buffered
// snapshot. Events are only dropped when nothing but events is buffered.
type Queue struct {
	name    string
	mu      sync.RWMutex
	subs    map[string]map[string]*client
	clients map[string]*client
	closed  bool
}

// New new queue
func New(name string) *Queue {
	return &Queue{
		name:    name,
		subs:    make(map[string]map[string]*client),
		clients: make(map[string]*client),
	}
}

// Client 创建新的订阅者
func (q *Queue) Client() Client {
	c := &client{
		q:    q,
		id:   uuid.New().String(),
		recv: make(chan Message, DefaultChanBuffer),
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		c.closed = true
		close(c.recv)
		return c
	}
	q.clients[c.id] = c
	return c
}

// NewMessage 生成带有自增 id 的消息
func (q *Queue) NewMessage(topic string, ty int64, data interface{}) Message {
	return Message{
		Topic: topic,
		Ty:    ty,
		ID:    atomic.AddInt64(&gid, 1),
		Data:  data,
	}
}

// Send 发送消息给订阅了该 topic 的所有订阅者
func (q *Queue) Send(msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return types.ErrIsClosed
	}
	for _, c := range q.subs[msg.Topic] {
		c.deliver(msg)
	}
	return nil
}

// Close 关闭队列以及所有订阅者
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for _, c := range q.clients {
		c.closed = true
		close(c.recv)
	}
	q.subs = nil
	q.clients = nil
	qlog.Debug("queue closed", "name", q.name)
}

func (q *Queue) sub(c *client, topic string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || c.closed {
		return
	}
	if q.subs[topic] == nil {
		q.subs[topic] = make(map[string]*client)
	}
	q.subs[topic][c.id] = c
}

func (q *Queue) unsub(c *client) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || c.closed {
		return
	}
	c.closed = true
	for _, clients := range q.subs {
		delete(clients, c.id)
	}
	delete(q.clients, c.id)
	close(c.recv)
}

type client struct {
	q      *Queue
	id     string
	mu     sync.Mutex
	recv   chan Message
	closed bool
}

func (c *client) ID() string {
	return c.id
}

func (c *client) Sub(topic string) {
	c.q.sub(c, topic)
}

func (c *client) Recv() <-chan Message {
	return c.recv
}

func (c *client) Close() {
	c.q.unsub(c)
}

// deliver is called with the queue read lock held, so recv is never closed under it.
// c.mu makes deliver the only sender, the receiver can only shrink the buffer.
func (c *client) deliver(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case c.recv <- msg:
		return
	default:
	}
	pending := make([]Message, 0, cap(c.recv)+1)
	for drained := false; !drained; {
		select {
		case m := <-c.recv:
			pending = append(pending, m)
		default:
			drained = true
		}
	}
	pending = append(pending, msg)
	for len(pending) > cap(c.recv) {
		pending = c.dropOne(pending)
	}
	for _, m := range pending {
		c.recv <- m
	}
}

// dropOne removes the oldest snapshot, or the oldest message when only events are buffered
func (c *client) dropOne(pending []Message) []Message {
	idx := 0
	for i, m := range pending {
		if m.Topic == TopicSnapshot {
			idx = i
			break
		}
	}
	old := pending[idx]
	if old.Topic == TopicSnapshot {
		qlog.Debug("drop message for slow subscriber", "client", c.id, "topic", old.Topic, "id", old.ID)
	} else {
		qlog.Warn("drop message for slow subscriber", "client", c.id, "topic", old.Topic, "id", old.ID)
	}
	return append(pending[:idx], pending[idx+1:]...)
}
