// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpc 只读的状态查询服务, 以 json 形式返回最新的快照
package rpc

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/game"
	"github.com/33cn/raffle/queue"
	"github.com/33cn/raffle/types"
	"github.com/rs/cors"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var slog = log.New("module", "rpc_status")

// StateSource 快照来源
type StateSource interface {
	State() types.Snapshot
}

// Subscriber 可以订阅快照推送的来源, 用于 /ws
type Subscriber interface {
	Subscribe(topics ...string) queue.Client
}

const streamWriteTimeout = 10 * time.Second

// StreamMessage one frame pushed on /ws
type StreamMessage struct {
	Type     string       `json:"type"`
	Snapshot *StatusReply `json:"snapshot,omitempty"`
	Event    *game.Event  `json:"event,omitempty"`
}

// StatusReply json view of a snapshot
type StatusReply struct {
	Connected    bool     `json:"connected"`
	WrongNetwork bool     `json:"wrongNetwork,omitempty"`
	Address      string   `json:"address,omitempty"`
	NetworkID    int64    `json:"networkId"`
	IsOwner      bool     `json:"isOwner"`
	Owner        string   `json:"owner,omitempty"`
	IsOpen       bool     `json:"isOpen"`
	SessionID    string   `json:"sessionId,omitempty"`
	MaxPlayers   uint64   `json:"maxPlayers"`
	EntryFee     string   `json:"entryFee"`
	EntryFeeCoin string   `json:"entryFeeCoin"`
	Players      []string `json:"players"`
	Winner       string   `json:"winner,omitempty"`
	Log          []string `json:"log"`
	Generation   uint64   `json:"generation"`
	Loading      bool     `json:"loading"`
}

// NewStatusReply flattens a snapshot
func NewStatusReply(s types.Snapshot) *StatusReply {
	reply := &StatusReply{
		Connected:    s.Connection.Connected,
		WrongNetwork: s.Connection.WrongNetwork,
		Address:      s.Connection.Address,
		NetworkID:    s.Connection.NetworkID,
		IsOwner:      s.Role.IsOwner,
		Owner:        s.Role.Owner,
		IsOpen:       s.State.IsOpen,
		SessionID:    s.State.SessionID(),
		MaxPlayers:   s.State.MaxPlayers,
		EntryFee:     "0",
		EntryFeeCoin: types.FormatCoin(s.State.EntryFee),
		Players:      s.State.Players,
		Winner:       s.State.Winner,
		Log:          s.State.Log,
		Generation:   s.State.Generation,
		Loading:      s.Loading,
	}
	if s.State.EntryFee != nil {
		reply.EntryFee = s.State.EntryFee.String()
	}
	if reply.Players == nil {
		reply.Players = []string{}
	}
	if reply.Log == nil {
		reply.Log = []string{}
	}
	return reply
}

// StatusServer serves GET /status, GET /health and the /ws snapshot stream
type StatusServer struct {
	src  StateSource
	cfg  *types.Status
	srv  *http.Server
	mtx  sync.Mutex
	l    net.Listener
	done chan struct{}
}

// NewStatusServer cfg may be nil, then every origin is allowed
func NewStatusServer(cfg *types.Status, src StateSource) *StatusServer {
	if cfg == nil {
		cfg = &types.Status{}
	}
	return &StatusServer{src: src, cfg: cfg}
}

// Handler the http handler with cors applied
func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.status)
	mux.HandleFunc("/ws", s.stream)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	origins := s.cfg.CorsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

func (s *StatusServer) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(NewStatusReply(s.src.State())); err != nil {
		slog.Error("status", "err", err)
	}
}

func (s *StatusServer) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, origin := range s.cfg.CorsOrigins {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		// patterns are matched against the origin host
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			opts.OriginPatterns = append(opts.OriginPatterns, u.Host)
		}
	}
	if len(s.cfg.CorsOrigins) == 0 {
		opts.InsecureSkipVerify = true
	}
	return opts
}

// stream pushes the current snapshot, then every published snapshot and game event
func (s *StatusServer) stream(w http.ResponseWriter, r *http.Request) {
	subscriber, ok := s.src.(Subscriber)
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		slog.Debug("ws accept", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	sub := subscriber.Subscribe(queue.TopicSnapshot, queue.TopicEvent)
	defer sub.Close()
	ctx := conn.CloseRead(r.Context())

	if err := writeFrame(ctx, conn, StreamMessage{Type: "snapshot", Snapshot: NewStatusReply(s.src.State())}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Recv():
			if !ok {
				conn.Close(websocket.StatusGoingAway, "client closed")
				return
			}
			var frame StreamMessage
			switch data := msg.Data.(type) {
			case types.Snapshot:
				frame = StreamMessage{Type: "snapshot", Snapshot: NewStatusReply(data)}
			case game.Event:
				ev := data
				frame = StreamMessage{Type: "event", Event: &ev}
			default:
				continue
			}
			if err := writeFrame(ctx, conn, frame); err != nil {
				slog.Debug("ws write", "err", err)
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame StreamMessage) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, frame)
}

// Listen starts serving on cfg.ListenAddr (or addr when set) and returns the bound address
func (s *StatusServer) Listen(addr string) (string, error) {
	if addr == "" {
		addr = s.cfg.ListenAddr
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.mtx.Lock()
	s.l = l
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.done = make(chan struct{})
	srv, done := s.srv, s.done
	s.mtx.Unlock()

	go func() {
		defer close(done)
		if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
			slog.Error("status server", "err", err)
		}
	}()
	slog.Info("status server listen", "addr", l.Addr().String())
	return l.Addr().String(), nil
}

// Close stops the server
func (s *StatusServer) Close() {
	s.mtx.Lock()
	srv, done := s.srv, s.done
	s.srv = nil
	s.mtx.Unlock()
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("status server shutdown", "err", err)
	}
	<-done
}
