// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package indexer queries the subgraph that mirrors the game contract events.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/33cn/raffle/common/log"
	"github.com/33cn/raffle/types"
	"github.com/pkg/errors"
)

var ilog = log.New("module", "indexer")

// LatestGameQuery most recently created game
const LatestGameQuery = `query {
  games(orderBy: id, orderDirection: desc, first: 1) {
    id
    maxPlayers
    entryFee
    winner
    players
  }
}`

// maxResponseSize guards against a misbehaving endpoint
const maxResponseSize = 4 << 20

// Client GraphQL client of the indexer
type Client struct {
	url     string
	timeout time.Duration
	http    *http.Client
}

// NewClient timeout 为 0 时只依赖底层传输的超时
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, timeout: timeout, http: &http.Client{}}
}

type request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// gameRecord wire shape of the subgraph Game entity; BigInt fields arrive as strings
type gameRecord struct {
	ID         string      `json:"id"`
	MaxPlayers json.Number `json:"maxPlayers"`
	EntryFee   json.Number `json:"entryFee"`
	Winner     *string     `json:"winner"`
	Players    []string    `json:"players"`
}

type gamesData struct {
	Games []gameRecord `json:"games"`
}

// Query runs one GraphQL query and decodes its data into result
func (c *Client) Query(ctx context.Context, query string, variables map[string]interface{}, result interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	body, err := json.Marshal(&request{Query: query, Variables: variables})
	if err != nil {
		return errors.Wrapf(types.ErrQuery, "marshal: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(types.ErrQuery, "new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(types.ErrQuery, "post: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.Wrapf(types.ErrQuery, "read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(types.ErrQuery, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var res response
	if err := json.Unmarshal(data, &res); err != nil {
		return errors.Wrapf(types.ErrQuery, "decode response: %v", err)
	}
	if len(res.Errors) > 0 {
		msgs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			msgs = append(msgs, e.Message)
		}
		return errors.Wrapf(types.ErrQuery, "graphql: %s", strings.Join(msgs, "; "))
	}
	if len(res.Data) == 0 || string(res.Data) == "null" {
		return errors.Wrap(types.ErrQuery, "empty data")
	}
	if err := json.Unmarshal(res.Data, result); err != nil {
		return errors.Wrapf(types.ErrQuery, "decode data: %v", err)
	}
	return nil
}

// LatestSession returns the most recently indexed game, nil when none was indexed yet
func (c *Client) LatestSession(ctx context.Context) (*types.GameSession, error) {
	var data gamesData
	if err := c.Query(ctx, LatestGameQuery, nil, &data); err != nil {
		ilog.Debug("LatestSession", "err", err)
		return nil, err
	}
	if len(data.Games) == 0 {
		return nil, nil
	}
	return data.Games[0].toSession()
}

func (g *gameRecord) toSession() (*types.GameSession, error) {
	if g.ID == "" {
		return nil, errors.Wrap(types.ErrQuery, "game without id")
	}
	s := &types.GameSession{
		ID:      g.ID,
		Players: g.Players,
	}
	if g.MaxPlayers != "" {
		n, ok := new(big.Int).SetString(g.MaxPlayers.String(), 10)
		if !ok || n.Sign() < 0 || !n.IsUint64() {
			return nil, errors.Wrapf(types.ErrQuery, "game %s: maxPlayers %q", g.ID, g.MaxPlayers)
		}
		s.MaxPlayers = n.Uint64()
	}
	s.EntryFee = new(big.Int)
	if g.EntryFee != "" {
		if _, ok := s.EntryFee.SetString(g.EntryFee.String(), 10); !ok || s.EntryFee.Sign() < 0 {
			return nil, errors.Wrapf(types.ErrQuery, "game %s: entryFee %q", g.ID, g.EntryFee)
		}
	}
	if g.Winner != nil {
		s.Winner = *g.Winner
	}
	if s.Players == nil {
		s.Players = []string{}
	}
	return s, nil
}

// String 调试输出
func (c *Client) String() string {
	return fmt.Sprintf("indexer(%s)", c.url)
}
