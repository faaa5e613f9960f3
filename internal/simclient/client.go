// Package simclient talks to the external simulation engine and guards
// the displayed grid against out-of-order responses.
package simclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lpwan-planner/internal/heatmap"
)

// DefaultTimeout bounds one simulation round trip.
const DefaultTimeout = 30 * time.Second

// response is the engine's envelope.
type response struct {
	OK     bool          `json:"ok"`
	Result *heatmap.Data `json:"result"`
	Error  string        `json:"error"`
}

// DeliverFunc receives a simulation outcome on the goroutine that ran
// the request. Exactly one of data and err is set.
type DeliverFunc func(data *heatmap.Data, err error)

// Client posts simulation jobs to the engine. Requests are tagged with a
// monotonically increasing sequence number; a response older than the
// newest one already delivered is dropped instead of overwriting fresher
// data. In-flight requests are never cancelled by newer ones.
type Client struct {
	base   string
	h      *http.Client
	logger zerolog.Logger

	seq    atomic.Uint64
	newest atomic.Uint64
}

// New returns a client for the engine at base, e.g. "http://127.0.0.1:8001".
func New(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:   base,
		h:      &http.Client{Timeout: timeout},
		logger: log.With().Str("component", "simclient").Logger(),
	}
}

// Simulate runs the request asynchronously and invokes deliver with the
// outcome. Stale results (superseded by an already-delivered newer
// response) invoke nothing.
func (c *Client) Simulate(ctx context.Context, req Request, deliver DeliverFunc) {
	seq := c.seq.Add(1)
	reqID := uuid.NewString()
	logger := c.logger.With().Uint64("seq", seq).Str("request_id", reqID).Logger()

	go func() {
		data, err := c.post(ctx, reqID, req)
		if err != nil {
			logger.Warn().Err(err).Msg("simulation failed")
			// Errors surface without claiming the slot, so an older
			// request still in flight can deliver its grid when it
			// completes.
			if cur := c.newest.Load(); seq <= cur {
				logger.Debug().Uint64("newest", cur).Msg("stale error discarded")
				return
			}
			deliver(nil, err)
			return
		}

		// Claim the delivery slot; lose it if a newer response landed
		// first.
		for {
			cur := c.newest.Load()
			if seq <= cur {
				logger.Debug().Uint64("newest", cur).Msg("stale response discarded")
				return
			}
			if c.newest.CompareAndSwap(cur, seq) {
				break
			}
		}
		deliver(data, nil)
	}()
}

func (c *Client) post(ctx context.Context, reqID string, req Request) (*heatmap.Data, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/simulate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.h.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("simulate: engine returned %d: %s", resp.StatusCode, string(b))
	}

	var env response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.OK {
		return nil, fmt.Errorf("simulate: %s", env.Error)
	}
	if env.Result == nil || !env.Result.Valid() {
		return nil, fmt.Errorf("simulate: malformed result grid")
	}

	c.logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("rows", env.Result.Rows()).
		Int("cols", env.Result.Cols()).
		Msg("simulation complete")
	return env.Result, nil
}
