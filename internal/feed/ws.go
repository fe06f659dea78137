package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSConfig configures a live log subscription.
type WSConfig struct {
	// WSURL is the websocket RPC endpoint.
	WSURL string
	// RPCURL is the HTTP RPC endpoint, used to resolve block times. Empty
	// disables resolution and batches carry the local receive time instead.
	RPCURL string
	// Program is the base58 program address whose logs are streamed.
	Program string
	// Commitment level for the subscription.
	Commitment string

	ReconnectDelay time.Duration
}

// WSSource streams finalized transaction logs mentioning one program over a
// logsSubscribe subscription. Disconnects trigger resubscription, which can
// replay transactions; dedup is the consumer's job.
type WSSource struct {
	cfg    WSConfig
	logger *zap.Logger
	client *http.Client

	conn *websocket.Conn

	// Block times repeat heavily within a slot, so the last lookup is kept.
	lastSlot uint64
	lastTime int64
}

func NewWSSource(cfg WSConfig, logger *zap.Logger) *WSSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "finalized"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	return &WSSource{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type logsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string          `json:"signature"`
				Err       json.RawMessage `json:"err"`
				Logs      []string        `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

func (s *WSSource) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.WSURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.WSURL, err)
	}

	sub := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []any{
			map[string]any{"mentions": []string{s.cfg.Program}},
			map[string]any{"commitment": s.cfg.Commitment},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	// The subscription id ack; its contents are not needed.
	if _, _, err := conn.ReadMessage(); err != nil {
		conn.Close()
		return fmt.Errorf("subscription ack: %w", err)
	}

	s.conn = conn
	s.logger.Info("log subscription established",
		zap.String("endpoint", s.cfg.WSURL),
		zap.String("program", s.cfg.Program),
		zap.String("commitment", s.cfg.Commitment),
	)
	return nil
}

// Next blocks until the next transaction's logs arrive. Read errors tear the
// connection down and reconnect after a delay rather than surfacing to the
// caller; only context cancellation ends the stream.
func (s *WSSource) Next(ctx context.Context) (LogBatch, error) {
	for {
		if err := ctx.Err(); err != nil {
			return LogBatch{}, err
		}
		if s.conn == nil {
			if err := s.connect(ctx); err != nil {
				s.logger.Warn("feed connect failed", zap.Error(err))
				if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
					return LogBatch{}, ctx.Err()
				}
				continue
			}
		}

		// Bound the read so context cancellation is observed; the connection
		// is torn down and redialed after any read error, deadline included.
		if deadline, ok := ctx.Deadline(); ok {
			s.conn.SetReadDeadline(deadline)
		} else {
			s.conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		}

		var note logsNotification
		if err := s.conn.ReadJSON(&note); err != nil {
			s.logger.Warn("feed read failed, reconnecting", zap.Error(err))
			s.conn.Close()
			s.conn = nil
			if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
				return LogBatch{}, ctx.Err()
			}
			continue
		}
		if note.Method != "logsNotification" {
			continue
		}

		value := note.Params.Result.Value
		slot := note.Params.Result.Context.Slot
		return LogBatch{
			Slot:      slot,
			Signature: value.Signature,
			BlockTime: s.blockTime(ctx, slot),
			Failed:    len(value.Err) > 0 && string(value.Err) != "null",
			Logs:      value.Logs,
		}, nil
	}
}

// blockTime resolves the cluster timestamp of a slot via getBlockTime. On
// failure or when no HTTP endpoint is configured it falls back to local
// receive time, which is close enough at the finalized commitment.
func (s *WSSource) blockTime(ctx context.Context, slot uint64) int64 {
	if slot == s.lastSlot && s.lastTime != 0 {
		return s.lastTime
	}
	if s.cfg.RPCURL == "" {
		return time.Now().Unix()
	}

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: "getBlockTime", Params: []any{slot}})
	if err != nil {
		return time.Now().Unix()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.RPCURL, bytes.NewReader(body))
	if err != nil {
		return time.Now().Unix()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("block time fetch failed", zap.Uint64("slot", slot), zap.Error(err))
		return time.Now().Unix()
	}
	defer resp.Body.Close()

	var out struct {
		Result *int64 `json:"result"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil || out.Result == nil {
		return time.Now().Unix()
	}
	s.lastSlot, s.lastTime = slot, *out.Result
	return *out.Result
}

func (s *WSSource) Close() error {
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
