// =============================
// File: internal/relay/relay.go
// =============================

// Package relay prices priority tips from the relay's statistics feeds and
// submits signed transaction bundles through its block-engine endpoints.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-execkit/internal/cache"
)

// Tier names a percentile bucket in the relay's landed-tip statistics.
type Tier string

const (
	Tier25    Tier = "landed_tips_25th_percentile"
	Tier50    Tier = "landed_tips_50th_percentile"
	Tier75    Tier = "landed_tips_75th_percentile"
	Tier95    Tier = "landed_tips_95th_percentile"
	Tier99    Tier = "landed_tips_99th_percentile"
	TierEMA50 Tier = "ema_landed_tips_50th_percentile"
)

// DefaultBundleURLs are the public block-engine bundle endpoints.
var DefaultBundleURLs = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://slc.mainnet.block-engine.jito.wtf/api/v1/bundles",
}

// DefaultTipFloorURL serves the landed-tip percentile table.
const DefaultTipFloorURL = "https://bundles.jito.wtf/api/v1/bundles/tip_floor"

// Static fallback used whenever either pricing feed is unavailable.
var (
	fallbackRecipient = solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT")
	fallbackTipSOL    = decimal.RequireFromString("0.00004")
)

// Feed freshness bounds: the account list is near static, the floor table
// tracks the current tip auction.
const (
	tipAccountsTTL = 30 * time.Minute
	tipFloorTTL    = 10 * time.Second
)

// FeeQuote is a priced tip: who to pay and how much, in SOL.
type FeeQuote struct {
	Recipient solana.PublicKey
	Amount    decimal.Decimal
}

// Lamports returns the tip amount in lamports.
func (q FeeQuote) Lamports() uint64 {
	return uint64(q.Amount.Shift(9).Round(0).IntPart())
}

// Submitter prices tips and sends bundles, rotating across the bundle
// endpoints on every submission.
type Submitter struct {
	bundleURLs  []string
	tipFloorURL string
	httpClient  *http.Client
	logger      *zap.Logger

	mu   sync.Mutex
	curr int

	tipAccounts *cache.TTL[string, []string]
	tipFloor    *cache.TTL[string, map[string]float64]
}

// Option configures the submitter.
type Option func(*Submitter)

// WithBundleURLs overrides the bundle endpoint list.
func WithBundleURLs(urls []string) Option {
	return func(s *Submitter) { s.bundleURLs = urls }
}

// WithTipFloorURL overrides the tip floor feed endpoint.
func WithTipFloorURL(url string) Option {
	return func(s *Submitter) { s.tipFloorURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Submitter) { s.httpClient = client }
}

// NewSubmitter creates a submitter over the default public endpoints.
func NewSubmitter(logger *zap.Logger, opts ...Option) (*Submitter, error) {
	s := &Submitter{
		bundleURLs:  DefaultBundleURLs,
		tipFloorURL: DefaultTipFloorURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger.Named("relay"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.bundleURLs) == 0 {
		return nil, fmt.Errorf("no bundle endpoints configured")
	}
	s.tipAccounts = cache.New(tipAccountsTTL, s.fetchTipAccounts)
	s.tipFloor = cache.New(tipFloorTTL, s.fetchTipFloor)
	return s, nil
}

// nextURL advances the rotation cursor and returns the endpoint to use.
// Rotation happens on every call, not only on failure.
func (s *Submitter) nextURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	url := s.bundleURLs[s.curr]
	s.curr = (s.curr + 1) % len(s.bundleURLs)
	return url
}

// FeeQuote prices a tip for the tier. Any feed failure degrades to the
// static fallback; the caller always gets a usable quote.
func (s *Submitter) FeeQuote(ctx context.Context, tier Tier) FeeQuote {
	quote := FeeQuote{Recipient: fallbackRecipient, Amount: fallbackTipSOL}

	accounts, err := s.tipAccounts.Get(ctx, "accounts")
	if err != nil || len(accounts) == 0 {
		s.logger.Warn("tip accounts feed unavailable, using fallback", zap.Error(err))
		return quote
	}
	floor, err := s.tipFloor.Get(ctx, "floor")
	if err != nil {
		s.logger.Warn("tip floor feed unavailable, using fallback", zap.Error(err))
		return quote
	}

	amount, ok := floor[string(tier)]
	if !ok {
		s.logger.Warn("tier missing from tip floor table, using fallback",
			zap.String("tier", string(tier)))
		return quote
	}

	recipient, err := solana.PublicKeyFromBase58(accounts[0])
	if err != nil {
		s.logger.Warn("malformed tip account, using fallback",
			zap.String("account", accounts[0]), zap.Error(err))
		return quote
	}

	quote.Recipient = recipient
	quote.Amount = decimal.NewFromFloat(amount)
	return quote
}

// TipInstruction builds the system transfer paying the tier's tip.
func (s *Submitter) TipInstruction(ctx context.Context, from solana.PublicKey, tier Tier) solana.Instruction {
	quote := s.FeeQuote(ctx, tier)
	return system.NewTransferInstruction(quote.Lamports(), from, quote.Recipient).Build()
}

// SubmitBundle posts base64-encoded signed transactions as one bundle and
// returns the relay-assigned bundle id. Transport failures are logged and
// yield an empty id; the submitter never retries on its own.
func (s *Submitter) SubmitBundle(ctx context.Context, txDatas []string) string {
	url := s.nextURL()

	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params: []interface{}{
			txDatas,
			map[string]string{"encoding": "base64"},
		},
	}

	var response struct {
		Result string `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := s.postJSON(ctx, url, payload, &response); err != nil {
		s.logger.Error("bundle submission failed",
			zap.String("endpoint", url),
			zap.Int("tx_count", len(txDatas)),
			zap.Error(err))
		return ""
	}
	if response.Error != nil {
		s.logger.Error("bundle rejected by relay",
			zap.String("endpoint", url),
			zap.Int("code", response.Error.Code),
			zap.String("message", response.Error.Message))
		return ""
	}

	s.logger.Info("bundle submitted",
		zap.String("endpoint", url),
		zap.String("bundle_id", response.Result),
		zap.Int("tx_count", len(txDatas)))
	return response.Result
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

func (s *Submitter) fetchTipAccounts(ctx context.Context, _ string) ([]string, error) {
	payload := rpcRequest{JSONRPC: "2.0", ID: 1, Method: "getTipAccounts", Params: []interface{}{}}

	var response struct {
		Result []string `json:"result"`
	}
	// The account list is served by the bundle endpoints themselves.
	if err := s.postJSON(ctx, s.bundleURLs[0], payload, &response); err != nil {
		return nil, err
	}
	return response.Result, nil
}

func (s *Submitter) fetchTipFloor(ctx context.Context, _ string) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.tipFloorURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tip floor feed returned status %d", resp.StatusCode)
	}

	// The feed is a one-element array of mixed string/number fields.
	var entries []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode tip floor response: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty tip floor response")
	}

	floor := make(map[string]float64)
	for key, value := range entries[0] {
		if amount, ok := value.(float64); ok {
			floor[key] = amount
		}
	}
	return floor, nil
}

func (s *Submitter) postJSON(ctx context.Context, url string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
