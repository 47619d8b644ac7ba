// =============================
// File: internal/relay/relay_test.go
// =============================
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTipAccount = solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh")

// newBundleServer serves getTipAccounts and sendBundle, recording which
// endpoint instance handled each bundle.
func newBundleServer(t *testing.T, bundleID string, hits *[]string, name string, mu *sync.Mutex) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req.Method {
		case "getTipAccounts":
			fmt.Fprintf(w, `{"result":[%q]}`, testTipAccount.String())
		case "sendBundle":
			mu.Lock()
			*hits = append(*hits, name)
			mu.Unlock()
			fmt.Fprintf(w, `{"result":%q}`, bundleID)
		default:
			t.Errorf("unexpected method %q", req.Method)
		}
	}))
}

func newTipFloorServer(t *testing.T, tip95 float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"time":"2024-01-01T00:00:00Z","landed_tips_25th_percentile":0.00001,"landed_tips_95th_percentile":%g,"ema_landed_tips_50th_percentile":0.00002}]`, tip95)
	}))
}

func TestFeeQuoteFromFeeds(t *testing.T) {
	var hits []string
	var mu sync.Mutex
	bundle := newBundleServer(t, "id", &hits, "a", &mu)
	defer bundle.Close()
	floor := newTipFloorServer(t, 0.0005)
	defer floor.Close()

	s, err := NewSubmitter(zap.NewNop(),
		WithBundleURLs([]string{bundle.URL}),
		WithTipFloorURL(floor.URL))
	require.NoError(t, err)

	quote := s.FeeQuote(context.Background(), Tier95)
	assert.Equal(t, testTipAccount, quote.Recipient)
	assert.Equal(t, uint64(500_000), quote.Lamports())
}

func TestFeeQuoteFallbackWhenFeedsDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	s, err := NewSubmitter(zap.NewNop(),
		WithBundleURLs([]string{down.URL}),
		WithTipFloorURL(down.URL))
	require.NoError(t, err)

	quote := s.FeeQuote(context.Background(), Tier95)
	assert.Equal(t, fallbackRecipient, quote.Recipient)
	assert.Equal(t, uint64(40_000), quote.Lamports())
}

func TestFeeQuoteFallbackOnMissingTier(t *testing.T) {
	var hits []string
	var mu sync.Mutex
	bundle := newBundleServer(t, "id", &hits, "a", &mu)
	defer bundle.Close()
	floor := newTipFloorServer(t, 0.0005)
	defer floor.Close()

	s, err := NewSubmitter(zap.NewNop(),
		WithBundleURLs([]string{bundle.URL}),
		WithTipFloorURL(floor.URL))
	require.NoError(t, err)

	// The test floor table has no 99th percentile entry.
	quote := s.FeeQuote(context.Background(), Tier99)
	assert.Equal(t, fallbackRecipient, quote.Recipient)
}

func TestTipInstructionTransfersQuotedAmount(t *testing.T) {
	var hits []string
	var mu sync.Mutex
	bundle := newBundleServer(t, "id", &hits, "a", &mu)
	defer bundle.Close()
	floor := newTipFloorServer(t, 0.0001)
	defer floor.Close()

	s, err := NewSubmitter(zap.NewNop(),
		WithBundleURLs([]string{bundle.URL}),
		WithTipFloorURL(floor.URL))
	require.NoError(t, err)

	from := solana.NewWallet().PublicKey()
	ix := s.TipInstruction(context.Background(), from, Tier95)

	assert.Equal(t, solana.SystemProgramID, ix.ProgramID())
	accounts := ix.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, from, accounts[0].PublicKey)
	assert.Equal(t, testTipAccount, accounts[1].PublicKey)
}

func TestSubmitBundleReturnsID(t *testing.T) {
	var hits []string
	var mu sync.Mutex
	bundle := newBundleServer(t, "bundle-123", &hits, "a", &mu)
	defer bundle.Close()

	s, err := NewSubmitter(zap.NewNop(), WithBundleURLs([]string{bundle.URL}))
	require.NoError(t, err)

	id := s.SubmitBundle(context.Background(), []string{"dGVzdA=="})
	assert.Equal(t, "bundle-123", id)
}

func TestSubmitBundleRotatesEveryCall(t *testing.T) {
	var hits []string
	var mu sync.Mutex
	a := newBundleServer(t, "id-a", &hits, "a", &mu)
	defer a.Close()
	b := newBundleServer(t, "id-b", &hits, "b", &mu)
	defer b.Close()

	s, err := NewSubmitter(zap.NewNop(), WithBundleURLs([]string{a.URL, b.URL}))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		s.SubmitBundle(context.Background(), []string{"dGVzdA=="})
	}

	assert.Equal(t, []string{"a", "b", "a", "b"}, hits,
		"rotation is unconditional, one step per submission")
}

func TestSubmitBundleTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s, err := NewSubmitter(zap.NewNop(), WithBundleURLs([]string{server.URL}))
	require.NoError(t, err)

	id := s.SubmitBundle(context.Background(), []string{"dGVzdA=="})
	assert.Empty(t, id, "transport failure yields an empty id, not an error")
}

func TestSubmitBundleRelayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":-32600,"message":"bundle too large"}}`)
	}))
	defer server.Close()

	s, err := NewSubmitter(zap.NewNop(), WithBundleURLs([]string{server.URL}))
	require.NoError(t, err)

	id := s.SubmitBundle(context.Background(), []string{"dGVzdA=="})
	assert.Empty(t, id)
}

func TestNewSubmitterRequiresEndpoints(t *testing.T) {
	_, err := NewSubmitter(zap.NewNop(), WithBundleURLs(nil))
	assert.Error(t, err)
}
