// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package invoker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/company-research/internal/httputil"
	"github.com/pdiddy/company-research/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func TestHTTPInvoker_Invoke(t *testing.T) {
	var got researchRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/research", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "company-research/test", r.Header.Get("User-Agent"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"record": {"revenue": "$10M", "profitability": null, "competitors": ["Globex"]},
			"sources": ["https://sec.example/10k"],
			"confidence": 0.7
		}`))
	}))
	defer ts.Close()

	inv, err := NewHTTPInvoker("Acme", types.AgentConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "company-research/test"},
		Endpoint:   ts.URL + "/",
		APIKey:     "secret",
	})
	require.NoError(t, err)

	res, err := inv.Invoke(context.Background(), types.TopicFinancial, []string{"Acme revenue"}, true)
	require.NoError(t, err)

	assert.Equal(t, researchRequest{
		Company: "Acme", Topic: "financial", Queries: []string{"Acme revenue"}, Refinement: true,
	}, got)
	assert.Equal(t, types.Present("$10M"), res.Record.Get("revenue"))
	assert.Equal(t, types.FieldEmpty, res.Record.Get("profitability").State)
	assert.Equal(t, types.FieldAbsent, res.Record.Get("funding").State)
	assert.Equal(t, types.Present([]any{"Globex"}), res.Record.Get("competitors"))
	assert.Equal(t, []string{"https://sec.example/10k"}, res.Sources)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
}

func TestHTTPInvoker_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		errMsg  string
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "model overloaded", http.StatusInternalServerError)
			},
			errMsg: "HTTP 500: model overloaded",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"record": [`))
			},
			errMsg: "parsing agent response",
		},
		{
			name: "missing confidence",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"record": {}}`))
			},
			errMsg: "no confidence",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			inv, err := NewHTTPInvoker("Acme", types.AgentConfig{Endpoint: ts.URL})
			require.NoError(t, err)

			_, err = inv.Invoke(context.Background(), types.TopicMarket, nil, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestHTTPInvoker_RetriesGatewayErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"record": {"ceo": "Jane Doe"}, "sources": [], "confidence": 0.5}`))
	}))
	defer ts.Close()

	inv, err := NewHTTPInvoker("Acme", types.AgentConfig{Endpoint: ts.URL, MaxRetries: 2})
	require.NoError(t, err)

	res, err := inv.Invoke(context.Background(), types.TopicLeadership, []string{"Acme CEO"}, false)
	require.NoError(t, err)
	assert.Equal(t, types.Present("Jane Doe"), res.Record.Get("ceo"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewHTTPInvoker_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPInvoker("Acme", types.AgentConfig{})
	assert.Error(t, err)
}

const testScript = `topics:
  financial:
    - record:
        revenue: $10M
      sources: ["https://sec.example/10k"]
      confidence: 0.6
    - record:
        profitability: 12% margin
        revenue: null
      confidence: 0.9
  market:
    - error: market agent down
  signals:
    - delay: 1h
`

func writeScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScript), 0o644))
	return path
}

func TestScriptInvoker_StepsThenRepeatsLast(t *testing.T) {
	inv, err := LoadScript(writeScript(t))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := inv.Invoke(ctx, types.TopicFinancial, []string{"Acme revenue"}, false)
	require.NoError(t, err)
	assert.Equal(t, types.Present("$10M"), first.Record.Get("revenue"))
	assert.Equal(t, []string{"https://sec.example/10k"}, first.Sources)

	for i := 0; i < 2; i++ {
		res, err := inv.Invoke(ctx, types.TopicFinancial, []string{"Acme margin"}, true)
		require.NoError(t, err)
		assert.Equal(t, types.Present("12% margin"), res.Record.Get("profitability"))
		assert.Equal(t, types.FieldEmpty, res.Record.Get("revenue").State)
		assert.InDelta(t, 0.9, res.Confidence, 1e-9)
	}

	calls := inv.Calls()
	require.Len(t, calls, 3)
	assert.False(t, calls[0].Refinement)
	assert.Equal(t, []string{"Acme margin"}, calls[2].Queries)
}

func TestScriptInvoker_Failures(t *testing.T) {
	inv, err := LoadScript(writeScript(t))
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), types.TopicMarket, nil, false)
	assert.EqualError(t, err, "market agent down")

	_, err = inv.Invoke(context.Background(), types.TopicLeadership, nil, false)
	assert.Error(t, err, "unscripted topic must fail")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = inv.Invoke(ctx, types.TopicSignals, nil, false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoadScript_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadScript(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("topics:\n  weather:\n    - confidence: 1\n"), 0o644))
	_, err = LoadScript(bad)
	assert.ErrorContains(t, err, "unknown topic")
}
