// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package invoker provides Agent Invoker implementations: an HTTP client for a
// remote research agent service and a scripted invoker that replays canned
// results from a YAML file.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/company-research/internal/httputil"
	"github.com/pdiddy/company-research/pkg/types"
)

const researchPath = "/v1/research"

// HTTPInvoker calls a research agent service. Each call POSTs the topic and
// queries as JSON to <Endpoint>/v1/research and decodes the partial record.
type HTTPInvoker struct {
	Client  *http.Client
	Company string
	Config  types.AgentConfig
}

// NewHTTPInvoker returns an invoker for cfg.Endpoint. The client timeout is
// cfg.Timeout; the orchestrator's per-call timeout applies on top of it.
func NewHTTPInvoker(company string, cfg types.AgentConfig) (*HTTPInvoker, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("agent endpoint is not configured")
	}
	return &HTTPInvoker{
		Client:  &http.Client{Timeout: cfg.Timeout},
		Company: company,
		Config:  cfg,
	}, nil
}

type researchRequest struct {
	Company    string   `json:"company"`
	Topic      string   `json:"topic"`
	Queries    []string `json:"queries"`
	Refinement bool     `json:"refinement"`
}

// researchResponse is the agent's reply. A field mapped to null was looked
// for and not found; a field left out was not attempted.
type researchResponse struct {
	Record     map[string]any `json:"record"`
	Sources    []string       `json:"sources"`
	Confidence *float64       `json:"confidence"`
}

// Invoke implements orchestrator.Invoker.
func (h *HTTPInvoker) Invoke(ctx context.Context, topic types.Topic, queries []string, refinement bool) (types.AgentResult, error) {
	body, err := json.Marshal(researchRequest{
		Company:    h.Company,
		Topic:      string(topic),
		Queries:    queries,
		Refinement: refinement,
	})
	if err != nil {
		return types.AgentResult{}, fmt.Errorf("encoding request: %w", err)
	}

	url := strings.TrimRight(h.Config.Endpoint, "/") + researchPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.AgentResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.Config.UserAgent != "" {
		req.Header.Set("User-Agent", h.Config.UserAgent)
	}
	if h.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.Config.APIKey)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, h.Config.MaxRetries)
	if err != nil {
		return types.AgentResult{}, fmt.Errorf("agent request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.AgentResult{}, fmt.Errorf("agent returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var rr researchResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return types.AgentResult{}, fmt.Errorf("parsing agent response: %w", err)
	}
	if rr.Confidence == nil {
		return types.AgentResult{}, fmt.Errorf("agent response has no confidence")
	}

	return types.AgentResult{
		Record:     types.RecordFromMap(rr.Record),
		Sources:    rr.Sources,
		Confidence: *rr.Confidence,
	}, nil
}
