package sampledata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/stampview/pkg/logger"
)

// Columns probed through /api/filters and /api/data.
var probeColumns = []string{"machine_id", "part_number", "tool_number"}

// noMatchValue is a selection value no generated dataset contains.
const noMatchValue = "__no_such_value__"

// ProbeResult is the outcome of one /api/data request.
type ProbeResult struct {
	Selection map[string][]string
	Rows      int
	Points    int
	RowLimit  int
	Duration  time.Duration
	Err       error
}

// Label renders the selection compactly, e.g. "machine_id=M001".
func (r ProbeResult) Label() string {
	if len(r.Selection) == 0 {
		return "(empty)"
	}
	keys := make([]string, 0, len(r.Selection))
	for k := range r.Selection {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(r.Selection[k], "|"))
	}
	return strings.Join(parts, " ")
}

// ProbeReport collects every probe result.
type ProbeReport struct {
	Filters  map[string][]string
	Results  []ProbeResult
	Duration time.Duration
}

// Failed returns the number of failed probes.
func (r *ProbeReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// httpClient wraps http.Client with JSON helpers.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *httpClient) do(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var rdr io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, raw, nil
}

// Probe exercises a running dashboard service. It checks health, reads the
// filter values, then queries /api/data concurrently for single-value
// selections of every column plus an empty and a non-matching selection.
// Each response must respect X-Row-Limit and carry a strictly ascending
// series. A report is returned even when probes fail; the error then wraps
// ErrProbeFailed.
func Probe(ctx context.Context, cfg ProbeConfig) (*ProbeReport, error) {
	start := time.Now()
	log := logger.Get()
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	resp, _, err := client.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: service health check: %w", ErrProbeFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service health check failed with status %d", ErrProbeFailed, resp.StatusCode)
	}

	filters, err := fetchFilters(ctx, client)
	if err != nil {
		return nil, err
	}

	selections := probeSelections(filters)
	log.Info(ctx, "probing service",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("selections", len(selections)),
		logger.Int("workers", cfg.Workers),
	)

	report := &ProbeReport{Filters: filters, Results: make([]ProbeResult, len(selections))}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, sel := range selections {
		g.Go(func() error {
			res := probeData(gctx, client, sel)
			if cfg.Verbose {
				log.Info(gctx, "probe", logger.String("selection", res.Label()),
					logger.Int("rows", res.Rows), logger.Int("points", res.Points), logger.Any("error", res.Err))
			}
			mu.Lock()
			report.Results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(start)

	if n := report.Failed(); n > 0 {
		return report, fmt.Errorf("%w: %d of %d probes failed", ErrProbeFailed, n, len(report.Results))
	}
	return report, nil
}

func fetchFilters(ctx context.Context, client *httpClient) (map[string][]string, error) {
	resp, body, err := client.do(ctx, http.MethodGet, "/api/filters", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: filters: %w", ErrProbeFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: filters returned status %d", ErrProbeFailed, resp.StatusCode)
	}
	var raw map[string][]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: filters: %w", ErrProbeFailed, err)
	}
	out := make(map[string][]string, len(raw))
	for k, vals := range raw {
		for _, v := range vals {
			out[k] = append(out[k], fmt.Sprint(v))
		}
	}
	return out, nil
}

func probeSelections(filters map[string][]string) []map[string][]string {
	sels := []map[string][]string{
		{},
		{probeColumns[0]: {noMatchValue}},
	}
	for _, col := range probeColumns {
		for _, v := range filters[col] {
			sels = append(sels, map[string][]string{col: {v}})
		}
	}
	if machines, parts := filters[probeColumns[0]], filters[probeColumns[1]]; len(machines) > 1 && len(parts) > 0 {
		sels = append(sels, map[string][]string{
			probeColumns[0]: machines[:2],
			probeColumns[1]: parts[:1],
		})
	}
	return sels
}

type dataResponse struct {
	Rows    []map[string]any `json:"rows"`
	Average []struct {
		Timestamp string  `json:"timestamp"`
		Avg       float64 `json:"avg"`
	} `json:"average"`
}

func probeData(ctx context.Context, client *httpClient, sel map[string][]string) ProbeResult {
	res := ProbeResult{Selection: sel}
	start := time.Now()
	resp, body, err := client.do(ctx, http.MethodPost, "/api/data", sel)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	if resp.StatusCode != http.StatusOK {
		res.Err = fmt.Errorf("status %d", resp.StatusCode)
		return res
	}
	if res.RowLimit, err = strconv.Atoi(resp.Header.Get("X-Row-Limit")); err != nil {
		res.Err = fmt.Errorf("bad X-Row-Limit header: %w", err)
		return res
	}
	var payload dataResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		res.Err = err
		return res
	}
	res.Rows, res.Points = len(payload.Rows), len(payload.Average)
	res.Err = checkPayload(sel, res.RowLimit, payload)
	return res
}

func checkPayload(sel map[string][]string, limit int, p dataResponse) error {
	if p.Rows == nil || p.Average == nil {
		return errors.New("rows and average must be lists")
	}
	if len(p.Rows) > limit {
		return fmt.Errorf("%d rows exceed row limit %d", len(p.Rows), limit)
	}
	if len(sel) == 0 || slices.Contains(sel[probeColumns[0]], noMatchValue) {
		if len(p.Rows) != 0 || len(p.Average) != 0 {
			return errors.New("expected an empty payload")
		}
		return nil
	}
	var prev time.Time
	for i, pt := range p.Average {
		at, err := time.Parse(time.RFC3339Nano, pt.Timestamp)
		if err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
		if i > 0 && !prev.Before(at) {
			return fmt.Errorf("point %d is not after point %d", i, i-1)
		}
		prev = at
	}
	return nil
}
