package reportapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dailyreport/infrastructure/cache"
	"dailyreport/reporting"
)

// ErrStatus wraps every non-2xx backend response.
var ErrStatus = errors.New("unexpected backend status")

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	LookupTTL  time.Duration
	FanOut     int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the reporting backend. It implements reporting.Fetcher and
// reporting.Loader.
type Client struct {
	baseURL string
	http    *http.Client
	fanOut  int
	logger  *slog.Logger

	processes *cache.LookupCache[map[reporting.ID]string]
	groups    *cache.LookupCache[map[reporting.ID]string]
	projects  *cache.LookupCache[map[reporting.ID]Project]
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fanOut := opts.FanOut
	if fanOut <= 0 {
		fanOut = reporting.DefaultFetchConcurrency
	}
	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		fanOut:  fanOut,
		logger:  logger,
	}
	c.processes = cache.NewLookupCache(opts.LookupTTL, c.loadProcesses)
	c.groups = cache.NewLookupCache(opts.LookupTTL, c.loadGroups)
	c.projects = cache.NewLookupCache(opts.LookupTTL, c.loadProjects)
	return c
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %w %d: %s", path, ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// dateParams sends a single "date" unless an end date is set, in which case
// the range goes as startDate/endDate.
func dateParams(p reporting.Params) url.Values {
	q := url.Values{}
	switch {
	case !p.Start.IsZero() && !p.End.IsZero():
		q.Set("startDate", reporting.FormatAPIDate(p.Start))
		q.Set("endDate", reporting.FormatAPIDate(p.End))
	case !p.Start.IsZero():
		q.Set("date", reporting.FormatAPIDate(p.Start))
	}
	return q
}
