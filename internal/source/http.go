package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
	"github.com/Mr-Dark-debug/timelineview/pkg/jsonutil"
)

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("unexpected response status")

// StatusError describes a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: %d", ErrStatus, e.Code)
	}
	return fmt.Sprintf("%v: %d: %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// maxResponseSize bounds the decoded response body.
const maxResponseSize = 8 << 20

// envelopeKeys are the object keys accepted around the entry list.
var envelopeKeys = []string{"data", "entries", "timelines"}

// HTTPFetcher retrieves entries from a timeline API:
//
//	GET {BaseURL}/api/timelines?groupName=<group>
//
// The response is a JSON array of entries, or an object carrying the array
// under "data", "entries" or "timelines".
type HTTPFetcher struct {
	BaseURL   string
	Client    *http.Client
	Limiter   *rate.Limiter
	UserAgent string
}

// NewHTTPFetcher returns a fetcher for baseURL allowing rps requests per
// second with the given burst. A non-positive rps disables limiting.
func NewHTTPFetcher(baseURL string, timeout time.Duration, rps float64, burst int) *HTTPFetcher {
	f := &HTTPFetcher{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    &http.Client{Timeout: timeout},
		UserAgent: "timelineview",
	}
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		f.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return f
}

// FetchTimelineEntries implements Fetcher.
func (f *HTTPFetcher) FetchTimelineEntries(ctx context.Context, group string) ([]timeline.Entry, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	endpoint := f.BaseURL + "/api/timelines?" + url.Values{"groupName": {group}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %q: %w", group, err)
	}
	req.Header.Set("Accept", "application/json")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching timelines for %q: %w", group, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("fetching timelines for %q: %w", group,
			&StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading timelines for %q: %w", group, err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("reading timelines for %q: response exceeds %d bytes", group, maxResponseSize)
	}

	entries, err := jsonutil.DecodeList[timeline.Entry](body, envelopeKeys...)
	if err != nil {
		return nil, fmt.Errorf("decoding timelines for %q: %w", group, err)
	}
	return entries, nil
}
