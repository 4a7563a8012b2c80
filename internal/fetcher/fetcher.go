// Package fetcher performs bounded single-page HTTP fetches for
// bookmark enrichment.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/utils"
)

const (
	// DefaultTimeout bounds one fetch attempt. Matches the budget the
	// orchestrator allows the network fallback path.
	DefaultTimeout = 4000 * time.Millisecond

	// maxBodyBytes caps how much of a page is read for extraction.
	maxBodyBytes = 2 << 20

	userAgent = "Mozilla/5.0 (compatible; marque/1.0)"
)

// Fetcher retrieves page content over the network.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// New creates a fetcher with the given per-request timeout.
// A zero timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Fetch returns the page body as text. Errors classify into
// domain.ErrFetchTimeout and domain.ErrFetchNetwork.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFetchNetwork, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrFetchTimeout, url)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrFetchNetwork, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status %d", domain.ErrFetchNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s", domain.ErrFetchTimeout, url)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrFetchNetwork, err)
	}

	return string(body), nil
}

// isClientTimeout catches net/http's own timeout classification, which
// does not unwrap to context.DeadlineExceeded on all paths.
func isClientTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
