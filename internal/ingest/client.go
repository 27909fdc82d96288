package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/AngelCh415/bidopt/internal/utils"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// Fetcher pulls input tables from remote URLs, the alternative to a direct
// file upload. Retries with exponential backoff on transport errors and
// non-2xx responses.
type Fetcher struct {
	c        HTTPClient
	log      *slog.Logger
	backoff  utils.Backoff
	maxBytes int64
}

func NewFetcher(c HTTPClient, log *slog.Logger, maxBytes int64) *Fetcher {
	return &Fetcher{
		c:        c,
		log:      log,
		backoff:  utils.NewBackoff(100*time.Millisecond, 2),
		maxBytes: maxBytes,
	}
}

func (f *Fetcher) FetchCSV(ctx context.Context, url string) (Table, error) {
	b, err := f.fetch(ctx, url)
	if err != nil {
		return Table{}, err
	}
	return ReadCSV(bytes.NewReader(b))
}

func (f *Fetcher) FetchXLSX(ctx context.Context, url string) (Table, error) {
	b, err := f.fetch(ctx, url)
	if err != nil {
		return Table{}, err
	}
	return ReadXLSX(bytes.NewReader(b))
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("empty url")
	}
	var body []byte
	err := f.backoff.Do(func(i int) error {
		if i > 0 {
			f.log.Debug("retrying fetch", slog.String("url", url), slog.Int("attempt", i))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := f.c.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(b))
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
