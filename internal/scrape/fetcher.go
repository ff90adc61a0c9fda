package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/legalwatchdog/platform/pkg/textextract"
)

// Fetcher downloads a source document and normalizes it to plain text.
type Fetcher struct {
	client       *http.Client
	maxBodyBytes int64
}

func NewFetcher(timeout time.Duration, maxBodyBytes int64) *Fetcher {
	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		maxBodyBytes: maxBodyBytes,
	}
}

type FetchResult struct {
	Text        string
	ContentType string
	Pages       int
	FetchedAt   time.Time
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "legalwatchdog-scraper/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("fetch %s: body exceeds %d bytes", url, f.maxBodyBytes)
	}

	doc, err := textextract.FromBytes(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}

	return &FetchResult{
		Text:        doc.Content,
		ContentType: doc.Format,
		Pages:       doc.Pages,
		FetchedAt:   time.Now().UTC(),
	}, nil
}
