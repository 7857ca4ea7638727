package diary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ryosukesatoh/programme-feed/internal/retry"
)

// maxDiarySize caps how much of a remote diary is read.
const maxDiarySize = 10 << 20

// RemoteSource fetches a YAML diary over HTTP each time showings are
// requested, so edits to the published diary are picked up on the next run.
type RemoteSource struct {
	url         string
	loc         *time.Location
	client      *http.Client
	retryConfig retry.Config
	maxSize     int64
}

func NewRemoteSource(url string, defaultLoc *time.Location) *RemoteSource {
	return &RemoteSource{
		url:         url,
		loc:         defaultLoc,
		client:      &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.DefaultConfig(),
		maxSize:     maxDiarySize,
	}
}

func (r *RemoteSource) Showings(ctx context.Context, start, end time.Time) ([]Showing, error) {
	var data []byte
	err := retry.WithBackoff(ctx, r.retryConfig, func(ctx context.Context) error {
		var err error
		data, err = r.fetch(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("diary: fetch %s: %w", r.url, err)
	}

	src, err := ParseFile(data, r.loc)
	if err != nil {
		return nil, fmt.Errorf("diary: %s: %w", r.url, err)
	}
	return src.Showings(ctx, start, end)
}

func (r *RemoteSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/yaml, text/yaml, text/plain")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > r.maxSize {
		return nil, retry.Permanent(fmt.Errorf("diary exceeds %d bytes", r.maxSize))
	}
	return body, nil
}
