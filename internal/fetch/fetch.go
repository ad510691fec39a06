// Package fetch downloads chapter page images into memory. Pages come
// back in reading order regardless of which worker finished first.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Deadly1ne/ChapBuddy/internal/ui"
)

const (
	downloadAttempts = 3
	downloadTimeout  = 30 * time.Second
	maxImageBytes    = 64 << 20
)

type Fetcher struct {
	client *http.Client
	now    func() time.Time
}

func New(c *http.Client) *Fetcher {
	return &Fetcher{client: c, now: time.Now}
}

type pageState struct {
	mu        sync.Mutex
	donePages int
	doneBytes int64
}

// Pages downloads every URL concurrently and returns the image bytes in
// the same order as urls. Any page failing all attempts fails the whole
// chapter; a partially downloaded chapter is worthless.
func (f *Fetcher) Pages(
	ctx context.Context,
	urls []string,
	referer string,
	maxParallel int,
	ph *ui.ProgressHandle,
) ([][]byte, int64, error) {

	total := len(urls)
	if total == 0 {
		return nil, 0, nil
	}

	if maxParallel < 1 {
		maxParallel = 1
	}
	if maxParallel > total {
		maxParallel = total
	}

	ps := &pageState{}
	if ph != nil {
		ph.Update(0, total, 0)
	}

	pages := make([][]byte, total)
	errs := make([]error, total)

	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			data, err := f.fetchWithRetry(ctx, urls[i], referer)
			if err != nil {
				errs[i] = fmt.Errorf("page %d: %w", i+1, err)
			} else {
				pages[i] = data
			}

			ps.mu.Lock()
			ps.donePages++
			ps.doneBytes += int64(len(data))
			if ph != nil {
				ph.Update(ps.donePages, total, ps.doneBytes)
			}
			ps.mu.Unlock()
		}
	}

	wg.Add(maxParallel)
	for w := 0; w < maxParallel; w++ {
		go worker()
	}

	for i := range urls {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			if ph != nil {
				ph.MarkDone()
			}
			return nil, ps.doneBytes, ctx.Err()
		case jobs <- i:
		}
	}

	close(jobs)
	wg.Wait()
	if ph != nil {
		ph.MarkDone()
	}

	for _, err := range errs {
		if err != nil {
			return nil, ps.doneBytes, err
		}
	}

	return pages, ps.doneBytes, nil
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, url, referer string) ([]byte, error) {
	var err error
	for attempt := 1; attempt <= downloadAttempts; attempt++ {
		var data []byte
		data, err = f.fetch(ctx, url, referer)
		if err == nil {
			return data, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	return nil, err
}

func (f *Fetcher) fetch(ctx context.Context, u, referer string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", cacheBust(u, f.now()), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); !strings.HasPrefix(mt, "image/") {
			return nil, fmt.Errorf("unexpected MIME: %s", ct)
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	return data, nil
}

// cacheBust appends a timestamp query parameter so CDN edges hand back a
// fresh copy instead of a truncated cached one.
func cacheBust(u string, now time.Time) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "t=" + strconv.FormatInt(now.Unix(), 10)
}
