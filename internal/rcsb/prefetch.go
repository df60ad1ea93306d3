package rcsb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DownloadResult is the outcome of one prefetched structure.
type DownloadResult struct {
	ID   string
	Path string
	Err  error
}

// Download fetches each structure into dir as {ID}.{format}, at most
// concurrency at a time. Individual failures are reported through onDone and
// in the returned results; they do not stop the batch.
func (c *Client) Download(ctx context.Context, ids []string, dir string, concurrency int, onDone func(DownloadResult)) ([]DownloadResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]DownloadResult, len(ids))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, raw := range ids {
		id := normalizeID(raw)
		g.Go(func() error {
			res := DownloadResult{ID: id}
			text, err := c.FetchStructure(gctx, id)
			if err == nil {
				res.Path = filepath.Join(dir, fmt.Sprintf("%s.%s", id, c.cfg.Format))
				err = os.WriteFile(res.Path, []byte(text), 0o644)
			}
			if err != nil {
				res.Path = ""
				res.Err = err
				c.logger.Warn("prefetch failed", zap.String("id", id), zap.Error(err))
			}
			results[i] = res
			if onDone != nil {
				mu.Lock()
				onDone(res)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
