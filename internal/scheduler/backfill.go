package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/logger"
	"github.com/MrSnakeDoc/marque/internal/pageinfo"
	redisstore "github.com/MrSnakeDoc/marque/internal/store/redis"
)

const (
	// DefaultBackfillBatch bounds how many records one sweep enriches.
	DefaultBackfillBatch = 20
)

// ContentFetcher is the network path used to enrich flagged records.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Backfill sweeps records whose enrichment is missing (error flag set)
// and retries the network fetch for a bounded batch per pass. Live
// event handlers never retry; this sweep is the only second chance.
type Backfill struct {
	store    *redisstore.Store
	fetcher  ContentFetcher
	logger   logger.Logger
	interval time.Duration
	batch    int
	stopCh   chan struct{}
}

// NewBackfill creates the backfill sweeper.
func NewBackfill(
	store *redisstore.Store,
	fetcher ContentFetcher,
	log logger.Logger,
	interval time.Duration,
	batch int,
) *Backfill {
	if batch <= 0 {
		batch = DefaultBackfillBatch
	}
	return &Backfill{
		store:    store,
		fetcher:  fetcher,
		logger:   log,
		interval: interval,
		batch:    batch,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (bf *Backfill) Start(ctx context.Context) error {
	ticker := time.NewTicker(bf.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := bf.Sweep(ctx); err != nil {
					bf.logger.Error("backfill sweep failed", logger.Error(err))
				}
			case <-bf.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper.
func (bf *Backfill) Stop() {
	close(bf.stopCh)
}

// Sweep enriches up to batch flagged records. Failures leave the flag
// in place for a later pass.
func (bf *Backfill) Sweep(ctx context.Context) error {
	bookmarks, err := bf.store.GetAll(ctx)
	if err != nil {
		return err
	}

	enriched := 0
	attempted := 0
	for _, b := range bookmarks {
		if b.Error == 0 || b.URL == "" {
			continue
		}
		if attempted >= bf.batch {
			break
		}
		attempted++

		if bf.enrich(ctx, b) {
			enriched++
		}
	}

	if attempted > 0 {
		bf.logger.Info("backfill sweep completed",
			logger.Int("attempted", attempted),
			logger.Int("enriched", enriched))
	} else {
		bf.logger.Debug("no records need backfill")
	}

	return nil
}

// enrich fetches and extracts metadata for one flagged record.
func (bf *Backfill) enrich(ctx context.Context, b *domain.Bookmark) bool {
	html, err := bf.fetcher.Fetch(ctx, b.URL)
	if err != nil {
		bf.logger.Debug("backfill fetch failed",
			logger.Int64("bookmark_id", b.ID),
			logger.String("url", b.URL),
			logger.Error(err))
		return false
	}

	info := pageinfo.Extract(b.URL, html)
	if err := bf.store.CachePageInfo(ctx, b.URL, info, redisstore.DefaultPageCacheTTL); err != nil {
		bf.logger.Debug("failed to cache page info", logger.Error(err))
	}

	clearFlag := 0
	patch := domain.BookmarkPatch{Error: &clearFlag}
	if info.Description != "" {
		patch.Description = &info.Description
	}
	if info.Favicon != "" {
		patch.Favicon = &info.Favicon
	}
	if info.Image != "" {
		patch.Image = &info.Image
	}
	if info.Domain != "" {
		patch.Domain = &info.Domain
	}
	if info.Type != "" {
		patch.Type = &info.Type
	}
	if len(info.Keywords) > 0 {
		patch.Keywords = &info.Keywords
	}

	if err := bf.store.Update(ctx, b.ID, patch); err != nil {
		bf.logger.Warn("failed to persist backfilled enrichment",
			logger.Int64("bookmark_id", b.ID),
			logger.Error(err))
		return false
	}

	return true
}
