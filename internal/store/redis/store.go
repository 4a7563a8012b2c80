// Package redis persists enriched bookmark records as JSON documents
// keyed by the external bookmark id, with a set of all ids alongside.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marque/internal/domain"
)

// Store handles Redis operations for bookmark records and the page
// metadata cache.
type Store struct {
	client *goredis.Client
	now    func() time.Time
}

// NewStore creates a new Redis store.
func NewStore(client *goredis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

// isoNow formats the current time as an ISO-8601 string. Nanosecond
// precision keeps updatedAt strictly increasing across rapid writes.
func (s *Store) isoNow() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// Create persists a new bookmark record. CreatedAt/UpdatedAt are
// stamped by the store when the caller left them empty.
func (s *Store) Create(ctx context.Context, b *domain.Bookmark) error {
	if b.CreatedAt == "" {
		b.CreatedAt = s.isoNow()
	}
	b.UpdatedAt = s.isoNow()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("%w: marshal bookmark %d: %v", domain.ErrStoreWrite, b.ID, err)
	}

	key := BookmarkKey(b.ID)

	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: save bookmark %d: %v", domain.ErrStoreWrite, b.ID, err)
	}
	if err := s.client.SAdd(ctx, AllBookmarksKey(), b.ID).Err(); err != nil {
		return fmt.Errorf("%w: index bookmark %d: %v", domain.ErrStoreWrite, b.ID, err)
	}

	return nil
}

// GetByID retrieves a bookmark record. A missing record reports
// domain.ErrLookupMiss.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%w: bookmark %d", domain.ErrLookupMiss, id)
		}
		return nil, fmt.Errorf("failed to get bookmark %d: %w", id, err)
	}

	var b domain.Bookmark
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark %d: %w", id, err)
	}

	return &b, nil
}

// GetAll retrieves every stored bookmark record. Records that cannot
// be read back are skipped rather than failing the whole listing.
func (s *Store) GetAll(ctx context.Context) ([]*domain.Bookmark, error) {
	ids, err := s.client.SMembers(ctx, AllBookmarksKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}

	bookmarks := make([]*domain.Bookmark, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		b, err := s.GetByID(ctx, id)
		if err != nil {
			continue
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, nil
}

// Update applies a merge patch to a stored record. Only supplied
// fields change; UpdatedAt is refreshed here, never by the caller,
// so the timestamp stays monotonic under concurrent partial updates.
func (s *Store) Update(ctx context.Context, id int64, patch domain.BookmarkPatch) error {
	b, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	applyPatch(b, patch)
	b.UpdatedAt = s.isoNow()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("%w: marshal bookmark %d: %v", domain.ErrStoreWrite, id, err)
	}
	if err := s.client.Set(ctx, BookmarkKey(id), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: update bookmark %d: %v", domain.ErrStoreWrite, id, err)
	}

	return nil
}

// Remove deletes a bookmark record. Removing a non-existent id is not
// an error.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.client.Del(ctx, BookmarkKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: delete bookmark %d: %v", domain.ErrStoreWrite, id, err)
	}
	if err := s.client.SRem(ctx, AllBookmarksKey(), id).Err(); err != nil {
		return fmt.Errorf("%w: unindex bookmark %d: %v", domain.ErrStoreWrite, id, err)
	}
	return nil
}

// UpdateFolders rewrites folderName on every record currently filed
// under oldName. Used when a folder itself is renamed.
func (s *Store) UpdateFolders(ctx context.Context, oldName, newName string) error {
	bookmarks, err := s.GetAll(ctx)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	touched := 0
	for _, b := range bookmarks {
		if b.FolderName != oldName {
			continue
		}
		b.FolderName = newName
		b.UpdatedAt = s.isoNow()

		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("%w: marshal bookmark %d: %v", domain.ErrStoreWrite, b.ID, err)
		}
		pipe.Set(ctx, BookmarkKey(b.ID), data, 0)
		touched++
	}

	if touched == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: rename folder %q -> %q: %v", domain.ErrStoreWrite, oldName, newName, err)
	}

	return nil
}

// CreateMany persists multiple records in one pipeline (reconciliation).
func (s *Store) CreateMany(ctx context.Context, bookmarks []*domain.Bookmark) error {
	pipe := s.client.Pipeline()

	for _, b := range bookmarks {
		if b.CreatedAt == "" {
			b.CreatedAt = s.isoNow()
		}
		b.UpdatedAt = s.isoNow()

		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("%w: marshal bookmark %d: %v", domain.ErrStoreWrite, b.ID, err)
		}
		pipe.Set(ctx, BookmarkKey(b.ID), data, 0)
		pipe.SAdd(ctx, AllBookmarksKey(), b.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: save bookmarks: %v", domain.ErrStoreWrite, err)
	}

	return nil
}

func applyPatch(b *domain.Bookmark, p domain.BookmarkPatch) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.URL != nil {
		b.URL = *p.URL
	}
	if p.Tags != nil {
		b.Tags = *p.Tags
	}
	if p.FolderID != nil {
		b.FolderID = *p.FolderID
	}
	if p.FolderName != nil {
		b.FolderName = *p.FolderName
	}
	if p.Description != nil {
		b.Description = p.Description
	}
	if p.Favicon != nil {
		b.Favicon = p.Favicon
	}
	if p.Image != nil {
		b.Image = p.Image
	}
	if p.Domain != nil {
		b.Domain = p.Domain
	}
	if p.Type != nil {
		b.Type = p.Type
	}
	if p.Keywords != nil {
		b.Keywords = *p.Keywords
	}
	if p.Favorite != nil {
		b.Favorite = *p.Favorite
	}
	if p.Error != nil {
		b.Error = *p.Error
	}
}
