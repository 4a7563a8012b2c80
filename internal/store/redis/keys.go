package redis

import (
	"fmt"
	"strconv"
)

const (
	// KeyPrefixBookmark is the prefix for bookmark record keys
	KeyPrefixBookmark = "marque:bookmark:"
	// KeyAllBookmarks is the key for the set of all bookmark IDs
	KeyAllBookmarks = "marque:bookmarks:all"
	// KeyPrefixPageCache is the prefix for cached page metadata
	KeyPrefixPageCache = "marque:pagecache:"
)

// BookmarkKey returns the Redis key for a bookmark record by ID
func BookmarkKey(id int64) string {
	return KeyPrefixBookmark + strconv.FormatInt(id, 10)
}

// AllBookmarksKey returns the key for the set of all bookmark IDs
func AllBookmarksKey() string {
	return KeyAllBookmarks
}

// PageCacheKey returns the Redis key for cached page metadata by URL
func PageCacheKey(url string) string {
	return KeyPrefixPageCache + url
}

// ExtractBookmarkID extracts the bookmark ID from a Redis key
func ExtractBookmarkID(key string) (int64, error) {
	if len(key) <= len(KeyPrefixBookmark) {
		return 0, fmt.Errorf("invalid bookmark key: %s", key)
	}
	return strconv.ParseInt(key[len(KeyPrefixBookmark):], 10, 64)
}
