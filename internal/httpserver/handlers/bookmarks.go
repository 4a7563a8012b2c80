package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marque/internal/logger"
)

type bookmarkListResponse struct {
	Bookmarks []*domain.Bookmark `json:"bookmarks"`
	Total     int                `json:"total"`
}

// ListBookmarks returns every stored record, newest first.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookmarks, err := d.Store.GetAll(r.Context())
		if err != nil {
			d.Logger.Error("failed to list bookmarks", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		sort.Slice(bookmarks, func(i, j int) bool {
			return bookmarks[i].DateAdded > bookmarks[j].DateAdded
		})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bookmarkListResponse{
			Bookmarks: bookmarks,
			Total:     len(bookmarks),
		})
	}
}

// GetBookmark returns one record by its external bookmark id.
func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid bookmark id", http.StatusBadRequest)
			return
		}

		b, err := d.Store.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrLookupMiss) {
				http.Error(w, "bookmark not found", http.StatusNotFound)
				return
			}
			d.Logger.Error("failed to load bookmark",
				logger.Int64("bookmark_id", id),
				logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b)
	}
}
