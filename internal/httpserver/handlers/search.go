package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marque/internal/logger"
)

const defaultSearchLimit = 20

type searchResult struct {
	Bookmark *domain.Bookmark `json:"bookmark"`
	Score    float64          `json:"score"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
}

// Search ranks stored records against the query across title, tags and
// domain.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			http.Error(w, "missing query parameter q", http.StatusBadRequest)
			return
		}

		limit := defaultSearchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		bookmarks, err := d.Store.GetAll(r.Context())
		if err != nil {
			d.Logger.Error("failed to load bookmarks for search", logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		candidates := domain.RankBookmarks(query, bookmarks)
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}

		d.Logger.Debug("search request",
			logger.String("query", query),
			logger.Int("results", len(candidates)))

		results := make([]searchResult, 0, len(candidates))
		for _, c := range candidates {
			results = append(results, searchResult{Bookmark: c.Bookmark, Score: c.Score})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResponse{
			Query:   query,
			Results: results,
		})
	}
}
