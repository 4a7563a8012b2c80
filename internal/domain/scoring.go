package domain

import "strings"

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreTagMatch       = 60.0
	ScoreDomainMatch    = 40.0

	// Position bonus (earlier substring hits are better)
	ScorePositionBonus = 10.0
)

// Candidate pairs a bookmark with its match score for a search query.
type Candidate struct {
	Bookmark *Bookmark
	Score    float64
}

// ScoreBookmark calculates the match score for a bookmark against a
// free-text query. Title matches dominate, then tags, then domain.
func ScoreBookmark(query string, b *Bookmark) float64 {
	if b == nil {
		return 0.0
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0.0
	}

	var total float64

	title := strings.ToLower(b.Title)
	switch {
	case query == title:
		total += ScoreExactMatch
	case strings.HasPrefix(title, query):
		total += ScorePrefixMatch
	case strings.Contains(title, query):
		index := strings.Index(title, query)
		// Earlier substring matches get higher score
		total += ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(index)/float64(len(title)))
	}

	for _, tag := range b.Tags {
		tag = strings.ToLower(tag)
		if tag == query {
			total += ScoreTagMatch
			break
		}
		if strings.HasPrefix(tag, query) {
			total += ScoreTagMatch / 2
			break
		}
	}

	if b.Domain != nil && strings.Contains(strings.ToLower(*b.Domain), query) {
		total += ScoreDomainMatch
	}

	// Multi-word queries: require every word somewhere in the record.
	words := strings.Fields(query)
	if total == 0.0 && len(words) > 1 {
		haystack := title + " " + strings.ToLower(strings.Join(b.Tags, " "))
		allMatch := true
		for _, word := range words {
			if !strings.Contains(haystack, word) {
				allMatch = false
				break
			}
		}
		if allMatch {
			total = ScoreSubstringMatch / 2
		}
	}

	return total
}

// RankBookmarks ranks bookmarks against a query, dropping non-matches.
func RankBookmarks(query string, bookmarks []*Bookmark) []*Candidate {
	candidates := make([]*Candidate, 0, len(bookmarks))

	for _, b := range bookmarks {
		score := ScoreBookmark(query, b)
		if score == 0.0 {
			continue
		}
		candidates = append(candidates, &Candidate{Bookmark: b, Score: score})
	}

	sortCandidates(candidates)
	return candidates
}

// sortCandidates sorts by score descending. Insertion sort is fine for
// the list sizes a personal bookmark set produces.
func sortCandidates(candidates []*Candidate) {
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j-1].Score < candidates[j].Score; j-- {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
		}
	}
}
