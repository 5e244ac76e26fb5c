package domain

import (
	"math"
	"net/url"
	"slices"
	"strings"
	"unicode"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// A tag equal to the term
	ScoreTagMatch = 40.0

	// Term found only in description, notes or path
	ScoreTextMatch = 15.0

	// Whole query equal to the title (huge boost)
	ScoreExactTitleBonus = 200.0
)

// Ranked is a bookmark with its relevance score.
type Ranked struct {
	Bookmark Bookmark `json:"bookmark"`
	Score    float64  `json:"score"`
}

// ParseTerms splits a search input into lowercase terms.
// Example: "  GitHub  docs " -> ["github", "docs"]
func ParseTerms(input string) []string {
	return strings.Fields(strings.ToLower(input))
}

// ScoreBookmark scores a bookmark against the query terms. Every term has
// to match somewhere or the score is 0.
func ScoreBookmark(terms []string, b Bookmark) float64 {
	if len(terms) == 0 {
		return 0.0
	}

	titleWords := words(b.Title)
	host, path := splitURL(b.URL)
	hostFrags := hostFragments(host)
	text := strings.ToLower(b.Description + " " + b.Notes + " " + path)

	var total float64
	for _, term := range terms {
		best := 0.0
		for i, w := range titleWords {
			best = max(best, scoreFragment(term, w, i))
		}
		for i, h := range hostFrags {
			best = max(best, scoreFragment(term, h, i))
		}
		if slices.Contains(b.Tags, term) {
			best = max(best, ScoreTagMatch)
		}
		if best == 0 && strings.Contains(text, term) {
			best = ScoreTextMatch
		}
		if best == 0 {
			return 0.0
		}
		total += best
	}

	if strings.Join(terms, " ") == strings.ToLower(strings.TrimSpace(b.Title)) {
		total += ScoreExactTitleBonus
	}
	return total
}

// RankBookmarks returns the bookmarks matching query, best first. Equal
// scores keep the input order.
func RankBookmarks(query string, bookmarks []Bookmark) []Ranked {
	terms := ParseTerms(query)
	if len(terms) == 0 {
		return nil
	}

	ranked := make([]Ranked, 0, len(bookmarks))
	for _, b := range bookmarks {
		score := ScoreBookmark(terms, b)
		// Skip bookmarks with zero score (no match)
		if score == 0.0 {
			continue
		}
		ranked = append(ranked, Ranked{Bookmark: b, Score: score})
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

// scoreFragment scores a single term against a title word or hostname label.
func scoreFragment(term, frag string, position int) float64 {
	term = normalizeFragment(term)
	frag = normalizeFragment(frag)

	if term == "" || frag == "" {
		return 0.0
	}

	// Exact match
	if term == frag {
		return ScoreExactMatch + calculatePositionBonus(position)
	}

	// Prefix match
	if strings.HasPrefix(frag, term) {
		return ScorePrefixMatch + calculatePositionBonus(position)
	}

	// Substring match
	if index := strings.Index(frag, term); index >= 0 {
		// Earlier substring matches get higher score
		substringBonus := ScorePositionBonus * (1.0 - float64(index)/float64(len(frag)))
		return ScoreSubstringMatch + substringBonus
	}

	// Fuzzy match
	similarity := calculateSimilarity(term, frag)
	if similarity > 0.5 {
		return ScoreFuzzyMatch * similarity
	}

	return 0.0
}

// calculatePositionBonus gives bonus for earlier positions
func calculatePositionBonus(position int) float64 {
	return ScorePositionBonus * math.Exp(-float64(position)*0.3)
}

// calculateSimilarity is the ratio of characters of s1 present in s2.
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0.0
	}

	matches, total := 0, 0
	for _, c := range s1 {
		total++
		if strings.ContainsRune(s2, c) {
			matches++
		}
	}

	return float64(matches) / float64(total)
}

// normalizeFragment keeps lowercase letters and digits.
func normalizeFragment(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitURL returns the lowercase hostname and path of raw. A URL without a
// scheme is read as a bare host.
func splitURL(raw string) (host, path string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", strings.ToLower(raw)
	}
	if u.Host == "" {
		return "", strings.ToLower(raw)
	}
	return strings.ToLower(u.Hostname()), strings.ToLower(u.Path)
}

// hostFragments splits a hostname into labels, without "www".
// Example: "www.docs.example.com" -> ["docs", "example", "com"]
func hostFragments(host string) []string {
	if host == "" {
		return nil
	}
	frags := strings.Split(host, ".")
	if frags[0] == "www" {
		frags = frags[1:]
	}
	return frags
}
