package store

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Matcher decides how a filter parameter is translated into a predicate.
type Matcher int

const (
	// MatchSubstring is a case-insensitive substring match.
	MatchSubstring Matcher = iota
	// MatchExact is a plain equality match.
	MatchExact
)

// FieldMatchers is the per-entity table of supported filter parameters.
// Parameters not listed here are ignored.
type FieldMatchers map[string]Matcher

var (
	BookFilters = FieldMatchers{
		"title":    MatchSubstring,
		"author":   MatchSubstring,
		"types":    MatchExact,
		"language": MatchExact,
	}

	UserFilters = FieldMatchers{
		"firstName": MatchSubstring,
		"lastName":  MatchSubstring,
		"email":     MatchSubstring,
	}

	LibraryFilters = FieldMatchers{
		"name": MatchSubstring,
	}
)

// Entity-specific default sort orders, applied when the sort parameter is
// absent or empty.
var (
	BookDefaultSort    = bson.D{{Key: "title", Value: 1}}
	UserDefaultSort    = bson.D{{Key: "firstName", Value: 1}, {Key: "lastName", Value: 1}}
	LibraryDefaultSort = bson.D{{Key: "name", Value: 1}}
	LoanDefaultSort    = bson.D{{Key: "loanDate", Value: -1}}
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListParams is the parsed form of a list request: a filter document, a sort
// document and clamped pagination values. TextQuery, when set, replaces the
// field filters with a full-text search sorted by relevance (books only).
type ListParams struct {
	Filter    bson.M
	Sort      bson.D
	Page      int
	Limit     int
	TextQuery string
}

// ParseListParams builds ListParams from raw query parameters using the
// entity's filter table and default sort. Non-numeric or out-of-range page
// and limit values fall back to their defaults; limit is capped at MaxLimit.
func ParseListParams(qs url.Values, fields FieldMatchers, defaultSort bson.D) ListParams {
	filter := bson.M{}
	for field, matcher := range fields {
		value := strings.TrimSpace(qs.Get(field))
		if value == "" {
			continue
		}
		switch matcher {
		case MatchSubstring:
			filter[field] = primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
		case MatchExact:
			filter[field] = value
		}
	}

	page := readInt(qs, "page", DefaultPage)
	if page < 1 {
		page = DefaultPage
	}

	return ListParams{
		Filter: filter,
		Sort:   ParseSort(qs.Get("sort"), defaultSort),
		Page:   page,
		Limit:  clamp(readInt(qs, "limit", DefaultLimit), 1, MaxLimit),
	}
}

// ParseSort translates a comma-separated field list into a sort document.
// A leading '-' marks descending order.
func ParseSort(raw string, fallback bson.D) bson.D {
	if raw == "" {
		return fallback
	}
	var sort bson.D
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:]
		}
		if field == "" {
			continue
		}
		order := 1
		if descending {
			order = -1
		}
		sort = append(sort, bson.E{Key: field, Value: order})
	}
	if len(sort) == 0 {
		return fallback
	}
	return sort
}

// Skip returns the number of documents to skip for the current page.
func (p ListParams) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// TotalPages returns ceil(total/limit).
func (p ListParams) TotalPages(total int64) int {
	return int(math.Ceil(float64(total) / float64(p.Limit)))
}

func readInt(qs url.Values, key string, fallback int) int {
	s := qs.Get(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func clamp(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
