package models

import (
	"strconv"
	"strings"
)

const DefaultListLimit = 10

// SortFields maps the API field names accepted in sortBy to their column names.
var SortFields = map[string]string{
	"id":          "id",
	"title":       "title",
	"author":      "author",
	"genre":       "genre",
	"isbn":        "isbn",
	"description": "description",
	"copies":      "copies",
	"available":   "available",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

// BookQuery is a normalized list request. Build it with ParseBookQuery.
type BookQuery struct {
	Genre  Genre  // empty = all
	SortBy string // API field name, a key of SortFields
	Desc   bool
	Limit  int
}

// Column returns the SQL column for SortBy.
func (q BookQuery) Column() string { return SortFields[q.SortBy] }

// ParseBookQuery turns raw query-string values into a BookQuery.
// sort is "asc" for ascending; any other value sorts descending.
func ParseBookQuery(filter, sortBy, sort, limit string) (BookQuery, error) {
	q := BookQuery{SortBy: "createdAt", Desc: true, Limit: DefaultListLimit}
	fields := map[string]string{}

	if f := strings.TrimSpace(filter); f != "" {
		q.Genre = Genre(strings.ToUpper(f))
		if !q.Genre.Valid() {
			fields["filter"] = "filter must be one of " + genreList()
		}
	}
	if s := strings.TrimSpace(sortBy); s != "" {
		if _, ok := SortFields[s]; !ok {
			fields["sortBy"] = "unknown sort field " + strconv.Quote(s)
		}
		q.SortBy = s
	}
	q.Desc = strings.ToLower(strings.TrimSpace(sort)) != "asc"
	if l := strings.TrimSpace(limit); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			fields["limit"] = "limit must be a positive integer"
		}
		q.Limit = n
	}
	if len(fields) > 0 {
		return BookQuery{}, NewValidationError(fields)
	}
	return q, nil
}
