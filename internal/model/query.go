package model

import (
	"fmt"
	"math"
	"strings"
)

type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses "-name,id" into orderings. Fields are mapped through allowed
// (query name -> column); anything else is a validation error.
func ParseOrdering(raw string, allowed map[string]string) ([]Ordering, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []Ordering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		column, ok := allowed[field]
		if !ok {
			return nil, NewValidationError(nil, FieldError{
				Field: "ordering",
				Error: fmt.Sprintf("cannot order by %q", field),
			})
		}
		out = append(out, Ordering{Field: column, Ascending: !descending})
	}
	return out, nil
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// ListQuery holds the filters shared by list endpoints. Page and Limit are 0 when unpaginated.
type ListQuery struct {
	Search   string
	Ordering []Ordering
	Page     int
	Limit    int
	CohortID *uint
}

func (q ListQuery) Paginated() bool { return q.Page > 0 || q.Limit > 0 }

// Normalize fills pagination defaults when pagination was requested.
func (q *ListQuery) Normalize() {
	q.Search = strings.TrimSpace(q.Search)
	if !q.Paginated() {
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
}

// Offset is the number of rows before the page. It saturates instead of overflowing.
func (q ListQuery) Offset() int {
	if !q.Paginated() || q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

var (
	CohortOrderingFields  = map[string]string{"id": "id", "name": "name", "subject": "subject"}
	StudentOrderingFields = map[string]string{"id": "id", "name": "name", "cohort": "cohort_id"}
)
