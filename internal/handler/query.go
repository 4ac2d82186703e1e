package handler

import (
	"net/http"
	"strconv"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

// parseListQuery reads search, ordering, page, limit and (when withCohort) cohort.
func parseListQuery(r *http.Request, ordering map[string]string, withCohort bool) (model.ListQuery, error) {
	values := r.URL.Query()
	q := model.ListQuery{Search: values.Get("search")}

	var flds []model.FieldError
	for _, key := range []string{"page", "limit"} {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			flds = append(flds, model.FieldError{Field: key, Error: "a positive integer is required"})
			continue
		}
		if key == "page" {
			q.Page = n
		} else {
			q.Limit = n
		}
	}

	if withCohort {
		if raw := values.Get("cohort"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 0)
			if err != nil {
				flds = append(flds, model.FieldError{Field: "cohort", Error: "a valid integer is required"})
			} else {
				cohortID := uint(id)
				q.CohortID = &cohortID
			}
		}
	}

	ords, err := model.ParseOrdering(values.Get("ordering"), ordering)
	if err != nil {
		return q, err
	}
	q.Ordering = ords

	if len(flds) > 0 {
		return q, model.NewValidationError(nil, flds...)
	}
	q.Normalize()
	return q, nil
}

type page struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"totalPages"`
}

// writeList writes items as a bare array, or in a page envelope when pagination was requested.
func writeList(w http.ResponseWriter, q model.ListQuery, items interface{}, total int64) {
	if !q.Paginated() {
		writeJSON(w, http.StatusOK, items)
		return
	}
	writeJSON(w, http.StatusOK, page{
		Data:       items,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: model.TotalPages(total, q.Limit),
	})
}
