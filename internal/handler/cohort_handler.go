package handler

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

type CohortService interface {
	List(ctx context.Context, q model.ListQuery) ([]model.Cohort, int64, error)
	Get(ctx context.Context, id uint) (*model.Cohort, error)
	Create(ctx context.Context, req model.CohortRequest) (*model.Cohort, error)
	Update(ctx context.Context, id uint, req model.CohortRequest) (*model.Cohort, error)
	Patch(ctx context.Context, id uint, p model.CohortPatch) (*model.Cohort, error)
	Delete(ctx context.Context, id uint) error
	Students(ctx context.Context, id uint) ([]model.Student, error)
}

type CohortHandler struct {
	cohortService CohortService
	log           logrus.FieldLogger
}

func NewCohortHandler(cohortService CohortService, log logrus.FieldLogger) *CohortHandler {
	return &CohortHandler{cohortService: cohortService, log: log}
}

func (h *CohortHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r, model.CohortOrderingFields, false)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	cohorts, total, err := h.cohortService.List(r.Context(), q)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if cohorts == nil {
		cohorts = []model.Cohort{}
	}
	writeList(w, q, cohorts, total)
}

func (h *CohortHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CohortRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	cohort, err := h.cohortService.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, cohort)
}

func (h *CohortHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	cohort, err := h.cohortService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cohort)
}

func (h *CohortHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req model.CohortRequest
	if err = decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	cohort, err := h.cohortService.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cohort)
}

func (h *CohortHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var p model.CohortPatch
	if err = decodeJSON(r, &p); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	cohort, err := h.cohortService.Patch(r.Context(), id, p)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cohort)
}

func (h *CohortHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err = h.cohortService.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Students lists the students of one cohort.
func (h *CohortHandler) Students(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	students, err := h.cohortService.Students(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if students == nil {
		students = []model.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

// Subjects lists the allowed subject values with their labels.
func (h *CohortHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Subjects)
}
