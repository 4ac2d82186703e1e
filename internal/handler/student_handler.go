package handler

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

type StudentService interface {
	List(ctx context.Context, q model.ListQuery) ([]model.Student, int64, error)
	Get(ctx context.Context, id uint) (*model.Student, error)
	Create(ctx context.Context, req model.StudentRequest) (*model.Student, error)
	Update(ctx context.Context, id uint, req model.StudentRequest) (*model.Student, error)
	Patch(ctx context.Context, id uint, p model.StudentPatch) (*model.Student, error)
	Delete(ctx context.Context, id uint) error
}

type StudentHandler struct {
	studentService StudentService
	log            logrus.FieldLogger
}

func NewStudentHandler(studentService StudentService, log logrus.FieldLogger) *StudentHandler {
	return &StudentHandler{studentService: studentService, log: log}
}

// List supports ?cohort= in addition to the common list parameters.
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r, model.StudentOrderingFields, true)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	students, total, err := h.studentService.List(r.Context(), q)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if students == nil {
		students = []model.Student{}
	}
	writeList(w, q, students, total)
}

func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.StudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	student, err := h.studentService.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	student, err := h.studentService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req model.StudentRequest
	if err = decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	student, err := h.studentService.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *StudentHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var p model.StudentPatch
	if err = decodeJSON(r, &p); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	student, err := h.studentService.Patch(r.Context(), id, p)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err = h.studentService.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
