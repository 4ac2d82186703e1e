package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

type studentListData struct {
	Search      string
	CohortID    uint
	Cohorts     []model.Cohort
	CohortNames map[uint]string
	Students    []model.Student
	Total       int64
}

type studentFormData struct {
	Action   string
	Name     string
	CohortID uint
	Cohorts  []model.Cohort
	Errors   map[string]string
}

func (s *Site) allCohorts(r *http.Request) ([]model.Cohort, error) {
	cohorts, _, err := s.cohorts.List(r.Context(), model.ListQuery{Ordering: []model.Ordering{{Field: "name", Ascending: true}}})
	return cohorts, err
}

func (s *Site) studentList(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	data := studentListData{Search: search}
	q := model.ListQuery{Search: search}
	if id, err := strconv.ParseUint(r.URL.Query().Get("cohort"), 10, 0); err == nil {
		cohortID := uint(id)
		q.CohortID = &cohortID
		data.CohortID = cohortID
	}

	var err error
	if data.Cohorts, err = s.allCohorts(r); err != nil {
		s.serverError(w, r, err)
		return
	}
	data.CohortNames = make(map[uint]string, len(data.Cohorts))
	for _, c := range data.Cohorts {
		data.CohortNames[c.ID] = c.Name
	}
	if data.Students, data.Total, err = s.students.List(r.Context(), q); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "student_list.html", "Students", data)
}

func studentRequestFrom(r *http.Request) (model.StudentRequest, studentFormData) {
	name := r.PostFormValue("name")
	form := studentFormData{Name: name}
	req := model.StudentRequest{Name: &name}
	if name == "" {
		req.Name = nil
	}
	if id, err := strconv.ParseUint(r.PostFormValue("cohort"), 10, 0); err == nil {
		cohortID := uint(id)
		req.Cohort = &cohortID
		form.CohortID = cohortID
	}
	return req, form
}

func (s *Site) studentAdd(w http.ResponseWriter, r *http.Request) {
	const action = "/admin/student/add"
	cohorts, err := s.allCohorts(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if r.Method == http.MethodGet {
		form := studentFormData{Action: action, Cohorts: cohorts}
		if id, err := strconv.ParseUint(r.URL.Query().Get("cohort"), 10, 0); err == nil {
			form.CohortID = uint(id)
		}
		s.render(w, r, http.StatusOK, "student_form.html", "Add student", form)
		return
	}

	req, form := studentRequestFrom(r)
	form.Action, form.Cohorts = action, cohorts
	if _, err = s.students.Create(r.Context(), req); err != nil {
		if flds, ok := formErrors(err); ok {
			form.Errors = flds
			s.render(w, r, http.StatusBadRequest, "student_form.html", "Add student", form)
			return
		}
		s.serverError(w, r, err)
		return
	}
	redirect(w, r, "/admin/student")
}

func (s *Site) studentChange(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	student, err := s.students.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cohorts, err := s.allCohorts(r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	action := "/admin/student/" + strconv.FormatUint(uint64(id), 10)

	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "student_form.html", "Change student", studentFormData{
			Action:   action,
			Name:     student.Name,
			CohortID: student.CohortID,
			Cohorts:  cohorts,
		})
		return
	}

	req, form := studentRequestFrom(r)
	form.Action, form.Cohorts = action, cohorts
	if _, err = s.students.Update(r.Context(), id, req); err != nil {
		if flds, ok := formErrors(err); ok {
			form.Errors = flds
			s.render(w, r, http.StatusBadRequest, "student_form.html", "Change student", form)
			return
		}
		s.fail(w, r, err)
		return
	}
	redirect(w, r, "/admin/student")
}

func (s *Site) studentDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	student, err := s.students.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "confirm_delete.html", "Delete student", deleteData{
			Kind:   "student",
			Name:   student.Name,
			Action: r.URL.Path,
			Back:   "/admin/student",
		})
		return
	}
	if err = s.students.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	redirect(w, r, "/admin/student")
}
