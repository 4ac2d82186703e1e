package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

type cohortListData struct {
	Search  string
	Cohorts []model.Cohort
	Total   int64
}

type cohortFormData struct {
	Action   string
	Name     string
	Subject  string
	Subjects []model.SubjectChoice
	Errors   map[string]string
}

type deleteData struct {
	Kind    string
	Name    string
	Cascade bool
	Action  string
	Back    string
}

func routeID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 0)
	return uint(id), err == nil && id > 0
}

func (s *Site) cohortList(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	cohorts, total, err := s.cohorts.List(r.Context(), model.ListQuery{Search: search})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "cohort_list.html", "Cohorts", cohortListData{Search: search, Cohorts: cohorts, Total: total})
}

func cohortRequestFrom(r *http.Request) (model.CohortRequest, cohortFormData) {
	name, subject := r.PostFormValue("name"), r.PostFormValue("subject")
	form := cohortFormData{Name: name, Subject: subject, Subjects: model.Subjects}
	req := model.CohortRequest{Name: &name, Subject: &subject}
	if name == "" {
		req.Name = nil
	}
	if subject == "" {
		req.Subject = nil
	}
	return req, form
}

func (s *Site) cohortAdd(w http.ResponseWriter, r *http.Request) {
	const action = "/admin/cohort/add"
	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "cohort_form.html", "Add cohort", cohortFormData{Action: action, Subjects: model.Subjects})
		return
	}

	req, form := cohortRequestFrom(r)
	form.Action = action
	if _, err := s.cohorts.Create(r.Context(), req); err != nil {
		if flds, ok := formErrors(err); ok {
			form.Errors = flds
			s.render(w, r, http.StatusBadRequest, "cohort_form.html", "Add cohort", form)
			return
		}
		s.serverError(w, r, err)
		return
	}
	redirect(w, r, "/admin/cohort")
}

func (s *Site) cohortChange(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	cohort, err := s.cohorts.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	action := "/admin/cohort/" + strconv.FormatUint(uint64(id), 10)

	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "cohort_form.html", "Change cohort", cohortFormData{
			Action:   action,
			Name:     cohort.Name,
			Subject:  string(cohort.Subject),
			Subjects: model.Subjects,
		})
		return
	}

	req, form := cohortRequestFrom(r)
	form.Action = action
	if _, err = s.cohorts.Update(r.Context(), id, req); err != nil {
		if flds, ok := formErrors(err); ok {
			form.Errors = flds
			s.render(w, r, http.StatusBadRequest, "cohort_form.html", "Change cohort", form)
			return
		}
		s.fail(w, r, err)
		return
	}
	redirect(w, r, "/admin/cohort")
}

func (s *Site) cohortDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	cohort, err := s.cohorts.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "confirm_delete.html", "Delete cohort", deleteData{
			Kind:    "cohort",
			Name:    cohort.Name,
			Cascade: true,
			Action:  r.URL.Path,
			Back:    "/admin/cohort",
		})
		return
	}
	if err = s.cohorts.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.WithField("cohort", id).Info("cohort deleted from admin")
	redirect(w, r, "/admin/cohort")
}
