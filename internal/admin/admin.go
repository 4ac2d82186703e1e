// Package admin serves the HTML administration site for cohorts and students.
package admin

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Cohorts interface {
	List(ctx context.Context, q model.ListQuery) ([]model.Cohort, int64, error)
	Get(ctx context.Context, id uint) (*model.Cohort, error)
	Create(ctx context.Context, req model.CohortRequest) (*model.Cohort, error)
	Update(ctx context.Context, id uint, req model.CohortRequest) (*model.Cohort, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type Students interface {
	List(ctx context.Context, q model.ListQuery) ([]model.Student, int64, error)
	Get(ctx context.Context, id uint) (*model.Student, error)
	Create(ctx context.Context, req model.StudentRequest) (*model.Student, error)
	Update(ctx context.Context, id uint, req model.StudentRequest) (*model.Student, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*model.AdminUser, error)
}

type Site struct {
	cohorts  Cohorts
	students Students
	auth     Authenticator
	realm    string
	log      logrus.FieldLogger

	templates map[string]*template.Template
	router    *mux.Router
}

var pages = []string{
	"index.html",
	"cohort_list.html",
	"cohort_form.html",
	"student_list.html",
	"student_form.html",
	"confirm_delete.html",
}

var funcs = template.FuncMap{
	"subjectLabel": func(s model.Subject) string { return s.Label() },
}

// New parses the embedded templates and wires the admin routes under /admin.
func New(cohorts Cohorts, students Students, auth Authenticator, realm string, log logrus.FieldLogger) (*Site, error) {
	s := &Site{
		cohorts:   cohorts,
		students:  students,
		auth:      auth,
		realm:     realm,
		log:       log,
		templates: make(map[string]*template.Template, len(pages)),
	}
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templatesFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing template %s", name)
		}
		s.templates[name] = tmpl
	}

	r := mux.NewRouter()
	r.HandleFunc("/admin", s.index).Methods("GET")

	r.HandleFunc("/admin/cohort", s.cohortList).Methods("GET")
	r.HandleFunc("/admin/cohort/add", s.cohortAdd).Methods("GET", "POST")
	r.HandleFunc("/admin/cohort/{id:[0-9]+}", s.cohortChange).Methods("GET", "POST")
	r.HandleFunc("/admin/cohort/{id:[0-9]+}/delete", s.cohortDelete).Methods("GET", "POST")

	r.HandleFunc("/admin/student", s.studentList).Methods("GET")
	r.HandleFunc("/admin/student/add", s.studentAdd).Methods("GET", "POST")
	r.HandleFunc("/admin/student/{id:[0-9]+}", s.studentChange).Methods("GET", "POST")
	r.HandleFunc("/admin/student/{id:[0-9]+}/delete", s.studentDelete).Methods("GET", "POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
	s.router = r
	return s, nil
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.sameOrigin(s.requireAuth(s.router)).ServeHTTP(w, r)
}

// sameOrigin rejects state-changing requests sent by another site. Browsers resend
// cached Basic credentials on cross-site form posts, so those must not reach a handler.
// Requests without Sec-Fetch-Site, Origin or Referer come from non-browser clients and pass.
func (s *Site) sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if !fromSameOrigin(r) {
			s.log.WithFields(logrus.Fields{
				"uri":            r.URL.RequestURI(),
				"origin":         r.Header.Get("Origin"),
				"sec_fetch_site": r.Header.Get("Sec-Fetch-Site"),
			}).Warn("cross-origin admin request rejected")
			http.Error(w, "Forbidden (cross-origin request)", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func fromSameOrigin(r *http.Request) bool {
	if site := r.Header.Get("Sec-Fetch-Site"); site != "" {
		return site == "same-origin" || site == "none"
	}
	for _, h := range []string{"Origin", "Referer"} {
		raw := r.Header.Get(h)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		return err == nil && u.Host != "" && u.Host == r.Host
	}
	return true
}

type ctxKey int

const userKey ctxKey = iota

func currentUser(ctx context.Context) *model.AdminUser {
	u, _ := ctx.Value(userKey).(*model.AdminUser)
	return u
}

// requireAuth checks HTTP Basic credentials against the admin users.
func (s *Site) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			s.challenge(w)
			return
		}
		user, err := s.auth.Authenticate(r.Context(), username, password)
		switch {
		case errors.Is(err, service.ErrAuthenticationFailed), errors.Is(err, service.ErrAccountDeactivated):
			s.log.WithField("username", username).WithError(err).Warn("admin login rejected")
			s.challenge(w)
			return
		case err != nil:
			s.serverError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (s *Site) challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+s.realm+`", charset="UTF-8"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

type page struct {
	Title string
	User  *model.AdminUser
	Data  interface{}
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data interface{}) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.serverError(w, r, errors.Errorf("unknown template %s", name))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := tmpl.ExecuteTemplate(w, "base", page{Title: title, User: currentUser(r.Context()), Data: data})
	if err != nil {
		s.log.WithError(err).WithField("template", name).Error("rendering admin page")
	}
}

func (s *Site) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithError(err).WithField("uri", r.URL.RequestURI()).Error("admin request failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// fail answers 404 for missing records and 500 for anything else.
func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	s.serverError(w, r, err)
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// formErrors extracts field messages from a validation error.
func formErrors(err error) (map[string]string, bool) {
	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		return nil, false
	}
	flds := vErr.FieldMap()
	if len(flds) == 0 {
		flds = map[string]string{"__all__": vErr.Error()}
	}
	return flds, true
}

type indexData struct {
	Cohorts  int64
	Students int64
}

func (s *Site) index(w http.ResponseWriter, r *http.Request) {
	var data indexData
	var err error
	if data.Cohorts, err = s.cohorts.Count(r.Context()); err != nil {
		s.serverError(w, r, err)
		return
	}
	if data.Students, err = s.students.Count(r.Context()); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", "Site administration", data)
}
