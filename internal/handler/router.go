package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ImportService is what the import and progress endpoints need from the importer.
type ImportService interface {
	Importer
	ProgressSource
}

type Deps struct {
	Cohorts  CohortService
	Students StudentService
	Imports  ImportService
	// Admin is mounted under /admin when set.
	Admin http.Handler
	// Health reports whether the database is reachable.
	Health func(ctx context.Context) error

	Log            *logrus.Logger
	BaseURL        string
	CORSOrigins    []string
	MaxUploadBytes int64
}

// NewRouter builds the HTTP API with its middleware stack.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", apiRoot(d.BaseURL)).Methods("GET")
	r.HandleFunc("/health", health(d.Health)).Methods("GET")

	cohortHandler := NewCohortHandler(d.Cohorts, d.Log)
	r.HandleFunc("/cohort", cohortHandler.List).Methods("GET")
	r.HandleFunc("/cohort", cohortHandler.Create).Methods("POST")
	r.HandleFunc("/cohort/subjects", cohortHandler.Subjects).Methods("GET")
	r.HandleFunc("/cohort/{id:[0-9]+}", cohortHandler.Get).Methods("GET")
	r.HandleFunc("/cohort/{id:[0-9]+}", cohortHandler.Update).Methods("PUT")
	r.HandleFunc("/cohort/{id:[0-9]+}", cohortHandler.Patch).Methods("PATCH")
	r.HandleFunc("/cohort/{id:[0-9]+}", cohortHandler.Delete).Methods("DELETE")
	r.HandleFunc("/cohort/{id:[0-9]+}/students", cohortHandler.Students).Methods("GET")

	studentHandler := NewStudentHandler(d.Students, d.Log)
	r.HandleFunc("/student", studentHandler.List).Methods("GET")
	r.HandleFunc("/student", studentHandler.Create).Methods("POST")
	r.HandleFunc("/student/{id:[0-9]+}", studentHandler.Get).Methods("GET")
	r.HandleFunc("/student/{id:[0-9]+}", studentHandler.Update).Methods("PUT")
	r.HandleFunc("/student/{id:[0-9]+}", studentHandler.Patch).Methods("PATCH")
	r.HandleFunc("/student/{id:[0-9]+}", studentHandler.Delete).Methods("DELETE")

	if d.Imports != nil {
		importHandler := NewImportHandler(d.Imports, d.MaxUploadBytes, d.Log)
		r.HandleFunc("/cohort/{id:[0-9]+}/import", importHandler.Upload).Methods("POST")

		progressHandler := NewProgressHandler(d.Imports, d.Log)
		r.HandleFunc("/import/progress", progressHandler.GetAll).Methods("GET")
		r.HandleFunc("/import/progress/stream", progressHandler.Stream).Methods("GET")
		r.HandleFunc("/import/progress/{job}", progressHandler.Get).Methods("GET")
	}

	if d.Admin != nil {
		r.PathPrefix("/admin").Handler(d.Admin)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{"not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{"method not allowed"})
	})

	var h http.Handler = r
	h = cors(d.CORSOrigins, h)
	h = recovery(d.Log, h)
	h = accessLog(d.Log, h)
	h = withRequestID(h)
	h = stripTrailingSlash(h)
	return h
}

func apiRoot(baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := baseURL
		if base == "" {
			scheme := "http"
			if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
				scheme = "https"
			}
			base = scheme + "://" + r.Host
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"cohort":  base + "/cohort/",
			"student": base + "/student/",
		})
	}
}

func health(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
