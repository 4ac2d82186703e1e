package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

// RequestID returns the id assigned to r by withRequestID.
func RequestID(r *http.Request) string {
	return r.Header.Get(requestIDHeader)
}

// withRequestID makes sure every request carries an id and echoes it in the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		r.Header.Set(requestIDHeader, id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// stripTrailingSlash lets "/cohort/" and "/cohort/1/" route like "/cohort" and "/cohort/1".
func stripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; p != "/" && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			if r.URL.RawPath != "" {
				r.URL.RawPath = strings.TrimRight(r.URL.RawPath, "/")
			}
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one logrus entry per request.
func accessLog(log logrus.FieldLogger, next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		entry := log.WithFields(logrus.Fields{
			"method":     p.Request.Method,
			"uri":        p.URL.RequestURI(),
			"status":     p.StatusCode,
			"size":       p.Size,
			"duration":   time.Since(p.TimeStamp).String(),
			"request_id": RequestID(p.Request),
			"remote":     p.Request.RemoteAddr,
		})
		switch {
		case p.StatusCode >= http.StatusInternalServerError:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	})
}

type recoveryLogger struct {
	log logrus.FieldLogger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error(fmt.Sprintln(v...))
}

func recovery(log logrus.FieldLogger, next http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log}),
		handlers.PrintRecoveryStack(true),
	)(next)
}

func cors(origins []string, next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)(next)
}
