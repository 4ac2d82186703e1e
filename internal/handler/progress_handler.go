package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
)

type ProgressSource interface {
	Progress(id string) (service.ProgressInfo, bool)
	AllProgress() []service.ProgressInfo
	RegisterProgressListener(ch chan service.ProgressInfo)
	UnregisterProgressListener(ch chan service.ProgressInfo)
}

type ProgressHandler struct {
	source ProgressSource
	log    logrus.FieldLogger
}

func NewProgressHandler(source ProgressSource, log logrus.FieldLogger) *ProgressHandler {
	return &ProgressHandler{source: source, log: log}
}

// GetAll returns the progress of every import job.
func (h *ProgressHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.AllProgress())
}

// Get returns the progress of a single job.
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.source.Progress(mux.Vars(r)["job"])
	if !ok {
		writeError(w, r, h.log, service.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Stream pushes progress updates as Server-Sent Events until the client goes away.
// The current state of every job is sent first.
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{"streaming unsupported"})
		return
	}

	// streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ch := make(chan service.ProgressInfo, 16)
	h.source.RegisterProgressListener(ch)
	defer h.source.UnregisterProgressListener(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(p service.ProgressInfo) bool {
		data, err := json.Marshal(p)
		if err != nil {
			h.log.WithError(err).Error("marshaling progress")
			return true
		}
		if _, err = w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			h.log.WithError(err).Debug("writing SSE event")
			return false
		}
		flusher.Flush()
		return true
	}

	for _, p := range h.source.AllProgress() {
		if !send(p) {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case p := <-ch:
			if !send(p) {
				return
			}
		case <-r.Context().Done():
			h.log.WithField("request_id", RequestID(r)).Debug("progress stream closed")
			return
		}
	}
}
