package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
)

type Importer interface {
	Enqueue(ctx context.Context, cohortID uint, fileName string, data []byte) (string, error)
}

type ImportHandler struct {
	importer       Importer
	maxUploadBytes int64
	log            logrus.FieldLogger
}

func NewImportHandler(importer Importer, maxUploadBytes int64, log logrus.FieldLogger) *ImportHandler {
	return &ImportHandler{importer: importer, maxUploadBytes: maxUploadBytes, log: log}
}

type importJob struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
}

type importResponse struct {
	Message string      `json:"message"`
	Jobs    []importJob `json:"jobs"`
}

// Upload accepts one or more roster files in the "files" form field and starts
// one import job per file.
func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	cohortID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err = r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{"upload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{"invalid multipart form"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{"no files uploaded"})
		return
	}
	for _, fh := range files {
		if err = service.CheckFileName(fh.Filename); err != nil {
			writeError(w, r, h.log, err)
			return
		}
	}

	jobs := make([]importJob, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			writeError(w, r, h.log, errors.Wrapf(err, "reading upload %s", fh.Filename))
			return
		}
		id, err := h.importer.Enqueue(r.Context(), cohortID, fh.Filename, data)
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		jobs = append(jobs, importJob{ID: id, FileName: fh.Filename})
	}

	writeJSON(w, http.StatusAccepted, importResponse{
		Message: "Files uploaded successfully and processing started",
		Jobs:    jobs,
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}
