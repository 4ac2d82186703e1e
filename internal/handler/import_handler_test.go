package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
)

func multipartRequest(t *testing.T, target string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportUpload(t *testing.T) {
	imports := new(mockImportService)
	imports.On("Enqueue", mock.Anything, uint(4), "roster.csv", []byte("name\nAda\n")).Return("job-1", nil)
	router := newTestRouter(nil, nil, imports)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, "/cohort/4/import/", map[string]string{"roster.csv": "name\nAda\n"}))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"message":"Files uploaded successfully and processing started","jobs":[{"id":"job-1","file_name":"roster.csv"}]}`, rec.Body.String())
	imports.AssertExpectations(t)
}

func TestImportUploadErrors(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]string
		setup      func(m *mockImportService)
		wantStatus int
	}{
		{
			name:       "no files",
			files:      map[string]string{},
			setup:      func(m *mockImportService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported extension",
			files:      map[string]string{"roster.pdf": "%PDF"},
			setup:      func(m *mockImportService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "unknown cohort",
			files: map[string]string{"roster.csv": "name\n"},
			setup: func(m *mockImportService) {
				m.On("Enqueue", mock.Anything, uint(4), "roster.csv", mock.Anything).Return("", service.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imports := new(mockImportService)
			tt.setup(imports)

			rec := httptest.NewRecorder()
			newTestRouter(nil, nil, imports).ServeHTTP(rec, multipartRequest(t, "/cohort/4/import", tt.files))

			assert.Equal(t, tt.wantStatus, rec.Code)
			imports.AssertExpectations(t)
		})
	}
}

func TestImportUploadNotMultipart(t *testing.T) {
	rec := do(t, newTestRouter(nil, nil, new(mockImportService)), http.MethodPost, "/cohort/4/import", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid multipart form"}`, rec.Body.String())
}
