package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ChristopherDuggan/django-rest-framework/internal/logger"
	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
)

func TestProgressGet(t *testing.T) {
	job := service.ProgressInfo{ID: "job-1", CohortID: 1, FileName: "roster.csv", Status: service.StatusProcessing}
	imports := new(mockImportService)
	imports.On("AllProgress").Return([]service.ProgressInfo{job})
	imports.On("Progress", "job-1").Return(job, true)
	imports.On("Progress", "nope").Return(service.ProgressInfo{}, false)
	router := newTestRouter(nil, nil, imports)

	rec := do(t, router, http.MethodGet, "/import/progress", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var all []service.ProgressInfo
	decode(t, rec, &all)
	assert.Len(t, all, 1)

	rec = do(t, router, http.MethodGet, "/import/progress/job-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var got service.ProgressInfo
	decode(t, rec, &got)
	assert.Equal(t, "roster.csv", got.FileName)
	assert.Equal(t, service.StatusProcessing, got.Status)

	rec = do(t, router, http.MethodGet, "/import/progress/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProgressStream(t *testing.T) {
	imports := &mockImportService{listeners: make(chan chan service.ProgressInfo, 1)}
	imports.On("AllProgress").Return([]service.ProgressInfo{{ID: "old", Status: service.StatusCompleted}})
	imports.On("RegisterProgressListener", mock.Anything).Return()
	imports.On("UnregisterProgressListener", mock.Anything).Return()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/import/progress/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewProgressHandler(imports, logger.Discard()).Stream(rec, req)
	}()

	var ch chan service.ProgressInfo
	select {
	case ch = <-imports.listeners:
	case <-time.After(time.Second):
		t.Fatal("listener was never registered")
	}
	ch <- service.ProgressInfo{ID: "new", Status: service.StatusProcessing, Processed: 2}

	// once received, the event is written before the handler looks at ctx again
	require.Eventually(t, func() bool { return len(ch) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	events := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, events, 2)
	assert.True(t, strings.HasPrefix(events[0], `data: {"id":"old"`))
	assert.Contains(t, events[1], `"id":"new"`)
	assert.Contains(t, events[1], `"processed":2`)
	imports.AssertCalled(t, "UnregisterProgressListener", ch)
}
