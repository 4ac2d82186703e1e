package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/config"
	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

type ImportStatus string

const (
	StatusQueued     ImportStatus = "queued"
	StatusProcessing ImportStatus = "processing"
	StatusCompleted  ImportStatus = "completed"
	StatusError      ImportStatus = "error"
)

// ProgressInfo tracks one roster import job.
type ProgressInfo struct {
	ID           string       `json:"id"`
	CohortID     uint         `json:"cohort"`
	FileName     string       `json:"file_name"`
	TotalRecords int          `json:"total_records"`
	Processed    int          `json:"processed"`
	Rejected     int          `json:"rejected"`
	Status       ImportStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	StartTime    time.Time    `json:"start_time"`
	EndTime      *time.Time   `json:"end_time,omitempty"`
}

// Done reports whether the job reached a final status.
func (p ProgressInfo) Done() bool {
	return p.Status == StatusCompleted || p.Status == StatusError
}

type ImportService struct {
	db        *gorm.DB
	log       *logrus.Logger
	batchSize int
	// finished jobs are dropped once they are older than retention
	retention time.Duration
	now       func() time.Time

	progress     map[string]*ProgressInfo
	progressLock sync.RWMutex

	listeners    map[chan ProgressInfo]struct{}
	listenerLock sync.RWMutex

	// bounds the number of jobs running at once
	workerSemaphore chan struct{}
	jobs            sync.WaitGroup
}

func NewImportService(db *gorm.DB, log *logrus.Logger, cfg config.Import) *ImportService {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * 2
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = time.Hour
	}
	return &ImportService{
		db:              db,
		log:             log,
		batchSize:       batchSize,
		retention:       retention,
		now:             time.Now,
		progress:        make(map[string]*ProgressInfo),
		listeners:       make(map[chan ProgressInfo]struct{}),
		workerSemaphore: make(chan struct{}, maxWorkers),
	}
}

func (s *ImportService) RegisterProgressListener(ch chan ProgressInfo) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()
	s.listeners[ch] = struct{}{}
}

func (s *ImportService) UnregisterProgressListener(ch chan ProgressInfo) {
	s.listenerLock.Lock()
	defer s.listenerLock.Unlock()
	delete(s.listeners, ch)
}

// broadcast sends p to every listener that is ready. Slow listeners miss the update.
func (s *ImportService) broadcast(p ProgressInfo) {
	s.listenerLock.RLock()
	defer s.listenerLock.RUnlock()
	for ch := range s.listeners {
		select {
		case ch <- p:
		default:
		}
	}
}

// update applies fn to the job under lock and broadcasts the result.
func (s *ImportService) update(id string, fn func(p *ProgressInfo)) ProgressInfo {
	s.progressLock.Lock()
	p, ok := s.progress[id]
	if !ok {
		s.progressLock.Unlock()
		return ProgressInfo{}
	}
	fn(p)
	snapshot := *p
	s.progressLock.Unlock()

	s.broadcast(snapshot)
	return snapshot
}

func (s *ImportService) fail(id string, err error) ProgressInfo {
	s.log.WithError(err).WithField("job", id).Error("import failed")
	return s.update(id, func(p *ProgressInfo) {
		now := s.now()
		p.Status = StatusError
		p.Error = err.Error()
		p.EndTime = &now
	})
}

// Progress returns a copy of the job's progress.
func (s *ImportService) Progress(id string) (ProgressInfo, bool) {
	s.progressLock.RLock()
	defer s.progressLock.RUnlock()
	p, ok := s.progress[id]
	if !ok {
		return ProgressInfo{}, false
	}
	return *p, true
}

// AllProgress returns copies of every job, oldest first.
func (s *ImportService) AllProgress() []ProgressInfo {
	s.progressLock.RLock()
	out := make([]ProgressInfo, 0, len(s.progress))
	for _, p := range s.progress {
		out = append(out, *p)
	}
	s.progressLock.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Enqueue registers a job and processes it in the background. It returns once the
// file format and cohort have been checked.
func (s *ImportService) Enqueue(ctx context.Context, cohortID uint, fileName string, data []byte) (string, error) {
	id, err := s.start(ctx, cohortID, fileName)
	if err != nil {
		return "", err
	}

	bg := context.WithoutCancel(ctx)
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.workerSemaphore <- struct{}{}
		defer func() { <-s.workerSemaphore }()
		s.run(bg, id, cohortID, fileName, data)
	}()
	return id, nil
}

// Import processes the file synchronously and returns the final progress.
func (s *ImportService) Import(ctx context.Context, cohortID uint, fileName string, data []byte) (ProgressInfo, error) {
	id, err := s.start(ctx, cohortID, fileName)
	if err != nil {
		return ProgressInfo{}, err
	}

	s.workerSemaphore <- struct{}{}
	defer func() { <-s.workerSemaphore }()

	p := s.run(ctx, id, cohortID, fileName, data)
	if p.Status == StatusError {
		return p, errors.New(p.Error)
	}
	return p, nil
}

// Wait blocks until all background jobs have finished.
func (s *ImportService) Wait() {
	s.jobs.Wait()
}

func (s *ImportService) start(ctx context.Context, cohortID uint, fileName string) (string, error) {
	if _, err := fileFormat(fileName); err != nil {
		return "", err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Cohort{}).Where("id = ?", cohortID).Count(&n).Error; err != nil {
		return "", errors.Wrap(err, "checking cohort")
	}
	if n == 0 {
		return "", ErrNotFound
	}

	id := uuid.NewString()
	p := &ProgressInfo{
		ID:        id,
		CohortID:  cohortID,
		FileName:  filepath.Base(fileName),
		Status:    StatusQueued,
		StartTime: s.now(),
	}
	s.progressLock.Lock()
	s.prune(p.StartTime)
	s.progress[id] = p
	s.progressLock.Unlock()
	s.broadcast(*p)
	return id, nil
}

// prune drops finished jobs that ended more than retention before now.
// The caller holds progressLock.
func (s *ImportService) prune(now time.Time) {
	for id, p := range s.progress {
		if p.Done() && p.EndTime != nil && now.Sub(*p.EndTime) > s.retention {
			delete(s.progress, id)
		}
	}
}

func (s *ImportService) run(ctx context.Context, id string, cohortID uint, fileName string, data []byte) ProgressInfo {
	log := s.log.WithFields(logrus.Fields{"job": id, "cohort": cohortID, "file": fileName})
	startTime := time.Now()

	names, err := readNames(fileName, data)
	if err != nil {
		return s.fail(id, err)
	}
	s.update(id, func(p *ProgressInfo) {
		p.Status = StatusProcessing
		p.TotalRecords = len(names)
	})
	log.WithField("records", len(names)).Info("import started")

	batch := make([]model.Student, 0, s.batchSize)
	handled, rejected := 0, 0
	flush := func() error {
		if len(batch) > 0 {
			if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
				if errors.Is(err, gorm.ErrForeignKeyViolated) {
					return errors.Errorf("cohort %d no longer exists", cohortID)
				}
				return errors.Wrap(err, "saving batch")
			}
		}
		h, r := handled, rejected
		s.update(id, func(p *ProgressInfo) {
			p.Processed += h
			p.Rejected += r
		})
		batch = batch[:0]
		handled, rejected = 0, 0
		return nil
	}

	for _, name := range names {
		handled++
		if name == "" || utf8.RuneCountInString(name) > model.NameMaxLen {
			rejected++
		} else {
			batch = append(batch, model.Student{Name: name, CohortID: cohortID})
		}
		if handled >= s.batchSize {
			if err = flush(); err != nil {
				return s.fail(id, err)
			}
		}
	}
	if err = flush(); err != nil {
		return s.fail(id, err)
	}

	p := s.update(id, func(p *ProgressInfo) {
		now := s.now()
		p.Status = StatusCompleted
		p.EndTime = &now
	})
	log.WithFields(logrus.Fields{
		"processed": p.Processed,
		"rejected":  p.Rejected,
		"duration":  time.Since(startTime).String(),
	}).Info("import completed")
	return p
}

type format int

const (
	formatCSV format = iota
	formatXLSX
)

func fileFormat(fileName string) (format, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return formatCSV, nil
	case ".xlsx":
		return formatXLSX, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedFormat, "%q", filepath.Base(fileName))
}

// CheckFileName fails with ErrUnsupportedFormat unless fileName is a CSV or XLSX file.
func CheckFileName(fileName string) error {
	_, err := fileFormat(fileName)
	return err
}

// readNames returns the trimmed value of the name column for every data row.
func readNames(fileName string, data []byte) ([]string, error) {
	f, err := fileFormat(fileName)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch f {
	case formatCSV:
		rows, err = readCSV(data)
	case formatXLSX:
		rows, err = readXLSX(data)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}

	col := -1
	for i, h := range rows[0] {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), "name") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errors.New(`header row has no "name" column`)
	}

	names := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var name string
		if col < len(row) {
			name = strings.TrimSpace(row[col])
		}
		names = append(names, name)
	}
	return names, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading CSV")
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "opening XLSX")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheets[0])
	}
	return rows, nil
}
