package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
)

type mockCohortService struct {
	mock.Mock
}

func (m *mockCohortService) List(ctx context.Context, q model.ListQuery) ([]model.Cohort, int64, error) {
	args := m.Called(ctx, q)
	cohorts, _ := args.Get(0).([]model.Cohort)
	return cohorts, args.Get(1).(int64), args.Error(2)
}

func (m *mockCohortService) Get(ctx context.Context, id uint) (*model.Cohort, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*model.Cohort)
	return c, args.Error(1)
}

func (m *mockCohortService) Create(ctx context.Context, req model.CohortRequest) (*model.Cohort, error) {
	args := m.Called(ctx, req)
	c, _ := args.Get(0).(*model.Cohort)
	return c, args.Error(1)
}

func (m *mockCohortService) Update(ctx context.Context, id uint, req model.CohortRequest) (*model.Cohort, error) {
	args := m.Called(ctx, id, req)
	c, _ := args.Get(0).(*model.Cohort)
	return c, args.Error(1)
}

func (m *mockCohortService) Patch(ctx context.Context, id uint, p model.CohortPatch) (*model.Cohort, error) {
	args := m.Called(ctx, id, p)
	c, _ := args.Get(0).(*model.Cohort)
	return c, args.Error(1)
}

func (m *mockCohortService) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCohortService) Students(ctx context.Context, id uint) ([]model.Student, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).([]model.Student)
	return s, args.Error(1)
}

type mockStudentService struct {
	mock.Mock
}

func (m *mockStudentService) List(ctx context.Context, q model.ListQuery) ([]model.Student, int64, error) {
	args := m.Called(ctx, q)
	s, _ := args.Get(0).([]model.Student)
	return s, args.Get(1).(int64), args.Error(2)
}

func (m *mockStudentService) Get(ctx context.Context, id uint) (*model.Student, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*model.Student)
	return s, args.Error(1)
}

func (m *mockStudentService) Create(ctx context.Context, req model.StudentRequest) (*model.Student, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*model.Student)
	return s, args.Error(1)
}

func (m *mockStudentService) Update(ctx context.Context, id uint, req model.StudentRequest) (*model.Student, error) {
	args := m.Called(ctx, id, req)
	s, _ := args.Get(0).(*model.Student)
	return s, args.Error(1)
}

func (m *mockStudentService) Patch(ctx context.Context, id uint, p model.StudentPatch) (*model.Student, error) {
	args := m.Called(ctx, id, p)
	s, _ := args.Get(0).(*model.Student)
	return s, args.Error(1)
}

func (m *mockStudentService) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

type mockImportService struct {
	mock.Mock
	listeners chan chan service.ProgressInfo
}

func (m *mockImportService) Enqueue(ctx context.Context, cohortID uint, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, cohortID, fileName, data)
	return args.String(0), args.Error(1)
}

func (m *mockImportService) Progress(id string) (service.ProgressInfo, bool) {
	args := m.Called(id)
	return args.Get(0).(service.ProgressInfo), args.Bool(1)
}

func (m *mockImportService) AllProgress() []service.ProgressInfo {
	args := m.Called()
	p, _ := args.Get(0).([]service.ProgressInfo)
	return p
}

func (m *mockImportService) RegisterProgressListener(ch chan service.ProgressInfo) {
	m.Called(ch)
	if m.listeners != nil {
		m.listeners <- ch
	}
}

func (m *mockImportService) UnregisterProgressListener(ch chan service.ProgressInfo) {
	m.Called(ch)
}
