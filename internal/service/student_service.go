package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

type StudentService struct {
	db *gorm.DB
}

func NewStudentService(db *gorm.DB) *StudentService {
	return &StudentService{db: db}
}

// List returns the students matching q and the total number of matches before pagination.
func (s *StudentService) List(ctx context.Context, q model.ListQuery) ([]model.Student, int64, error) {
	q.Normalize()
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&model.Student{}).Scopes(filterScope(q))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	students := []model.Student{}
	if err := base().Scopes(orderScope(q), pageScope(q)).Find(&students).Error; err != nil {
		return nil, 0, errors.Wrap(err, "listing students")
	}
	return students, total, nil
}

func (s *StudentService) Get(ctx context.Context, id uint) (*model.Student, error) {
	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &student, nil
}

func (s *StudentService) Create(ctx context.Context, req model.StudentRequest) (*model.Student, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	student := model.Student{Name: *req.Name, CohortID: *req.Cohort}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkCohort(tx, student.CohortID); err != nil {
			return err
		}
		return tx.Create(&student).Error
	})
	if err != nil {
		return nil, writeError(err, student.CohortID, "creating student")
	}
	return &student, nil
}

// Update replaces every writable field of the student.
func (s *StudentService) Update(ctx context.Context, id uint, req model.StudentRequest) (*model.Student, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.Patch(ctx, id, model.StudentPatch{Name: req.Name, Cohort: req.Cohort})
}

// Patch updates only the fields set in p.
func (s *StudentService) Patch(ctx context.Context, id uint, p model.StudentPatch) (*model.Student, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var student model.Student
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&student, id).Error; err != nil {
			return notFound(err)
		}
		p.Apply(&student)
		if p.Cohort != nil {
			if err := checkCohort(tx, student.CohortID); err != nil {
				return err
			}
		}
		return tx.Select("name", "cohort_id").Updates(&student).Error
	})
	if err != nil {
		return nil, writeError(err, student.CohortID, "updating student")
	}
	return &student, nil
}

func (s *StudentService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Student{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting student")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *StudentService) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Student{}).Count(&n).Error
	return n, errors.Wrap(err, "counting students")
}

// checkCohort fails with a field error when the cohort does not exist. Must run on tx.
func checkCohort(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&model.Cohort{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return invalidCohort(id)
	}
	return nil
}

func writeError(err error, cohortID uint, action string) error {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return invalidCohort(cohortID)
	}
	return errors.Wrap(err, action)
}
