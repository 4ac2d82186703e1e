package service

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

type CohortService struct {
	db *gorm.DB
}

func NewCohortService(db *gorm.DB) *CohortService {
	return &CohortService{db: db}
}

// List returns the cohorts matching q and the total number of matches before pagination.
func (s *CohortService) List(ctx context.Context, q model.ListQuery) ([]model.Cohort, int64, error) {
	q.Normalize()
	q.CohortID = nil
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&model.Cohort{}).Scopes(filterScope(q))
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting cohorts")
	}

	cohorts := []model.Cohort{}
	if err := base().Scopes(orderScope(q), pageScope(q)).Find(&cohorts).Error; err != nil {
		return nil, 0, errors.Wrap(err, "listing cohorts")
	}
	return cohorts, total, nil
}

func (s *CohortService) Get(ctx context.Context, id uint) (*model.Cohort, error) {
	var cohort model.Cohort
	if err := s.db.WithContext(ctx).First(&cohort, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &cohort, nil
}

func (s *CohortService) Create(ctx context.Context, req model.CohortRequest) (*model.Cohort, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cohort := model.Cohort{Name: *req.Name, Subject: model.Subject(*req.Subject)}
	if err := s.db.WithContext(ctx).Create(&cohort).Error; err != nil {
		return nil, errors.Wrap(err, "creating cohort")
	}
	return &cohort, nil
}

// Update replaces every writable field of the cohort.
func (s *CohortService) Update(ctx context.Context, id uint, req model.CohortRequest) (*model.Cohort, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.Patch(ctx, id, model.CohortPatch{Name: req.Name, Subject: req.Subject})
}

// Patch updates only the fields set in p.
func (s *CohortService) Patch(ctx context.Context, id uint, p model.CohortPatch) (*model.Cohort, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var cohort model.Cohort
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cohort, id).Error; err != nil {
			return notFound(err)
		}
		p.Apply(&cohort)
		return tx.Select("name", "subject").Updates(&cohort).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "updating cohort")
	}
	return &cohort, nil
}

// Delete removes the cohort. Its students are removed by the ON DELETE CASCADE constraint.
func (s *CohortService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Cohort{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting cohort")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Students lists the students of a cohort ordered by id.
func (s *CohortService) Students(ctx context.Context, id uint) ([]model.Student, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	students := []model.Student{}
	if err := s.db.WithContext(ctx).Where("cohort_id = ?", id).Order("id ASC").Find(&students).Error; err != nil {
		return nil, errors.Wrap(err, "listing cohort students")
	}
	return students, nil
}

func (s *CohortService) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Cohort{}).Count(&n).Error
	return n, errors.Wrap(err, "counting cohorts")
}
