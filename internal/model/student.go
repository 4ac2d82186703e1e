package model

type Student struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	CohortID uint   `gorm:"not null;index" json:"cohort"`
}

// StudentRequest is the body of a create or full update.
type StudentRequest struct {
	Name   *string `json:"name" validate:"required,notblank,max=100"`
	Cohort *uint   `json:"cohort" validate:"required"`
}

func (r *StudentRequest) Validate() error {
	cleanPtr(r.Name)
	return Check(r)
}

// StudentPatch is the body of a partial update. Nil fields are left untouched.
type StudentPatch struct {
	Name   *string `json:"name" validate:"omitnil,notblank,max=100"`
	Cohort *uint   `json:"cohort"`
}

func (p *StudentPatch) Validate() error {
	cleanPtr(p.Name)
	return Check(p)
}

func (p StudentPatch) Apply(s *Student) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Cohort != nil {
		s.CohortID = *p.Cohort
	}
}
