package model

const NameMaxLen = 100

type Cohort struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Name     string    `gorm:"size:100;not null" json:"name"`
	Subject  Subject   `gorm:"size:4;not null" json:"subject"`
	Students []Student `gorm:"foreignKey:CohortID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// CohortRequest is the body of a create or full update.
type CohortRequest struct {
	Name    *string `json:"name" validate:"required,notblank,max=100"`
	Subject *string `json:"subject" validate:"required,subject"`
}

func (r *CohortRequest) Validate() error {
	cleanPtr(r.Name)
	cleanPtr(r.Subject)
	return Check(r)
}

// CohortPatch is the body of a partial update. Nil fields are left untouched.
type CohortPatch struct {
	Name    *string `json:"name" validate:"omitnil,notblank,max=100"`
	Subject *string `json:"subject" validate:"omitnil,subject"`
}

func (p *CohortPatch) Validate() error {
	cleanPtr(p.Name)
	cleanPtr(p.Subject)
	return Check(p)
}

// Apply copies the set fields onto c.
func (p CohortPatch) Apply(c *Cohort) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Subject != nil {
		c.Subject = Subject(*p.Subject)
	}
}
