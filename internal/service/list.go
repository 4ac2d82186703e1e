package service

import (
	"strings"

	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// filterScope applies the search and cohort filters of q.
func filterScope(q model.ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Search != "" {
			db = db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(q.Search))+"%")
		}
		if q.CohortID != nil {
			db = db.Where("cohort_id = ?", *q.CohortID)
		}
		return db
	}
}

// orderScope applies the orderings of q, falling back to id so pages are stable.
// Fields must already be whitelisted by model.ParseOrdering.
func orderScope(q model.ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		hasID := false
		for _, ord := range q.Ordering {
			db = db.Order(ord.String())
			if ord.Field == "id" {
				hasID = true
			}
		}
		if !hasID {
			db = db.Order("id ASC")
		}
		return db
	}
}

func pageScope(q model.ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !q.Paginated() {
			return db
		}
		return db.Offset(q.Offset()).Limit(q.Limit)
	}
}
