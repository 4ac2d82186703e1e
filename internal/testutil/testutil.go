// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/config"
	"github.com/ChristopherDuggan/django-rest-framework/internal/database"
	"github.com/ChristopherDuggan/django-rest-framework/internal/logger"
	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
)

var dbSeq int64

// NewDB returns a migrated in-memory SQLite database with foreign keys enforced.
// Each call gets its own database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := database.Open(config.Database{Driver: config.DriverSQLite, SQLitePath: name}, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// CreateCohort inserts a cohort and fails the test on error.
func CreateCohort(t *testing.T, db *gorm.DB, name string, subject model.Subject) model.Cohort {
	t.Helper()
	c := model.Cohort{Name: name, Subject: subject}
	require.NoError(t, db.Create(&c).Error)
	return c
}

// CreateStudent inserts a student and fails the test on error.
func CreateStudent(t *testing.T, db *gorm.DB, name string, cohortID uint) model.Student {
	t.Helper()
	s := model.Student{Name: name, CohortID: cohortID}
	require.NoError(t, db.Create(&s).Error)
	return s
}
