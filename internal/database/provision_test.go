package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ChristopherDuggan/django-rest-framework/internal/config"
	"github.com/ChristopherDuggan/django-rest-framework/internal/logger"
)

func TestProvisionSQLQuoting(t *testing.T) {
	assert.Equal(t, `CREATE USER "app" ENCRYPTED PASSWORD 'it''s'`, createRoleSQL("app", "it's"))
	assert.Equal(t, `CREATE DATABASE "co""horts" OWNER "app"`, createDatabaseSQL(`co"horts`, "app"))
	assert.Equal(t, `CREATE DATABASE "cohorts"`, createDatabaseSQL("cohorts", ""))
	assert.Equal(t, `GRANT ALL PRIVILEGES ON DATABASE "cohorts" TO "app"`, grantSQL("cohorts", "app"))
}

func TestProvisionRequiresPostgres(t *testing.T) {
	err := Provision(context.Background(), config.Database{Driver: config.DriverSQLite}, logger.Discard())
	assert.Error(t, err)
}
