package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/config"
	"github.com/ChristopherDuggan/django-rest-framework/internal/logger"
	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
	"github.com/ChristopherDuggan/django-rest-framework/internal/testutil"
)

func setup(t *testing.T) (*commandLine, *gorm.DB, *bytes.Buffer) {
	t.Helper()
	db := testutil.NewDB(t)
	out := &bytes.Buffer{}
	cli := &commandLine{
		cfg:    &config.Config{Import: config.Import{BatchSize: 100, MaxWorkers: 1}},
		log:    logger.Discard(),
		out:    out,
		openDB: func() (*gorm.DB, error) { return db, nil },
	}
	return cli, db, out
}

// passwords makes readPasswordFunc return the given answers in order.
func passwords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
	readPasswordFunc = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	passwords  []string
	wantErr    error
	wantErrStr string
}

func runTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			passwords(t, tt.passwords...)
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)
	runTests(t, cli, []cliTest{
		{name: "no command", args: nil, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "help flag", args: []string{"createsuperuser", "-h"}, wantErr: errHelp},
	})
	assert.Contains(t, out.String(), "createsuperuser -username USERNAME")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, db, out := setup(t)
	runTests(t, cli, []cliTest{{name: "migrate", args: []string{"migrate"}}})

	assert.True(t, db.Migrator().HasTable(&model.AdminUser{}))
	assert.Contains(t, out.String(), "Migrations applied.")
}

func Test_commandLine_provisiondb(t *testing.T) {
	cli, _, _ := setup(t)
	cli.cfg.Database = config.Database{Driver: config.DriverPostgres, Name: "cohorts", User: "app"}

	var got config.Database
	orig := provisionFunc
	t.Cleanup(func() { provisionFunc = orig })
	provisionFunc = func(_ context.Context, cfg config.Database, _ *logrus.Logger) error {
		got = cfg
		return nil
	}

	runTests(t, cli, []cliTest{{name: "provisiondb", args: []string{"provisiondb"}}})
	assert.Equal(t, cli.cfg.Database, got)
}

func Test_commandLine_superuser(t *testing.T) {
	cli, db, _ := setup(t)
	admins := service.NewAdminService(db)

	runTests(t, cli, []cliTest{
		{name: "createsuperuser: no username", args: []string{"createsuperuser"}, wantErr: errHelp},
		{name: "createsuperuser: blank password", args: []string{"createsuperuser", "-username", "admin"}, passwords: []string{""}, wantErrStr: "password cannot be blank"},
		{name: "createsuperuser: mismatch", args: []string{"createsuperuser", "-username", "admin"}, passwords: []string{"a", "b"}, wantErrStr: "passwords didn't match"},
		{name: "createsuperuser", args: []string{"createsuperuser", "-username", "admin"}, passwords: []string{"s3cret", "s3cret"}},
		{name: "changepassword: unknown user", args: []string{"changepassword", "-username", "nobody"}, passwords: []string{"x", "x"}, wantErr: service.ErrNotFound},
		{name: "changepassword", args: []string{"changepassword", "-username", "admin"}, passwords: []string{"n3w", "n3w"}},
	})

	_, err := admins.Authenticate(context.Background(), "admin", "n3w")
	assert.NoError(t, err)

	runTests(t, cli, []cliTest{
		{name: "deactivate", args: []string{"deactivate", "-username", "admin"}},
		{name: "deactivate: unknown user", args: []string{"deactivate", "-username", "nobody"}, wantErr: service.ErrNotFound},
	})
	_, err = admins.Authenticate(context.Background(), "admin", "n3w")
	assert.ErrorIs(t, err, service.ErrAccountDeactivated)
}

func Test_commandLine_import(t *testing.T) {
	cli, db, out := setup(t)
	cohort := testutil.CreateCohort(t, db, "Cohort 1", model.SubjectSEI)

	orig := readFileFunc
	t.Cleanup(func() { readFileFunc = orig })
	readFileFunc = func(name string) ([]byte, error) {
		if name == "roster.csv" {
			return []byte("name,email\nAda,ada@example.com\n,nobody@example.com\nGrace,grace@example.com\n"), nil
		}
		return nil, os.ErrNotExist
	}

	runTests(t, cli, []cliTest{
		{name: "missing flags", args: []string{"import", "-cohort", "1"}, wantErr: errHelp},
		{name: "missing file", args: []string{"import", "-cohort", fmt.Sprint(cohort.ID), "-file", "nope.csv"}, wantErr: os.ErrNotExist},
		{name: "unknown cohort", args: []string{"import", "-cohort", "999", "-file", "roster.csv"}, wantErr: service.ErrNotFound},
		{name: "import", args: []string{"import", "-cohort", fmt.Sprint(cohort.ID), "-file", "roster.csv"}},
	})

	assert.Contains(t, out.String(), fmt.Sprintf("Imported 2 of 3 rows into cohort %d (1 rejected).", cohort.ID))
}
