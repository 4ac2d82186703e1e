package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/config"
	"github.com/ChristopherDuggan/django-rest-framework/internal/database"
	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
)

var (
	readPasswordFunc = term.ReadPassword  // mockable
	provisionFunc    = database.Provision // mockable
	readFileFunc     = os.ReadFile        // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	cfg    *config.Config
	log    *logrus.Logger
	out    io.Writer
	openDB func() (*gorm.DB, error)

	db *gorm.DB
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  provisiondb                        - create the database role and database if missing")
	_, _ = fmt.Fprintln(cli.out, "  migrate                            - create or update the schema")
	_, _ = fmt.Fprintln(cli.out, "  createsuperuser -username USERNAME - create an admin user, the password is prompted next")
	_, _ = fmt.Fprintln(cli.out, "  changepassword -username USERNAME  - change an admin user's password")
	_, _ = fmt.Fprintln(cli.out, "  deactivate -username USERNAME      - block an admin user from signing in")
	_, _ = fmt.Fprintln(cli.out, "  import -cohort ID -file PATH       - import a CSV or XLSX roster into a cohort")
}

// database opens the app database on first use.
func (cli *commandLine) database() (*gorm.DB, error) {
	if cli.db == nil {
		db, err := cli.openDB()
		if err != nil {
			return nil, err
		}
		cli.db = db
	}
	return cli.db, nil
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "provisiondb":
		return provisionFunc(ctx, cli.cfg.Database, cli.log)

	case "migrate":
		db, err := cli.database()
		if err != nil {
			return err
		}
		if err = database.Migrate(db); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cli.out, "Migrations applied.")
		return nil

	case "createsuperuser", "changepassword", "deactivate":
		cmd := cli.newFlagSet(args[1])
		username := cmd.String("username", "", "The admin user's username.")
		if err := parseFlags(cmd, args[2:]); err != nil {
			return err
		}
		if *username == "" {
			cmd.Usage()
			return errHelp
		}
		db, err := cli.database()
		if err != nil {
			return err
		}
		admins := service.NewAdminService(db)

		if args[1] == "deactivate" {
			if err = admins.Deactivate(ctx, *username); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "User %s deactivated.\n", *username)
			return nil
		}

		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if args[1] == "createsuperuser" {
			if _, err = admins.UpsertSuperuser(ctx, *username, pwd); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cli.out, "Superuser created successfully.")
			return nil
		}
		if err = admins.SetPassword(ctx, *username, pwd); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cli.out, "Password changed successfully for user %s.\n", *username)
		return nil

	case "import":
		cmd := cli.newFlagSet("import")
		cohortID := cmd.Uint("cohort", 0, "The id of the cohort to import students into.")
		path := cmd.String("file", "", "Path to a CSV or XLSX file with a \"name\" column.")
		if err := parseFlags(cmd, args[2:]); err != nil {
			return err
		}
		if *cohortID == 0 || *path == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.importRoster(ctx, *cohortID, *path)

	default:
		cli.printUsage()
		return errHelp
	}
}

// promptPassword reads the password twice without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Password: ")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errors.New("password cannot be blank")
	}

	_, _ = fmt.Fprint(cli.out, "Password (again): ")
	again, err := readPasswordFunc(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if string(pwd) != string(again) {
		return "", errors.New("passwords didn't match")
	}
	return string(pwd), nil
}

func (cli *commandLine) importRoster(ctx context.Context, cohortID uint, path string) error {
	data, err := readFileFunc(path)
	if err != nil {
		return err
	}
	db, err := cli.database()
	if err != nil {
		return err
	}

	importer := service.NewImportService(db, cli.log, cli.cfg.Import)
	p, err := importer.Import(ctx, cohortID, path, data)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "Imported %d of %d rows into cohort %d (%d rejected).\n",
		p.Processed-p.Rejected, p.TotalRecords, cohortID, p.Rejected)
	return nil
}
