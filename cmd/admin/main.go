package main

import (
	"os"

	"gorm.io/gorm"

	"github.com/ChristopherDuggan/django-rest-framework/internal/config"
	"github.com/ChristopherDuggan/django-rest-framework/internal/database"
	"github.com/ChristopherDuggan/django-rest-framework/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg)

	cli := commandLine{
		cfg: cfg,
		log: log,
		out: os.Stdout,
		openDB: func() (*gorm.DB, error) {
			return database.Open(cfg.Database, log)
		},
	}
	err = cli.run(os.Args)
	if cli.db != nil {
		_ = database.Close(cli.db)
	}
	if err != nil {
		if err != errHelp {
			log.WithError(err).Error("command failed")
		}
		os.Exit(1)
	}
}
