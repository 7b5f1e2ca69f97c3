// Command migrate applies the embedded schema migrations to PostgreSQL.
//
//	migrate up          apply all pending migrations
//	migrate down        roll back every migration
//	migrate steps N     apply N migrations (negative rolls back)
//	migrate version     print the current version
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Francoosman12/casateka-backend/internal/config"
	"github.com/Francoosman12/casateka-backend/internal/infra"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.DatabaseDriver != infra.DriverPostgres {
		log.Fatal().Str("driver", cfg.DatabaseDriver).Msg("migrations only apply to postgres; sqlite uses AutoMigrate")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	mg, err := infra.NewMigratorFromDB(db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrator")
	}
	defer mg.Close()

	switch command {
	case "up":
		err = mg.Up()
	case "down":
		err = mg.Down()
	case "steps":
		if len(args) < 2 {
			log.Fatal().Msg("usage: migrate steps N")
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			log.Fatal().Err(convErr).Msg("N must be an integer")
		}
		err = mg.Steps(n)
	case "version":
		version, dirty, verr := mg.Version()
		if verr == nil {
			fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		}
		err = verr
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: migrate <up|down|steps N|version>")
}
