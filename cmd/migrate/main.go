// Command migrate applies the embedded Postgres migrations.
// Usage: go run ./cmd/migrate <up|down|step N|version|force V>
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"invoicing/internal/config"
	"invoicing/internal/infra"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.DBDriver != infra.DriverPostgres {
		log.Fatal().Str("driver", cfg.DBDriver).Msg("migrations only run against postgres; sqlite uses AUTO_MIGRATE")
	}

	db, err := infra.NewDatabase(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get sql handle")
	}
	defer sqlDB.Close()

	m, err := infra.NewMigrator(sqlDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrator")
	}

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "step":
		err = m.Steps(intArg(args, "step count"))
	case "force":
		log.Warn().Msg("forcing migration version")
		err = m.Force(intArg(args, "version"))
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = m.Version()
		if err == nil {
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration version")
		}
	default:
		log.Error().Str("command", command).Msg("unknown command")
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
}

func intArg(args []string, what string) int {
	if len(args) < 2 {
		log.Fatal().Msgf("%s required", what)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatal().Str("value", args[1]).Msgf("invalid %s", what)
	}
	return n
}

func printUsage() {
	fmt.Println(`Usage: migrate <command> [argument]

Commands:
  up           Apply all pending migrations
  down         Roll back all migrations
  step <n>     Apply n migrations (negative rolls back)
  version      Show the current migration version
  force <v>    Set the version without running migrations

Reads DB_DRIVER and DATABASE_URL from the environment or .env.`)
}
