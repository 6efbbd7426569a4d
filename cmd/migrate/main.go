// Command migrate manages the postgres schema.
//
//	migrate up | down | version | to <n> | seed
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	dsn := pflag.String("dsn", "", "postgres DSN (defaults to POSTGRES_DSN)")
	adminEmail := pflag.String("admin-email", "admin@example.com", "staff user created by seed")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: migrate [flags] up|down|version|to <version>|seed\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	_ = godotenv.Load(*envFile)
	cfg := config.Load()
	cfg.Database.Driver = "postgres"
	if *dsn != "" {
		cfg.Database.PostgresDSN = *dsn
	}

	log := logger.NewWriterLogger(os.Stdout)
	log.SetLevel(cfg.Log.Level)

	if pflag.NArg() < 1 {
		pflag.Usage()
		os.Exit(2)
	}
	if err := run(cfg, log, pflag.Args(), *adminEmail); err != nil {
		log.Error("MIGRATE", err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, args []string, adminEmail string) error {
	bunDB, err := database.Connect(context.Background(), cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, log)
	if err := runner.Initialize(); err != nil {
		return err
	}

	switch args[0] {
	case "up":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		if len(args) < 2 {
			return fmt.Errorf("to: missing version")
		}
		v, perr := strconv.ParseUint(args[1], 10, 32)
		if perr != nil {
			return fmt.Errorf("to: invalid version %q", args[1])
		}
		err = runner.MigrateTo(uint(v))
	case "seed":
		if err = runner.RunMigrations(); err == nil {
			err = seedData(context.Background(), bunDB, adminEmail, log)
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err != nil {
		return err
	}

	v, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	log.Info("MIGRATE", fmt.Sprintf("schema version %d (dirty=%t)", v, dirty))
	return nil
}
