package main

import (
	"flag"
	"fmt"
	"os"

	"earn_webapp/internal/logger"
	"earn_webapp/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|version]")
	}
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	switch cmd {
	case "up":
		if err := repository.RunMigrations(dsn); err != nil {
			logger.Fatal("migrate up", "error", err)
		}
		logger.Info("migrations applied")
	case "down":
		if err := repository.RollbackMigrations(dsn); err != nil {
			logger.Fatal("migrate down", "error", err)
		}
		logger.Info("rolled back one migration")
	case "version":
		v, dirty, err := repository.MigrationVersion(dsn)
		if err != nil {
			logger.Fatal("migrate version", "error", err)
		}
		fmt.Printf("version=%d dirty=%t\n", v, dirty)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
