// Command migrate applies or rolls back the EventPass schema.
//
//	migrate up
//	migrate down
package main

import (
	"fmt"
	"os"

	"ms-eventpass/internal/config"
	"ms-eventpass/internal/database/migrations"
	"ms-eventpass/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	cfg := config.Load()
	runner := migrations.NewRunner(cfg.Database.DSN(), logger)
	if err := runner.Initialize(); err != nil {
		logger.Fatal("MIGRATION", err.Error())
	}
	defer runner.Close()

	var err error
	switch direction {
	case "up":
		err = runner.MigrateUp()
	case "down":
		err = runner.MigrateDown()
	default:
		logger.Fatal("MIGRATION", fmt.Sprintf("unknown direction %q, want up or down", direction))
	}
	if err != nil {
		logger.Fatal("MIGRATION", err.Error())
	}
	logger.Info("MIGRATION", fmt.Sprintf("Migrations %s complete", direction))
}
