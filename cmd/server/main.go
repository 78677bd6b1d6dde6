package main // entry point: serve the API, migrate the schema or run the audit consumer

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/logger"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "server",
		Short:         "Hotel inventory and reservation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), auditCmd())
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger shared by every
// command.
func bootstrap() (config.Config, *logrus.Logger, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("config: %w", err)
	}
	log, closeLog := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Env: cfg.Env})
	return cfg, log, closeLog, nil
}

func clusterConfig(cfg config.Config) database.ClusterConfig {
	db := cfg.DB
	cc := database.ClusterConfig{
		Primary: database.Target{Host: db.Host, Port: db.Port, User: db.User, Password: db.Password, Name: db.Name},
		Pool:    database.Pool{MaxOpenConns: db.MaxOpenConns},
	}
	if db.ReadHost != db.Host || db.ReadPort != db.Port {
		cc.Replica = database.Target{Host: db.ReadHost, Port: db.ReadPort, User: db.User, Password: db.Password, Name: db.Name}
	}
	return cc
}
