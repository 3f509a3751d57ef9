package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"allotment-service/configs"
	"allotment-service/internal/billing"
	"allotment-service/internal/repository"
	"allotment-service/internal/repository/sqlstore"
	"allotment-service/internal/service"
)

func main() {
	// Command output goes to stdout, so logs go to stderr
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)

	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}

	engine, err := initEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to load billing policy: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DataSource())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := sqlstore.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	services := service.NewService(service.Dependencies{
		Repos:  repository.NewRepository(db),
		Logger: log,
		Config: cfg,
		Engine: engine,
	})

	a := &app{
		services: services,
		config:   cfg,
		logger:   log,
		in:       os.Stdin,
		out:      os.Stdout,
	}

	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		db.Close()
		os.Exit(1)
	}
}

func initEngine(cfg *configs.Config) (*billing.Engine, error) {
	if cfg.Billing.PolicyFile == "" {
		return billing.Default(), nil
	}

	policy, err := billing.LoadPolicyFile(cfg.Billing.PolicyFile)
	if err != nil {
		return nil, err
	}
	return billing.NewEngine(policy)
}
