package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	log "github.com/sirupsen/logrus"

	"github.com/Sheulydsp/kanban-dashboard/config"
	"github.com/Sheulydsp/kanban-dashboard/notify"
	"github.com/Sheulydsp/kanban-dashboard/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("BOARD_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("dotenv: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Server.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	ctx := context.Background()

	if cfg.Storage.Backend == config.BackendTables {
		if err := createTable(ctx, cfg.Tables.ConnectionString, cfg.Tables.TasksTable); err != nil {
			log.Fatalf("create table: %v", err)
		}
		log.WithField("table", cfg.Tables.TasksTable).Info("table ready")
	}

	if cfg.Storage.Backend == config.BackendPostgres {
		pg, err := storage.NewPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		err = pg.EnsureSchema(ctx)
		pg.Close()
		if err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		log.Info("postgres schema ready")
	}

	if cfg.Queue.Name != "" {
		if err := createQueue(ctx, cfg.Queue.ConnectionString, cfg.Queue.Name); err != nil {
			log.Fatalf("create queue: %v", err)
		}
		log.WithField("queue", cfg.Queue.Name).Info("queue ready")
	}

	log.Info("storage init complete")
}

func createTable(ctx context.Context, connStr, name string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, storage.TablesClientOptions())
	if err != nil {
		return err
	}
	_, err = svc.NewClient(name).CreateTable(ctx, nil)
	if err != nil && !alreadyExists(err, string(aztables.TableAlreadyExists)) {
		return err
	}
	return nil
}

func createQueue(ctx context.Context, connStr, name string) error {
	q, err := notify.NewQueueClient(connStr, name)
	if err != nil {
		return err
	}
	_, err = q.Create(ctx, nil)
	if err != nil && !alreadyExists(err, "QueueAlreadyExists") {
		return err
	}
	return nil
}

func alreadyExists(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
