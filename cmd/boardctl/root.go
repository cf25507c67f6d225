package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Sheulydsp/kanban-dashboard/board"
	"github.com/Sheulydsp/kanban-dashboard/config"
	"github.com/Sheulydsp/kanban-dashboard/storage"
)

// storeOpener returns a loaded store and a function releasing it.
type storeOpener func(ctx context.Context, configPath string) (*board.Store, func(), error)

type cli struct {
	configPath string
	verbose    bool
	open       storeOpener
}

// Execute runs the root command
func Execute(version string) error {
	root := newRootCmd(openStore)
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newRootCmd(open storeOpener) *cobra.Command {
	c := &cli{open: open}
	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Inspect and edit the task board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("BOARD_CONFIG"), "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		c.listCmd(),
		c.boardCmd(),
		c.addCmd(),
		c.editCmd(),
		c.reorderCmd(),
		c.moveCmd(),
		c.watchCmd(),
	)
	return root
}

func (c *cli) logger() *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	if c.verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

func (c *cli) withStore(ctx context.Context, fn func(*board.Store) error) error {
	store, closeFn, err := c.open(ctx, c.configPath)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(store)
}

func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	return config.Load(path)
}

func openStore(ctx context.Context, configPath string) (*board.Store, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	if cfg.Server.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	rc, err := cfg.NewRedisClient()
	if err != nil {
		return nil, nil, err
	}
	repo, closeRepo, err := storage.Open(ctx, cfg, rc, logger)
	if err != nil {
		if rc != nil {
			_ = rc.Close()
		}
		return nil, nil, err
	}
	release := func() {
		closeRepo()
		if rc != nil {
			_ = rc.Close()
		}
	}

	store := board.New(repo, logger)
	if err := store.Load(ctx); err != nil {
		release()
		return nil, nil, err
	}
	return store, release, nil
}
