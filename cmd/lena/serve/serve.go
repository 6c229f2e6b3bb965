// Package servecmder provides the serve command, which runs the lena API
// server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sheeehy/lena/api"
	"github.com/sheeehy/lena/pkg/backend"
	"github.com/sheeehy/lena/pkg/config"
	"github.com/sheeehy/lena/pkg/logger"
)

type serveCommander struct {
	listen        string
	storage       string
	sqlitePath    string
	postgresDSN   string
	blobProvider  string
	blobPath      string
	kafkaBrokers  string
	kafkaTopic    string
	debug         bool
	jsonLogs      bool
	logFile       string
	maxImageBytes int

	cfg    *config.Config
	logger *slog.Logger
}

const serveLongDesc string = `Run the lena API server.

The server exposes the memory timeline over HTTP:
  GET  /ping                  Health check
  GET  /api/memories          List memories (?year=2023 to filter)
  GET  /api/memories/:id      Get one memory
  POST /api/memories          Create a memory
  POST /api/images            Upload an image (multipart field "image")
  /mcp                        MCP tools: list_memories, get_day
  GET  /metrics               Prometheus metrics

Other lena processes can use it with "--storage remote".`

const serveShortDesc string = "Run the lena API server"

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagBlobProvider,
	config.FlagBlobPath,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveCommand(cmd, serveFlags...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context(), configDir)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storage)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagBlobProvider, &cmder.blobProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagBlobPath, &cmder.blobPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json", false, "Log as JSON")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().IntVar(&cmder.maxImageBytes, "max-image-bytes", api.DefaultMaxImageBytes, "Largest accepted request body, in bytes")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, configDir string) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(c.jsonLogs),
		logger.WithPretty(!c.jsonLogs),
	)
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithWriter(f),
		))
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.cfg.Storage.Driver == backend.DriverRemote || c.cfg.Blob.Provider == backend.BlobRemote {
		return errors.New(`the API server cannot use the "remote" storage driver or blob provider`)
	}

	b, err := backend.Open(ctx, c.cfg, configDir, c.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	opts := []api.Option{api.WithPublisher(b.Publisher), api.WithEvents(b.Bus)}
	if b.Uploader != nil {
		opts = append(opts, api.WithUploader(b.Uploader))
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:    c.cfg.API.Listen,
		MaxImageBytes: c.maxImageBytes,
	}, b.Driver, c.logger, opts...)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		c.logger.Info("shutting down API server")
		return server.Shutdown()
	}
}
