// main is the entry point of the Users API application.
//
// RUNNING THE SERVER:
//
//	go run ./cmd/users-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/users-api serve
//
// With neither, configuration comes from the environment alone.
//
// PRINTING THE API DESCRIPTION:
//
//	go run ./cmd/users-api openapi > openapi.json
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/aanand-mishra/users-api/internal/app"
	"github.com/aanand-mishra/users-api/internal/config"
	"github.com/aanand-mishra/users-api/internal/http/handlers/docs"
	"github.com/aanand-mishra/users-api/internal/logger"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "1.0.0"

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "users-api:", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "users-api",
		Usage:   "CRUD HTTP API over user records",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (.yaml, .json, .toml or .env); empty reads the environment only",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Action: serveCommand,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: serveCommand,
			},
			{
				Name:  "openapi",
				Usage: "Print the OpenAPI document as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "server-url",
						Usage: "Base URL advertised in the servers list",
						Value: "http://localhost:5000",
					},
				},
				Action: openAPICommand,
			},
		},
	}
}

func serveCommand(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	log := logger.New(cfg.Env, cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)

	log.Info("starting users-api",
		slog.String("env", cfg.Env),
		slog.String("version", Version),
		slog.String("storage", cfg.Storage.Driver),
	)

	// SIGINT is Ctrl+C; SIGTERM comes from `kill` or a container runtime.
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialise application", slog.String("error", err.Error()))
		return err
	}
	return a.Run(ctx)
}

func openAPICommand(c *cli.Context) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(docs.Spec(c.String("server-url")))
}
