package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OKaluzny/walletd/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var version = "dev"

var configFlag = cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path of an optional config file; WALLETD_* env vars take precedence",
	EnvVars: []string{"WALLETD_CONFIG"},
}

var jsonFlag = cli.BoolFlag{
	Name:  "json",
	Usage: "print the result as JSON",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Version = version
	app.Name = "walletd"
	app.Usage = "per-identity Bitcoin address derivation and balance read-back"
	app.Flags = []cli.Flag{&configFlag}
	app.Commands = append(
		app.Commands,
		&serveCmd,
		&addressCmd,
		&balanceCmd,
		&balanceOfCmd,
		&statusCmd,
		&tokenCmd,
	)
	return app
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return config.Config{}, err
	}
	setupLogging(cfg)
	return cfg, nil
}

func setupLogging(cfg config.Config) {
	log.SetLevel(cfg.Level())
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stderr)
}

func printResult(c *cli.Context, text string, v interface{}) error {
	if !c.Bool(jsonFlag.Name) {
		_, err := fmt.Fprintln(c.App.Writer, text)
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "\t")
	return enc.Encode(v)
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[walletd] %v\n", err)
	}
	os.Exit(1)
}
