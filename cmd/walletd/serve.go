package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OKaluzny/walletd/internal/api"
	"github.com/OKaluzny/walletd/internal/auth"
	"github.com/OKaluzny/walletd/internal/monitor"
	"github.com/OKaluzny/walletd/pkg/models"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var serveCmd = cli.Command{
	Name:   "serve",
	Usage:  "run the HTTP API and the connectivity monitor",
	Action: serveAction,
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	jwtm, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return err
	}

	server, err := api.NewServer(api.Config{ListenAddress: cfg.ListenAddress}, svc, jwtm)
	if err != nil {
		return err
	}
	mon, err := monitor.New(svc, cfg.Network, monitor.Config{
		Interval:     cfg.MonitorInterval,
		ProbeTimeout: cfg.ChainDataTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"network": cfg.Network,
		"listen":  cfg.ListenAddress,
		"version": version,
	}).Info("starting walletd")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	g.Go(func() error {
		return mon.Run(ctx, func(event models.Connectivity) {
			log.WithFields(log.Fields{
				"network": event.Network,
				"online":  event.Online,
			}).Info("chain data connectivity changed")
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("walletd stopped")
	return nil
}
