package main

import (
	"context"

	"github.com/urfave/cli/v2"
)

var statusCmd = cli.Command{
	Name:   "status",
	Usage:  "probe the chain data provider of the configured network",
	Flags:  []cli.Flag{&jsonFlag},
	Action: statusAction,
}

func statusAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, cfg.ChainDataTimeout)
	defer cancel()

	conn := svc.ProbeConnectivity(ctx)
	return printResult(c, conn.String(), conn)
}
