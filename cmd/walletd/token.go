package main

import (
	"fmt"

	"github.com/OKaluzny/walletd/internal/auth"
	"github.com/urfave/cli/v2"
)

var tokenCmd = cli.Command{
	Name:   "token",
	Usage:  "mint a caller JWT signed with WALLETD_JWT_SECRET (development only)",
	Flags:  []cli.Flag{&subjectFlag, &tenantFlag},
	Action: tokenAction,
}

func tokenAction(c *cli.Context) error {
	subject := c.String(subjectFlag.Name)
	if subject == "" {
		return &invalidUsageError{ctx: c, command: c.Command.Name}
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	jwtm, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return err
	}
	signed, err := jwtm.Generate(subject, c.String(tenantFlag.Name))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, signed)
	return err
}
