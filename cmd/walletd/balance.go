package main

import (
	"github.com/urfave/cli/v2"
)

var balanceCmd = cli.Command{
	Name:   "balance",
	Usage:  "print the balance of the deposit address of an identity",
	Flags:  identityFlags,
	Action: balanceAction,
}

var balanceOfCmd = cli.Command{
	Name:      "balance-of",
	Usage:     "print the balance of any address on the configured network",
	ArgsUsage: "<address>",
	Flags:     []cli.Flag{&jsonFlag},
	Action:    balanceOfAction,
}

func balanceAction(c *cli.Context) error {
	id, err := identityFromFlags(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	bal, err := svc.GetOwnBalance(c.Context, id)
	if err != nil {
		return err
	}
	return printResult(c, bal.String(), bal)
}

func balanceOfAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return &invalidUsageError{ctx: c, command: c.Command.Name}
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	bal, err := svc.GetBalanceOf(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	return printResult(c, bal.String(), bal)
}
