package main

import (
	"encoding/hex"

	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/urfave/cli/v2"
)

var (
	subjectFlag = cli.StringFlag{
		Name:  "subject",
		Usage: "caller subject, hashed with --tenant into the identity",
	}
	tenantFlag = cli.StringFlag{
		Name:  "tenant",
		Usage: "tenant of the caller",
	}
	identityFlag = cli.StringFlag{
		Name:  "identity",
		Usage: "raw 32 byte identity in hex, instead of --subject/--tenant",
	}
)

var identityFlags = []cli.Flag{&subjectFlag, &tenantFlag, &identityFlag, &jsonFlag}

var addressCmd = cli.Command{
	Name:   "address",
	Usage:  "print the deposit address of an identity",
	Flags:  identityFlags,
	Action: addressAction,
}

func addressAction(c *cli.Context) error {
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

	addr, err := svc.GetAddress(c.Context, id)
	if err != nil {
		return err
	}
	return printResult(c, addr.Encoded, addr)
}

func identityFromFlags(c *cli.Context) (models.Identity, error) {
	if raw := c.String(identityFlag.Name); raw != "" {
		b, err := hex.DecodeString(raw)
		if err != nil {
			return nil, err
		}
		return models.NewIdentity(b)
	}
	subject := c.String(subjectFlag.Name)
	if subject == "" {
		return nil, &invalidUsageError{ctx: c, command: c.Command.Name}
	}
	return models.IdentityFromSubject(c.String(tenantFlag.Name), subject), nil
}
