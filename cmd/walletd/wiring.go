package main

import (
	"fmt"

	"github.com/OKaluzny/walletd/internal/balance"
	"github.com/OKaluzny/walletd/internal/chaindata"
	"github.com/OKaluzny/walletd/internal/config"
	"github.com/OKaluzny/walletd/internal/service"
	"github.com/OKaluzny/walletd/internal/signer"
	"github.com/OKaluzny/walletd/internal/wallet"
	"github.com/OKaluzny/walletd/pkg/models"
	log "github.com/sirupsen/logrus"
)

func newSigner(cfg config.Config) (wallet.Signer, error) {
	switch cfg.SignerType {
	case config.SignerTypeLocal:
		log.Warn("using local mnemonic signer, do not use with real funds")
		return signer.NewLocal(cfg.SignerMnemonic, "")
	case config.SignerTypeRemote:
		return signer.NewRemote(signer.RemoteConfig{
			URL:     cfg.SignerURL,
			Token:   cfg.SignerToken,
			Timeout: cfg.SignerTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown signer type %q", cfg.SignerType)
	}
}

func newProvider(cfg config.Config) (*chaindata.Esplora, error) {
	urls := make(map[models.Network]string, len(chaindata.DefaultEsploraURLs))
	for network, u := range chaindata.DefaultEsploraURLs {
		urls[network] = u
	}
	if cfg.ChainDataURL != "" {
		urls[cfg.Network] = cfg.ChainDataURL
	}
	return chaindata.NewEsplora(chaindata.EsploraConfig{
		URLs:      urls,
		Timeout:   cfg.ChainDataTimeout,
		RateLimit: cfg.ChainDataRateLimit,
		UserAgent: cfg.ChainDataUserAgent,
	})
}

// newService builds the facade for the configured network.
func newService(cfg config.Config) (*service.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sgn, err := newSigner(cfg)
	if err != nil {
		return nil, err
	}
	deriver, err := wallet.NewKeyDeriver(sgn, wallet.KeyID{
		Curve: wallet.CurveSecp256k1,
		Name:  cfg.SignerKeyName,
	}, cfg.SignerKeyOwner)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	agg, err := balance.NewAggregator(provider, balance.DefaultMaxPages)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"network":  cfg.Network,
		"signer":   cfg.SignerType,
		"key_name": cfg.SignerKeyName,
	}).Debug("service configured")

	return service.New(cfg.Network, deriver, wallet.NewCodec(), agg, provider)
}
