// Package service is the facade callers use: derive the caller's own
// address, read its balance, read the balance of any address on the active
// network, and probe the chain-data provider.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/OKaluzny/walletd/internal/chaindata"
	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Operation names used in logs and metric labels.
const (
	OpGetAddress        = "get_address"
	OpGetOwnBalance     = "get_own_balance"
	OpGetBalanceOf      = "get_balance_of"
	OpProbeConnectivity = "probe_connectivity"
)

// KeyDeriver returns the public key bound to an identity.
type KeyDeriver interface {
	DerivePublicKey(ctx context.Context, identity models.Identity) (models.PublicKey, error)
}

// AddressCodec turns keys into addresses and validates address text.
type AddressCodec interface {
	Encode(pub models.PublicKey, network models.Network) (models.Address, error)
	Parse(text string, network models.Network) (models.Address, error)
}

// BalanceReader sums the unspent outputs of an address.
type BalanceReader interface {
	BalanceOf(ctx context.Context, address models.Address) (models.Balance, error)
}

// Service implements the wallet operations for one network.
type Service struct {
	network    models.Network
	deriver    KeyDeriver
	codec      AddressCodec
	balances   BalanceReader
	provider   chaindata.Provider
	logger     *log.Entry
	metrics    *metrics
	now        func() time.Time
	registerer prometheus.Registerer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the base log entry.
func WithLogger(entry *log.Entry) Option {
	return func(s *Service) { s.logger = entry }
}

// WithRegisterer sets where operation metrics are registered. Defaults to
// prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) { s.registerer = reg }
}

// WithClock overrides the time source used for probe timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service bound to network. Every address it produces or
// accepts belongs to that network.
func New(
	network models.Network,
	deriver KeyDeriver,
	codec AddressCodec,
	balances BalanceReader,
	provider chaindata.Provider,
	opts ...Option,
) (*Service, error) {
	if _, err := network.Params(); err != nil {
		return nil, err
	}
	if deriver == nil || codec == nil || balances == nil || provider == nil {
		return nil, errors.New("service: deriver, codec, balance reader and provider are required")
	}

	s := &Service{
		network:    network,
		deriver:    deriver,
		codec:      codec,
		balances:   balances,
		provider:   provider,
		now:        time.Now,
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "service")
	}
	s.logger = s.logger.WithField("network", string(network))
	s.metrics = newMetrics(s.registerer)
	return s, nil
}

// Network returns the network the service operates on.
func (s *Service) Network() models.Network {
	return s.network
}

// GetAddress returns the P2WPKH address owned by identity. It fails with
// ErrSignerUnavailable or ErrMalformedKey and touches no chain data.
func (s *Service) GetAddress(ctx context.Context, identity models.Identity) (addr models.Address, err error) {
	defer s.track(OpGetAddress, time.Now(), &err, log.Fields{"identity": identity.Fingerprint()})
	return s.ownAddress(ctx, identity)
}

// GetOwnBalance returns the balance of the address owned by identity. A
// derivation failure is returned before the chain-data provider is called.
func (s *Service) GetOwnBalance(ctx context.Context, identity models.Identity) (bal models.Balance, err error) {
	defer s.track(OpGetOwnBalance, time.Now(), &err, log.Fields{"identity": identity.Fingerprint()})

	addr, err := s.ownAddress(ctx, identity)
	if err != nil {
		return models.Balance{}, err
	}
	bal, err = s.balances.BalanceOf(ctx, addr)
	if err != nil {
		return models.Balance{}, err
	}
	bal.Own = true
	return bal, nil
}

// GetBalanceOf returns the balance of address text on the active network.
// Addresses of other networks are rejected with ErrInvalidAddressFormat.
func (s *Service) GetBalanceOf(ctx context.Context, text string) (bal models.Balance, err error) {
	defer s.track(OpGetBalanceOf, time.Now(), &err, log.Fields{"address": text})

	addr, err := s.codec.Parse(text, s.network)
	if err != nil {
		return models.Balance{}, err
	}
	return s.balances.BalanceOf(ctx, addr)
}

// ProbeConnectivity asks the provider for fee percentiles. It reports the
// outcome and never fails.
func (s *Service) ProbeConnectivity(ctx context.Context) models.Connectivity {
	start := time.Now()
	_, err := s.provider.GetFeePercentiles(ctx, s.network)

	status := models.Connectivity{Network: s.network, Online: err == nil, CheckedAt: s.now()}
	if err != nil {
		status.Reason = err.Error()
		err = errors.Join(models.ErrChainDataUnavailable, err)
	}
	s.track(OpProbeConnectivity, start, &err, log.Fields{"online": status.Online})
	return status
}

func (s *Service) ownAddress(ctx context.Context, identity models.Identity) (models.Address, error) {
	pub, err := s.deriver.DerivePublicKey(ctx, identity)
	if err != nil {
		return models.Address{}, err
	}
	return s.codec.Encode(pub, s.network)
}

func (s *Service) track(operation string, start time.Time, errp *error, fields log.Fields) {
	elapsed := time.Since(start)

	outcome := outcomeOK
	if *errp != nil {
		outcome = models.ErrorCode(*errp)
	}
	s.metrics.observe(operation, outcome, elapsed)

	entry := s.logger.WithFields(fields).WithFields(log.Fields{
		"operation": operation,
		"outcome":   outcome,
		"duration":  elapsed,
	})
	if *errp != nil {
		entry.WithError(*errp).Warn("operation failed")
		return
	}
	entry.Debug("operation completed")
}
