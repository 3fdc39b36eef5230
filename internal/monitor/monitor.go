// Package monitor periodically probes the chain-data provider and publishes
// ONLINE/OFFLINE transitions.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// ErrAlreadyStarted is returned by Start and Run on a monitor that was
// already started.
var ErrAlreadyStarted = errors.New("monitor: already started")

// Prober reports the current connectivity of the chain-data provider.
type Prober interface {
	ProbeConnectivity(ctx context.Context) models.Connectivity
}

// EventHandler processes a connectivity transition.
type EventHandler func(event models.Connectivity)

// Config holds configuration for the monitor.
type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
	Registerer   prometheus.Registerer
}

// Monitor polls a Prober on a fixed interval. The first probe and every
// change of the online flag are sent on Events.
type Monitor struct {
	prober  Prober
	network models.Network
	cfg     Config
	events  chan models.Connectivity
	online  prometheus.Gauge
	logger  *log.Entry

	mu   sync.RWMutex
	last *models.Connectivity

	lifecycle sync.Mutex
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
	stopOnce  sync.Once
}

// New returns a monitor of prober for network. It does not probe until
// Start is called.
func New(prober Prober, network models.Network, cfg Config) (*Monitor, error) {
	if prober == nil {
		return nil, errors.New("monitor: prober must not be nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 || cfg.ProbeTimeout > cfg.Interval {
		cfg.ProbeTimeout = cfg.Interval
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "walletd",
		Name:        "chain_data_online",
		Help:        "1 if the last chain data probe succeeded, 0 otherwise.",
		ConstLabels: prometheus.Labels{"network": string(network)},
	})
	if err := cfg.Registerer.Register(gauge); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		gauge = are.ExistingCollector.(prometheus.Gauge)
	}

	return &Monitor{
		prober:  prober,
		network: network,
		cfg:     cfg,
		events:  make(chan models.Connectivity, 16),
		online:  gauge,
		done:    make(chan struct{}),
		logger:  log.WithFields(log.Fields{"component": "monitor", "network": string(network)}),
	}, nil
}

// Start probes once and then keeps probing in the background until ctx is
// done or Stop is called. A monitor can be started only once.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(ctx)

	m.logger.WithField("interval", m.cfg.Interval).Info("starting connectivity monitor")

	go m.pollLoop(ctx)
	return nil
}

// Stop shuts the monitor down and closes the events channel. It is safe to
// call more than once and from several goroutines.
func (m *Monitor) Stop() error {
	m.lifecycle.Lock()
	cancel := m.cancel
	m.lifecycle.Unlock()
	if cancel == nil {
		return nil
	}

	m.stopOnce.Do(func() {
		cancel()
		<-m.done
		close(m.events)
		m.logger.Info("connectivity monitor stopped")
	})
	return nil
}

// Events returns the channel of connectivity transitions.
func (m *Monitor) Events() <-chan models.Connectivity {
	return m.events
}

// Last returns the most recent probe result, if any.
func (m *Monitor) Last() (models.Connectivity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return models.Connectivity{}, false
	}
	return *m.last, true
}

// Run starts the monitor, hands every transition to handler and stops when
// ctx is done.
func (m *Monitor) Run(ctx context.Context, handler EventHandler) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = m.Stop()
	}()
	for event := range m.Events() {
		handler(event)
	}
	return nil
}

func (m *Monitor) pollLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	status := m.prober.ProbeConnectivity(probeCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}

	if status.Online {
		m.online.Set(1)
	} else {
		m.online.Set(0)
	}

	m.mu.Lock()
	changed := m.last == nil || m.last.Online != status.Online
	m.last = &status
	m.mu.Unlock()

	if !changed {
		m.logger.WithField("online", status.Online).Debug("probe unchanged")
		return
	}

	entry := m.logger.WithField("online", status.Online)
	if status.Online {
		entry.Info(status.String())
	} else {
		entry.Warn(status.String())
	}

	select {
	case m.events <- status:
	case <-ctx.Done():
	}
}
