package chaindata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/OKaluzny/walletd/internal/circuitbreaker"
	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

const maxResponseBytes = 8 << 20

// DefaultEsploraURLs are the public Esplora endpoints. Regtest has none and
// must be configured explicitly.
var DefaultEsploraURLs = map[models.Network]string{
	models.NetworkMainnet: "https://blockstream.info/api",
	models.NetworkTestnet: "https://blockstream.info/testnet/api",
}

// EsploraConfig configures an Esplora client.
type EsploraConfig struct {
	URLs      map[models.Network]string
	Timeout   time.Duration
	RateLimit int // requests per second, 0 disables limiting
	UserAgent string
}

// Esplora is a Provider backed by the Esplora REST API (blockstream.info,
// mempool.space or a self-hosted electrs).
type Esplora struct {
	urls      map[models.Network]string
	client    *http.Client
	limiter   ratelimit.Limiter
	cb        *gobreaker.CircuitBreaker
	userAgent string
}

// NewEsplora returns an Esplora client for the configured networks.
func NewEsplora(cfg EsploraConfig) (*Esplora, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.New("at least one esplora url is required")
	}
	urls := make(map[models.Network]string, len(cfg.URLs))
	for network, u := range cfg.URLs {
		if _, err := network.Params(); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return nil, fmt.Errorf("invalid esplora url %q for %s", u, network)
		}
		urls[network] = strings.TrimRight(u, "/")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limiter := ratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit)
	}
	return &Esplora{
		urls:      urls,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   limiter,
		cb:        circuitbreaker.New("esplora"),
		userAgent: cfg.UserAgent,
	}, nil
}

type esploraUtxo struct {
	TxID   string  `json:"txid"`
	Vout   uint32  `json:"vout"`
	Value  *uint64 `json:"value"`
	Status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint32 `json:"block_height"`
	} `json:"status"`
}

// GetUtxos implements Provider. Esplora returns the whole set at once, so
// the result is always a single page. Outputs still in the mempool are
// skipped; only outputs included in a block count.
func (e *Esplora) GetUtxos(ctx context.Context, network models.Network, address, cursor string) (models.UtxoPage, error) {
	if cursor != "" {
		return models.UtxoPage{}, fmt.Errorf("esplora: unexpected cursor %q", cursor)
	}

	var outs []esploraUtxo
	if err := e.get(ctx, network, "/address/"+url.PathEscape(address)+"/utxo", &outs); err != nil {
		return models.UtxoPage{}, err
	}

	utxos := make([]models.Utxo, 0, len(outs))
	for _, out := range outs {
		if out.Value == nil {
			return models.UtxoPage{}, fmt.Errorf("esplora: utxo %s:%d has no value", out.TxID, out.Vout)
		}
		if !out.Status.Confirmed {
			continue
		}
		utxos = append(utxos, models.Utxo{
			TxID:   out.TxID,
			Vout:   out.Vout,
			Value:  *out.Value,
			Height: out.Status.BlockHeight,
		})
	}
	return models.UtxoPage{Utxos: utxos}, nil
}

// GetFeePercentiles implements Provider using /fee-estimates, which maps
// confirmation targets to sat/vB.
func (e *Esplora) GetFeePercentiles(ctx context.Context, network models.Network) ([]uint64, error) {
	var estimates map[string]float64
	if err := e.get(ctx, network, "/fee-estimates", &estimates); err != nil {
		return nil, err
	}

	fees := make([]uint64, 0, len(estimates))
	for target, satPerVByte := range estimates {
		if satPerVByte < 0 || math.IsNaN(satPerVByte) {
			return nil, fmt.Errorf("esplora: invalid fee estimate %v for target %s", satPerVByte, target)
		}
		fees = append(fees, uint64(math.Round(satPerVByte*1000)))
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })
	return fees, nil
}

func (e *Esplora) get(ctx context.Context, network models.Network, path string, out interface{}) error {
	base, ok := e.urls[network]
	if !ok {
		return fmt.Errorf("%w: no esplora url for %s", models.ErrUnsupportedNetwork, network)
	}

	_, err := circuitbreaker.Execute(ctx, e.cb, func() (interface{}, error) {
		e.limiter.Take()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
		if err != nil {
			return nil, err
		}
		if e.userAgent != "" {
			req.Header.Set("User-Agent", e.userAgent)
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body := io.LimitReader(resp.Body, maxResponseBytes)
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(body, 512))
			return nil, fmt.Errorf("esplora: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		if err := json.NewDecoder(body).Decode(out); err != nil {
			return nil, fmt.Errorf("esplora: decode %s: %w", path, err)
		}
		return nil, nil
	})
	return err
}
