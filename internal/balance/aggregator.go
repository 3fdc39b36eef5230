package balance

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/OKaluzny/walletd/internal/chaindata"
	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/btcsuite/btcd/btcutil"
)

// DefaultMaxPages bounds how many UTXO pages one balance query may drain.
const DefaultMaxPages = 1000

// maxSupply is the total number of satoshis that can ever exist.
const maxSupply = uint64(btcutil.MaxSatoshi)

// Aggregator sums the UTXO set of an address.
type Aggregator struct {
	provider chaindata.Provider
	maxPages int
}

// NewAggregator returns an aggregator reading from provider.
func NewAggregator(provider chaindata.Provider, maxPages int) (*Aggregator, error) {
	if provider == nil {
		return nil, errors.New("chain data provider must not be nil")
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Aggregator{provider: provider, maxPages: maxPages}, nil
}

// BalanceOf returns the sum of all unspent outputs of address, queried on
// the address's own network. An empty set is a zero balance; any provider
// failure or implausible response is ErrChainDataUnavailable and never a
// partial sum.
func (a *Aggregator) BalanceOf(ctx context.Context, address models.Address) (models.Balance, error) {
	var (
		total  uint64
		cursor string
		seen   = make(map[string]struct{})
	)
	for page := 0; ; page++ {
		if page == a.maxPages {
			return models.Balance{}, fmt.Errorf("%w: more than %d utxo pages", models.ErrChainDataUnavailable, a.maxPages)
		}

		res, err := a.provider.GetUtxos(ctx, address.Network, address.Encoded, cursor)
		if err != nil {
			return models.Balance{}, fmt.Errorf("%w: %w", models.ErrChainDataUnavailable, err)
		}
		if total, err = sum(total, res.Utxos); err != nil {
			return models.Balance{}, fmt.Errorf("%w: %w", models.ErrChainDataUnavailable, err)
		}

		if res.NextCursor == "" {
			break
		}
		if _, ok := seen[res.NextCursor]; ok {
			return models.Balance{}, fmt.Errorf("%w: provider repeated cursor %q", models.ErrChainDataUnavailable, res.NextCursor)
		}
		seen[res.NextCursor] = struct{}{}
		cursor = res.NextCursor
	}
	return models.Balance{Address: address, Sats: total}, nil
}

// sum adds the values of utxos to acc with overflow and supply checks.
func sum(acc uint64, utxos []models.Utxo) (uint64, error) {
	for _, u := range utxos {
		if u.Value > maxSupply {
			return 0, fmt.Errorf("utxo %s:%d value %d exceeds total supply", u.TxID, u.Vout, u.Value)
		}
		var carry uint64
		acc, carry = bits.Add64(acc, u.Value, 0)
		if carry != 0 || acc > maxSupply {
			return 0, fmt.Errorf("utxo sum exceeds total supply at %s:%d", u.TxID, u.Vout)
		}
	}
	return acc, nil
}
