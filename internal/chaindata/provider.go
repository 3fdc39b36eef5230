// Package chaindata holds the clients of remote chain-data providers: UTXO
// lookups for balances and a lightweight fee query used as liveness probe.
package chaindata

import (
	"context"

	"github.com/OKaluzny/walletd/pkg/models"
)

// Provider fetches chain data for one of the supported networks.
type Provider interface {
	// GetUtxos returns one page of the unspent outputs of address, starting
	// at cursor ("" for the first page). Callers must follow NextCursor
	// until it is empty to see the full set.
	GetUtxos(ctx context.Context, network models.Network, address, cursor string) (models.UtxoPage, error)

	// GetFeePercentiles returns current fee rates in millisatoshi/vbyte,
	// sorted ascending.
	GetFeePercentiles(ctx context.Context, network models.Network) ([]uint64, error)
}
