package wallet

import (
	"fmt"
	"strings"

	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

const compressedPubKeyLen = 33

// Codec encodes public keys as native SegWit v0 P2WPKH addresses and parses
// caller supplied address text. It does no I/O.
type Codec struct{}

// NewCodec returns a new address codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode returns the bech32 P2WPKH address of pub on the given network.
// Address: bech32(hrp, 0, Hash160(pubKey)).
func (c *Codec) Encode(pub models.PublicKey, network models.Network) (models.Address, error) {
	params, err := network.Params()
	if err != nil {
		return models.Address{}, err
	}
	if err := validateCompressed(pub); err != nil {
		return models.Address{}, err
	}

	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub), params)
	if err != nil {
		return models.Address{}, fmt.Errorf("p2wpkh: %w", err)
	}
	return models.Address{Encoded: addr.EncodeAddress(), Network: network}, nil
}

// Parse validates address text against the given network. Addresses of
// another network are rejected rather than queried under the wrong ledger.
func (c *Codec) Parse(text string, network models.Network) (models.Address, error) {
	params, err := network.Params()
	if err != nil {
		return models.Address{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return models.Address{}, fmt.Errorf("%w: empty address", models.ErrInvalidAddressFormat)
	}
	addr, err := btcutil.DecodeAddress(text, params)
	if err != nil {
		// base58 version bytes are network specific, so a foreign legacy
		// address fails to decode instead of failing IsForNet below.
		if other, ok := foreignNetwork(text, network); ok {
			return models.Address{}, fmt.Errorf("%w: %w: %s is a %s address",
				models.ErrInvalidAddressFormat, models.ErrNetworkMismatch, text, other)
		}
		return models.Address{}, fmt.Errorf("%w: %w", models.ErrInvalidAddressFormat, err)
	}
	if _, ok := addr.(*btcutil.AddressPubKey); ok {
		return models.Address{}, fmt.Errorf("%w: raw public key is not an address", models.ErrInvalidAddressFormat)
	}
	if !addr.IsForNet(params) {
		return models.Address{}, fmt.Errorf("%w: %w: %s is not a %s address",
			models.ErrInvalidAddressFormat, models.ErrNetworkMismatch, text, network)
	}
	return models.Address{Encoded: addr.EncodeAddress(), Network: network}, nil
}

func foreignNetwork(text string, active models.Network) (models.Network, bool) {
	for _, n := range models.Networks() {
		if n == active {
			continue
		}
		params, _ := n.Params()
		if addr, err := btcutil.DecodeAddress(text, params); err == nil && addr.IsForNet(params) {
			return n, true
		}
	}
	return "", false
}

// validateCompressed accepts exactly a 33-byte compressed secp256k1 point.
// Uncompressed or hybrid encodings are rejected, not converted.
func validateCompressed(pub []byte) error {
	if len(pub) != compressedPubKeyLen {
		return fmt.Errorf("%w: got %d bytes, want %d", models.ErrMalformedKey, len(pub), compressedPubKeyLen)
	}
	if pub[0] != 0x02 && pub[0] != 0x03 {
		return fmt.Errorf("%w: bad prefix 0x%02x", models.ErrMalformedKey, pub[0])
	}
	if _, err := btcec.ParsePubKey(pub); err != nil {
		return fmt.Errorf("%w: %w", models.ErrMalformedKey, err)
	}
	return nil
}
