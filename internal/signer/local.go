package signer

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/OKaluzny/walletd/internal/wallet"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"
)

// Local is an in-process signer for development and regtest deployments.
// It derives keys from a BIP-39 mnemonic along a hardened BIP-32 path:
//
//	m / H(key name) / H(elem_0)[0] / H(elem_0)[1] / ... / H(elem_n)[1]
//
// where H expands its input with HKDF-SHA256 into hardened child indices.
// Two indices per path element keep collisions between identities at
// 62 bits of work.
type Local struct {
	master *bip32.Key
}

// NewLocal returns a local signer seeded from mnemonic and passphrase.
func NewLocal(mnemonic, passphrase string) (*Local, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("mnemonic: %w", err)
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	return &Local{master: master}, nil
}

// PublicKey implements wallet.Signer.
func (l *Local) PublicKey(ctx context.Context, req wallet.PublicKeyRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.KeyID.Curve != wallet.CurveSecp256k1 {
		return nil, fmt.Errorf("unsupported curve %q", req.KeyID.Curve)
	}

	indices, err := childIndices([]byte(req.KeyID.Name), nil, "walletd/key", 1)
	if err != nil {
		return nil, err
	}
	for _, elem := range req.DerivationPath {
		elemIndices, err := childIndices(elem, []byte(req.Owner), "walletd/path", 2)
		if err != nil {
			return nil, err
		}
		indices = append(indices, elemIndices...)
	}

	key := l.master
	for depth, idx := range indices {
		key, err = key.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child at depth %d: %w", depth+1, err)
		}
	}
	return key.PublicKey().Key, nil
}

func childIndices(secret, salt []byte, info string, n int) ([]uint32, error) {
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(info)), buf); err != nil {
		return nil, fmt.Errorf("expand path element: %w", err)
	}
	indices := make([]uint32, n)
	for i := range indices {
		indices[i] = binary.BigEndian.Uint32(buf[4*i:]) | bip32.FirstHardenedChild
	}
	return indices, nil
}
