package wallet

import (
	"context"

	"github.com/OKaluzny/walletd/pkg/models"
)

// Curve names the elliptic curve of a signer key.
type Curve string

// CurveSecp256k1 is the only curve Bitcoin addresses can be derived from.
const CurveSecp256k1 Curve = "secp256k1"

// DefaultKeyName is the signer key used when none is configured.
const DefaultKeyName = "test_key_1"

// KeyID identifies the master key held by the signer. It is fixed for a
// deployment; changing it changes every derived address.
type KeyID struct {
	Curve Curve  `json:"curve"`
	Name  string `json:"name"`
}

// PublicKeyRequest asks the signer for the public key at a derivation path.
type PublicKeyRequest struct {
	KeyID          KeyID
	DerivationPath models.DerivationPath
	// Owner optionally names the principal whose key tree is used. Empty
	// means the signer's own tree.
	Owner string
}

// Signer is the remote service holding the key material. Implementations
// must be deterministic: the same request returns the same key, forever.
// The private key never leaves the signer.
type Signer interface {
	PublicKey(ctx context.Context, req PublicKeyRequest) ([]byte, error)
}

// SignerFunc adapts a function to the Signer interface.
type SignerFunc func(ctx context.Context, req PublicKeyRequest) ([]byte, error)

// PublicKey calls f.
func (f SignerFunc) PublicKey(ctx context.Context, req PublicKeyRequest) ([]byte, error) {
	return f(ctx, req)
}
