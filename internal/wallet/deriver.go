package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/OKaluzny/walletd/pkg/models"
)

// KeyDeriver turns a caller identity into a public key by asking the signer
// for the key at path [identity]. It keeps no state between calls.
type KeyDeriver struct {
	signer Signer
	keyID  KeyID
	owner  string
}

// NewKeyDeriver returns a deriver bound to one signer key.
func NewKeyDeriver(signer Signer, keyID KeyID, owner string) (*KeyDeriver, error) {
	if signer == nil {
		return nil, errors.New("signer must not be nil")
	}
	if keyID.Curve == "" {
		keyID.Curve = CurveSecp256k1
	}
	if keyID.Curve != CurveSecp256k1 {
		return nil, fmt.Errorf("unsupported key curve %q", keyID.Curve)
	}
	if keyID.Name == "" {
		keyID.Name = DefaultKeyName
	}
	return &KeyDeriver{signer: signer, keyID: keyID, owner: owner}, nil
}

// KeyID returns the signer key every derivation uses.
func (d *KeyDeriver) KeyID() KeyID {
	return d.keyID
}

// DerivePublicKey requests the public key of identity from the signer.
// A signer answer that is not a key keeps its ErrMalformedKey; any other
// signer failure is reported as ErrSignerUnavailable. Nothing is retried.
func (d *KeyDeriver) DerivePublicKey(ctx context.Context, identity models.Identity) (models.PublicKey, error) {
	if len(identity) != models.IdentityLen {
		return nil, fmt.Errorf("%w: got %d bytes", models.ErrInvalidIdentity, len(identity))
	}

	raw, err := d.signer.PublicKey(ctx, PublicKeyRequest{
		KeyID:          d.keyID,
		DerivationPath: models.DerivationPathFor(identity),
		Owner:          d.owner,
	})
	if errors.Is(err, models.ErrMalformedKey) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSignerUnavailable, err)
	}

	pub := make(models.PublicKey, len(raw))
	copy(pub, raw)
	return pub, nil
}
