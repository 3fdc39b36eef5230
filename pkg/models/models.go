package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// IdentityLen is the byte length of every caller identity.
const IdentityLen = sha256.Size

// Identity is the opaque, fixed-length id of a caller. It is the only input
// to derivation path construction.
type Identity []byte

// NewIdentity validates raw identity bytes and returns a private copy.
func NewIdentity(b []byte) (Identity, error) {
	if len(b) != IdentityLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIdentity, len(b), IdentityLen)
	}
	id := make(Identity, IdentityLen)
	copy(id, b)
	return id, nil
}

// IdentityFromSubject maps an authenticated (tenant, subject) pair to an
// Identity. The zero byte separator keeps ("ab","c") and ("a","bc") apart.
func IdentityFromSubject(tenant, subject string) Identity {
	h := sha256.New()
	h.Write([]byte(tenant))
	h.Write([]byte{0x00})
	h.Write([]byte(subject))
	return Identity(h.Sum(nil))
}

// Fingerprint returns a short hex prefix, safe for logs.
func (id Identity) Fingerprint() string {
	if len(id) < 4 {
		return hex.EncodeToString(id)
	}
	return hex.EncodeToString(id[:4])
}

// DerivationPath is the ordered input the signer derives a key from.
type DerivationPath [][]byte

// DerivationPathFor returns the single-element path [identity].
func DerivationPathFor(id Identity) DerivationPath {
	elem := make([]byte, len(id))
	copy(elem, id)
	return DerivationPath{elem}
}

// Hex returns every path element hex encoded, in order.
func (p DerivationPath) Hex() []string {
	out := make([]string, len(p))
	for i, elem := range p {
		out[i] = hex.EncodeToString(elem)
	}
	return out
}

// PublicKey holds the raw key bytes returned by the signer. It is not
// trusted until the address codec has validated it.
type PublicKey []byte

// Address is an encoded address together with the network it belongs to.
// Chain-data queries read the network from here, never from a second source.
type Address struct {
	Encoded string  `json:"address"`
	Network Network `json:"network"`
}

func (a Address) String() string {
	return a.Encoded
}

// Utxo is an unspent output as reported by the chain-data provider.
type Utxo struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  uint64 `json:"value"` // satoshis
	Height uint32 `json:"height,omitempty"`
}

// UtxoPage is one page of a UTXO lookup. An empty NextCursor marks the last page.
type UtxoPage struct {
	Utxos      []Utxo
	NextCursor string
}

// Balance is the sum of all UTXO values of one address. Own marks the
// balance of the caller's own deposit address.
type Balance struct {
	Address Address `json:"address"`
	Sats    uint64  `json:"balance"`
	Own     bool    `json:"-"`
}

func (b Balance) String() string {
	if b.Own {
		return fmt.Sprintf("Checked Address: %s | Balance: %d", b.Address.Encoded, b.Sats)
	}
	return fmt.Sprintf("Address: %s | Balance: %d", b.Address.Encoded, b.Sats)
}

// Connectivity is the outcome of a chain-data liveness probe.
type Connectivity struct {
	Network   Network   `json:"network"`
	Online    bool      `json:"online"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

func (c Connectivity) String() string {
	if c.Online {
		return fmt.Sprintf("Chain data connection (%s): ONLINE. (If balance is 0, the indexer may be lagging)", c.Network)
	}
	return fmt.Sprintf("Chain data connection (%s): OFFLINE. Error: %s", c.Network, c.Reason)
}
