package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/btcsuite/btcd/btcec/v2"
)

// generatorPubKey is the compressed secp256k1 generator point, the public
// key of private key 1. Its P2WPKH encodings are BIP-173 test vectors.
const generatorPubKey = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func testPubKey(t *testing.T) models.PublicKey {
	t.Helper()
	pub, err := hex.DecodeString(generatorPubKey)
	if err != nil {
		t.Fatal(err)
	}
	return pub
}

func pubKeyFromSeed(t *testing.T, b byte) models.PublicKey {
	t.Helper()
	_, pub := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{b}, 32))
	return pub.SerializeCompressed()
}

func TestCodec_Encode_KnownVectors(t *testing.T) {
	tests := []struct {
		network models.Network
		want    string
	}{
		{models.NetworkMainnet, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"},
		{models.NetworkTestnet, "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"},
	}
	codec := NewCodec()
	for _, tt := range tests {
		t.Run(string(tt.network), func(t *testing.T) {
			addr, err := codec.Encode(testPubKey(t), tt.network)
			if err != nil {
				t.Fatal(err)
			}
			if addr.Encoded != tt.want {
				t.Errorf("Encode() = %s, want %s", addr.Encoded, tt.want)
			}
			if addr.Network != tt.network {
				t.Errorf("Encode() network = %s, want %s", addr.Network, tt.network)
			}
		})
	}
}

func TestCodec_Encode_Deterministic(t *testing.T) {
	codec := NewCodec()
	pub := pubKeyFromSeed(t, 0x11)
	for _, network := range models.Networks() {
		t.Run(string(network), func(t *testing.T) {
			a1, err := codec.Encode(pub, network)
			if err != nil {
				t.Fatal(err)
			}
			a2, err := codec.Encode(pub, network)
			if err != nil {
				t.Fatal(err)
			}
			if a1 != a2 {
				t.Errorf("same key produced different addresses: %s vs %s", a1, a2)
			}
		})
	}
}

func TestCodec_Encode_NetworkPrefixes(t *testing.T) {
	codec := NewCodec()
	prefixes := map[models.Network]string{
		models.NetworkMainnet: "bc1q",
		models.NetworkTestnet: "tb1q",
		models.NetworkRegtest: "bcrt1q",
	}
	pub := pubKeyFromSeed(t, 0x22)
	for network, prefix := range prefixes {
		addr, err := codec.Encode(pub, network)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(addr.Encoded, prefix) {
			t.Errorf("%s address should start with %s, got %s", network, prefix, addr.Encoded)
		}
	}
}

func TestCodec_Encode_Injective(t *testing.T) {
	codec := NewCodec()
	for _, seed := range []byte{0x01, 0x02, 0x7f, 0xfe} {
		pub := pubKeyFromSeed(t, seed)
		seen := make(map[string]models.Network)
		for _, network := range models.Networks() {
			addr, err := codec.Encode(pub, network)
			if err != nil {
				t.Fatal(err)
			}
			if prev, ok := seen[addr.Encoded]; ok {
				t.Fatalf("%s and %s produced the same address %s", prev, network, addr.Encoded)
			}
			seen[addr.Encoded] = network
		}
	}
}

func TestCodec_Encode_DifferentKeys(t *testing.T) {
	codec := NewCodec()
	a1, err := codec.Encode(pubKeyFromSeed(t, 0x01), models.NetworkTestnet)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := codec.Encode(pubKeyFromSeed(t, 0x02), models.NetworkTestnet)
	if err != nil {
		t.Fatal(err)
	}
	if a1 == a2 {
		t.Error("different keys produced same address")
	}
}

func TestCodec_Encode_MalformedKey(t *testing.T) {
	_, uncompressed := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x05}, 32))
	notOnCurve := append([]byte{0x02}, bytes.Repeat([]byte{0xff}, 32)...)

	tests := []struct {
		name string
		key  []byte
	}{
		{"empty", nil},
		{"short", testPubKey(t)[:20]},
		{"uncompressed", uncompressed.SerializeUncompressed()},
		{"bad prefix", append([]byte{0x04}, testPubKey(t)[1:]...)},
		{"not on curve", notOnCurve},
	}
	codec := NewCodec()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Encode(tt.key, models.NetworkTestnet)
			if !errors.Is(err, models.ErrMalformedKey) {
				t.Errorf("Encode() error = %v, want ErrMalformedKey", err)
			}
		})
	}
}

func TestCodec_Encode_UnsupportedNetwork(t *testing.T) {
	_, err := NewCodec().Encode(testPubKey(t), models.Network("signet"))
	if !errors.Is(err, models.ErrUnsupportedNetwork) {
		t.Errorf("Encode() error = %v, want ErrUnsupportedNetwork", err)
	}
}

func TestCodec_Parse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		network  models.Network
		want     string
		wantErr  error
		mismatch bool
	}{
		{name: "p2wpkh mainnet", text: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", network: models.NetworkMainnet, want: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"},
		{name: "upper case is canonicalised", text: "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4", network: models.NetworkMainnet, want: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"},
		{name: "p2wpkh testnet", text: " tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx\n", network: models.NetworkTestnet, want: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"},
		{name: "p2wsh mainnet", text: "bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3", network: models.NetworkMainnet, want: "bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3"},
		{name: "p2pkh mainnet", text: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", network: models.NetworkMainnet, want: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"},
		{name: "mainnet segwit on testnet", text: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", network: models.NetworkTestnet, wantErr: models.ErrInvalidAddressFormat, mismatch: true},
		{name: "testnet segwit on mainnet", text: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", network: models.NetworkMainnet, wantErr: models.ErrInvalidAddressFormat, mismatch: true},
		{name: "testnet segwit on regtest", text: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", network: models.NetworkRegtest, wantErr: models.ErrInvalidAddressFormat, mismatch: true},
		{name: "mainnet legacy on testnet", text: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", network: models.NetworkTestnet, wantErr: models.ErrInvalidAddressFormat, mismatch: true},
		{name: "bad checksum", text: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsy", network: models.NetworkTestnet, wantErr: models.ErrInvalidAddressFormat},
		{name: "garbage", text: "not-an-address", network: models.NetworkTestnet, wantErr: models.ErrInvalidAddressFormat},
		{name: "empty", text: "   ", network: models.NetworkTestnet, wantErr: models.ErrInvalidAddressFormat},
		{name: "raw pubkey", text: generatorPubKey, network: models.NetworkMainnet, wantErr: models.ErrInvalidAddressFormat},
	}

	codec := NewCodec()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := codec.Parse(tt.text, tt.network)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				if got := errors.Is(err, models.ErrNetworkMismatch); got != tt.mismatch {
					t.Errorf("Parse() network mismatch = %v, want %v (err: %v)", got, tt.mismatch, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if addr.Encoded != tt.want || addr.Network != tt.network {
				t.Errorf("Parse() = %+v, want %s on %s", addr, tt.want, tt.network)
			}
		})
	}
}

func TestCodec_ParseRoundTrip(t *testing.T) {
	codec := NewCodec()
	pub := pubKeyFromSeed(t, 0x33)
	for _, network := range models.Networks() {
		encoded, err := codec.Encode(pub, network)
		if err != nil {
			t.Fatal(err)
		}
		parsed, err := codec.Parse(encoded.Encoded, network)
		if err != nil {
			t.Fatalf("%s: %v", network, err)
		}
		if parsed != encoded {
			t.Errorf("%s: Parse(Encode()) = %+v, want %+v", network, parsed, encoded)
		}
	}
}
