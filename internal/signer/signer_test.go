package signer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OKaluzny/walletd/internal/wallet"
	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testRequest(subject string) wallet.PublicKeyRequest {
	return wallet.PublicKeyRequest{
		KeyID:          wallet.KeyID{Curve: wallet.CurveSecp256k1, Name: wallet.DefaultKeyName},
		DerivationPath: models.DerivationPathFor(models.IdentityFromSubject("tenant", subject)),
	}
}

func TestLocal_Deterministic(t *testing.T) {
	s1, err := NewLocal(testMnemonic, "")
	require.NoError(t, err)
	s2, err := NewLocal(testMnemonic, "")
	require.NoError(t, err)

	ctx := context.Background()
	k1, err := s1.PublicKey(ctx, testRequest("u1"))
	require.NoError(t, err)
	k2, err := s2.PublicKey(ctx, testRequest("u1"))
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	require.Len(t, k1, 33)
	_, err = btcec.ParsePubKey(k1)
	assert.NoError(t, err)
}

func TestLocal_DistinctInputs(t *testing.T) {
	s, err := NewLocal(testMnemonic, "")
	require.NoError(t, err)
	other, err := NewLocal("zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo wrong", "")
	require.NoError(t, err)

	ctx := context.Background()
	base, err := s.PublicKey(ctx, testRequest("u1"))
	require.NoError(t, err)

	otherUser, err := s.PublicKey(ctx, testRequest("u2"))
	require.NoError(t, err)
	assert.NotEqual(t, base, otherUser, "identity must change the key")

	renamed := testRequest("u1")
	renamed.KeyID.Name = "key_1"
	otherKey, err := s.PublicKey(ctx, renamed)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherKey, "key name must change the key")

	owned := testRequest("u1")
	owned.Owner = "another-owner"
	otherOwner, err := s.PublicKey(ctx, owned)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherOwner, "owner must change the key")

	otherSeed, err := other.PublicKey(ctx, testRequest("u1"))
	require.NoError(t, err)
	assert.NotEqual(t, base, otherSeed, "mnemonic must change the key")
}

func TestLocal_Errors(t *testing.T) {
	_, err := NewLocal("abandon abandon abandon", "")
	assert.Error(t, err)

	s, err := NewLocal(testMnemonic, "")
	require.NoError(t, err)

	req := testRequest("u1")
	req.KeyID.Curve = "ed25519"
	_, err = s.PublicKey(context.Background(), req)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.PublicKey(ctx, testRequest("u1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemote_PublicKey(t *testing.T) {
	_, pub := btcec.PrivKeyFromBytes([]byte("0123456789abcdef0123456789abcdef"))
	want := pub.SerializeCompressed()
	req := testRequest("u1")
	req.Owner = "owner"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, publicKeyPath, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var msg publicKeyRequestMsg
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, keyIDMsg{Curve: "secp256k1", Name: wallet.DefaultKeyName}, msg.KeyID)
		assert.Equal(t, req.DerivationPath.Hex(), msg.DerivationPath)
		assert.Equal(t, "owner", msg.Owner)

		_ = json.NewEncoder(w).Encode(publicKeyResponseMsg{PublicKey: hex.EncodeToString(want)})
	}))
	defer server.Close()

	s, err := NewRemote(RemoteConfig{URL: server.URL + "/", Token: "secret"})
	require.NoError(t, err)

	got, err := s.PublicKey(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRemote_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "key shares unavailable", http.StatusServiceUnavailable)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			s, err := NewRemote(RemoteConfig{URL: server.URL, Timeout: 50 * time.Millisecond})
			require.NoError(t, err)
			key, err := s.PublicKey(context.Background(), testRequest("u1"))
			assert.Error(t, err)
			assert.Nil(t, key)
		})
	}
}

func TestRemote_MalformedKey(t *testing.T) {
	for name, body := range map[string]string{
		"empty key": `{"public_key":""}`,
		"not hex":   `{"public_key":"zz"}`,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			s, err := NewRemote(RemoteConfig{URL: server.URL})
			require.NoError(t, err)
			key, err := s.PublicKey(context.Background(), testRequest("u1"))
			assert.ErrorIs(t, err, models.ErrMalformedKey)
			assert.Nil(t, key)
		})
	}
}

func TestRemote_CallerCancellationKeepsBreakerClosed(t *testing.T) {
	_, pub := btcec.PrivKeyFromBytes([]byte("0123456789abcdef0123456789abcdef"))
	want := pub.SerializeCompressed()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(publicKeyResponseMsg{PublicKey: hex.EncodeToString(want)})
	}))
	defer server.Close()

	s, err := NewRemote(RemoteConfig{URL: server.URL})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.PublicKey(ctx, testRequest("u1"))
		require.ErrorIs(t, err, context.Canceled)
	}
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		_, _ = s.PublicKey(ctx, testRequest("u1"))
		cancel()
	}
	assert.Equal(t, gobreaker.StateClosed, s.cb.State())

	got, err := s.PublicKey(context.Background(), testRequest("u1"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewRemote_InvalidURL(t *testing.T) {
	_, err := NewRemote(RemoteConfig{URL: "signer.local:8080"})
	assert.Error(t, err)
}
