package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/OKaluzny/walletd/internal/circuitbreaker"
	"github.com/OKaluzny/walletd/internal/wallet"
	"github.com/OKaluzny/walletd/pkg/models"
	"github.com/sony/gobreaker"
)

const publicKeyPath = "/v1/ecdsa/public-key"

// RemoteConfig configures the client of a remote threshold signer.
type RemoteConfig struct {
	URL     string
	Token   string // optional bearer token
	Timeout time.Duration
}

// Remote asks a remote threshold signer for public keys over HTTP. The
// signer holds the key shares; this client only ever sees public keys.
type Remote struct {
	url    string
	token  string
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewRemote returns a client for the signer at cfg.URL.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, fmt.Errorf("invalid signer url %q", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Remote{
		url:    strings.TrimRight(cfg.URL, "/"),
		token:  cfg.Token,
		client: &http.Client{Timeout: cfg.Timeout},
		cb:     circuitbreaker.New("signer"),
	}, nil
}

type keyIDMsg struct {
	Curve string `json:"curve"`
	Name  string `json:"name"`
}

type publicKeyRequestMsg struct {
	KeyID          keyIDMsg `json:"key_id"`
	DerivationPath []string `json:"derivation_path"`
	Owner          string   `json:"owner,omitempty"`
}

type publicKeyResponseMsg struct {
	PublicKey string `json:"public_key"`
}

// PublicKey implements wallet.Signer.
func (r *Remote) PublicKey(ctx context.Context, req wallet.PublicKeyRequest) ([]byte, error) {
	body, err := json.Marshal(publicKeyRequestMsg{
		KeyID:          keyIDMsg{Curve: string(req.KeyID.Curve), Name: req.KeyID.Name},
		DerivationPath: req.DerivationPath.Hex(),
		Owner:          req.Owner,
	})
	if err != nil {
		return nil, err
	}

	res, err := circuitbreaker.Execute(ctx, r.cb, func() (interface{}, error) {
		return r.post(ctx, body)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (r *Remote) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+publicKeyPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signer: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var msg publicKeyResponseMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("signer: decode response: %w", err)
	}
	if msg.PublicKey == "" {
		return nil, fmt.Errorf("%w: signer answered with an empty key", models.ErrMalformedKey)
	}
	key, err := hex.DecodeString(msg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: signer key is not hex: %w", models.ErrMalformedKey, err)
	}
	return key, nil
}
