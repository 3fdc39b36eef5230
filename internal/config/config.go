package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/OKaluzny/walletd/pkg/models"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tyler-smith/go-bip39"
)

const (
	// NetworkKey selects the Bitcoin network: mainnet, testnet or regtest
	NetworkKey = "NETWORK"
	// LogLevelKey is a logrus level name (panic ... trace)
	LogLevelKey = "LOG_LEVEL"
	// LogJSONKey switches logs to the JSON formatter
	LogJSONKey = "LOG_JSON"
	// ListenAddressKey is the host:port the HTTP API listens on
	ListenAddressKey = "LISTEN_ADDRESS"
	// SignerTypeKey is either "remote" (HTTP signer) or "local" (mnemonic)
	SignerTypeKey = "SIGNER_TYPE"
	// SignerURLKey is the base URL of the remote signer
	SignerURLKey = "SIGNER_URL"
	// SignerTokenKey is an optional bearer token sent to the remote signer
	SignerTokenKey = "SIGNER_TOKEN"
	// SignerKeyNameKey names the signer key every address is derived from
	SignerKeyNameKey = "SIGNER_KEY_NAME"
	// SignerKeyOwnerKey optionally names the principal owning the key tree
	SignerKeyOwnerKey = "SIGNER_KEY_OWNER"
	// SignerMnemonicKey is the BIP-39 mnemonic of the local signer
	SignerMnemonicKey = "SIGNER_MNEMONIC"
	// SignerTimeoutKey bounds one signer request
	SignerTimeoutKey = "SIGNER_TIMEOUT"
	// ChainDataURLKey overrides the Esplora endpoint of the active network
	ChainDataURLKey = "CHAIN_DATA_URL"
	// ChainDataTimeoutKey bounds one chain data request
	ChainDataTimeoutKey = "CHAIN_DATA_TIMEOUT"
	// ChainDataRateLimitKey is the max number of chain data requests per second, 0 is unlimited
	ChainDataRateLimitKey = "CHAIN_DATA_RATE_LIMIT"
	// ChainDataUserAgentKey is sent with every chain data request
	ChainDataUserAgentKey = "CHAIN_DATA_USER_AGENT"
	// JWTSecretKey is the HMAC secret caller tokens are signed with
	JWTSecretKey = "JWT_SECRET"
	// JWTIssuerKey is the expected token issuer
	JWTIssuerKey = "JWT_ISSUER"
	// JWTTTLKey is the lifetime of tokens minted by the token command
	JWTTTLKey = "JWT_TTL"
	// MonitorIntervalKey is the period of the connectivity monitor
	MonitorIntervalKey = "MONITOR_INTERVAL"

	SignerTypeRemote = "remote"
	SignerTypeLocal  = "local"

	envPrefix = "WALLETD"
)

// Config holds all configurable parameters of walletd.
type Config struct {
	Network models.Network

	LogLevel string
	LogJSON  bool

	ListenAddress string

	// Signer
	SignerType     string
	SignerURL      string
	SignerToken    string
	SignerKeyName  string
	SignerKeyOwner string
	SignerMnemonic string
	SignerTimeout  time.Duration

	// Chain data
	ChainDataURL       string
	ChainDataTimeout   time.Duration
	ChainDataRateLimit int
	ChainDataUserAgent string

	// Caller auth
	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	MonitorInterval time.Duration
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Network: models.NetworkTestnet,

		LogLevel: "info",

		ListenAddress: ":8080",

		SignerType:    SignerTypeRemote,
		SignerKeyName: "test_key_1",
		SignerTimeout: 10 * time.Second,

		ChainDataTimeout:   15 * time.Second,
		ChainDataRateLimit: 10,
		ChainDataUserAgent: "walletd",

		JWTIssuer: "walletd",
		JWTTTL:    24 * time.Hour,

		MonitorInterval: 30 * time.Second,
	}
}

func newViper() *viper.Viper {
	def := Default()

	vip := viper.New()
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()

	vip.SetDefault(NetworkKey, string(def.Network))
	vip.SetDefault(LogLevelKey, def.LogLevel)
	vip.SetDefault(LogJSONKey, def.LogJSON)
	vip.SetDefault(ListenAddressKey, def.ListenAddress)
	vip.SetDefault(SignerTypeKey, def.SignerType)
	vip.SetDefault(SignerURLKey, "")
	vip.SetDefault(SignerTokenKey, "")
	vip.SetDefault(SignerKeyNameKey, def.SignerKeyName)
	vip.SetDefault(SignerKeyOwnerKey, "")
	vip.SetDefault(SignerMnemonicKey, "")
	vip.SetDefault(SignerTimeoutKey, def.SignerTimeout)
	vip.SetDefault(ChainDataURLKey, "")
	vip.SetDefault(ChainDataTimeoutKey, def.ChainDataTimeout)
	vip.SetDefault(ChainDataRateLimitKey, def.ChainDataRateLimit)
	vip.SetDefault(ChainDataUserAgentKey, def.ChainDataUserAgent)
	vip.SetDefault(JWTSecretKey, "")
	vip.SetDefault(JWTIssuerKey, def.JWTIssuer)
	vip.SetDefault(JWTTTLKey, def.JWTTTL)
	vip.SetDefault(MonitorIntervalKey, def.MonitorInterval)
	return vip
}

// Load reads the configuration from WALLETD_* environment variables and,
// when path is not empty, from that config file (env wins). Only the network
// is checked here; callers run Validate before building a service.
func Load(path string) (Config, error) {
	vip := newViper()
	if path != "" {
		vip.SetConfigFile(path)
		if err := vip.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	network, err := models.ParseNetwork(vip.GetString(NetworkKey))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Network:            network,
		LogLevel:           vip.GetString(LogLevelKey),
		LogJSON:            vip.GetBool(LogJSONKey),
		ListenAddress:      vip.GetString(ListenAddressKey),
		SignerType:         strings.ToLower(vip.GetString(SignerTypeKey)),
		SignerURL:          vip.GetString(SignerURLKey),
		SignerToken:        vip.GetString(SignerTokenKey),
		SignerKeyName:      vip.GetString(SignerKeyNameKey),
		SignerKeyOwner:     vip.GetString(SignerKeyOwnerKey),
		SignerMnemonic:     vip.GetString(SignerMnemonicKey),
		SignerTimeout:      vip.GetDuration(SignerTimeoutKey),
		ChainDataURL:       vip.GetString(ChainDataURLKey),
		ChainDataTimeout:   vip.GetDuration(ChainDataTimeoutKey),
		ChainDataRateLimit: vip.GetInt(ChainDataRateLimitKey),
		ChainDataUserAgent: vip.GetString(ChainDataUserAgentKey),
		JWTSecret:          vip.GetString(JWTSecretKey),
		JWTIssuer:          vip.GetString(JWTIssuerKey),
		JWTTTL:             vip.GetDuration(JWTTTLKey),
		MonitorInterval:    vip.GetDuration(MonitorIntervalKey),
	}
	return cfg, nil
}

// FromEnv returns a Config populated from environment variables only.
func FromEnv() (Config, error) {
	return Load("")
}

// Validate checks that the configuration can start a service.
func (c Config) Validate() error {
	if _, err := c.Network.Params(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%s: %w", LogLevelKey, err)
	}

	switch c.SignerType {
	case SignerTypeRemote:
		if err := validateURL(SignerURLKey, c.SignerURL); err != nil {
			return err
		}
	case SignerTypeLocal:
		if !bip39.IsMnemonicValid(c.SignerMnemonic) {
			return fmt.Errorf("%s must be a valid BIP-39 mnemonic when %s is %q", SignerMnemonicKey, SignerTypeKey, SignerTypeLocal)
		}
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", SignerTypeKey, SignerTypeRemote, SignerTypeLocal, c.SignerType)
	}
	if c.SignerKeyName == "" {
		return fmt.Errorf("%s must not be empty", SignerKeyNameKey)
	}

	if c.ChainDataURL != "" {
		if err := validateURL(ChainDataURLKey, c.ChainDataURL); err != nil {
			return err
		}
	} else if c.Network == models.NetworkRegtest {
		return fmt.Errorf("%s is required on %s", ChainDataURLKey, models.NetworkRegtest)
	}
	if c.ChainDataRateLimit < 0 {
		return fmt.Errorf("%s must not be negative", ChainDataRateLimitKey)
	}

	for key, d := range map[string]time.Duration{
		SignerTimeoutKey:    c.SignerTimeout,
		ChainDataTimeoutKey: c.ChainDataTimeout,
		JWTTTLKey:           c.JWTTTL,
		MonitorIntervalKey:  c.MonitorInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return fmt.Errorf("%s must be at least 16 bytes", JWTSecretKey)
	}
	return nil
}

// Level returns the parsed log level, info if it cannot be parsed.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) url, got %q", key, raw)
	}
	return nil
}
