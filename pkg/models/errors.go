package models

import "errors"

var (
	// ErrSignerUnavailable is returned when the signer call failed or timed out.
	ErrSignerUnavailable = errors.New("signer unavailable")
	// ErrMalformedKey is returned when the signer answered with bytes that are
	// not a valid compressed secp256k1 point.
	ErrMalformedKey = errors.New("malformed public key")
	// ErrChainDataUnavailable is returned when a UTXO or fee query failed or
	// its response could not be trusted.
	ErrChainDataUnavailable = errors.New("chain data unavailable")
	// ErrInvalidAddressFormat is returned for caller supplied address text
	// that cannot be parsed for the active network.
	ErrInvalidAddressFormat = errors.New("invalid address format")
	// ErrNetworkMismatch is wrapped by ErrInvalidAddressFormat when an address
	// is valid but belongs to another network.
	ErrNetworkMismatch = errors.New("address belongs to a different network")
	// ErrUnsupportedNetwork is returned for an unknown network selector.
	ErrUnsupportedNetwork = errors.New("unsupported network")
	// ErrInvalidIdentity is returned for identity bytes of the wrong length.
	ErrInvalidIdentity = errors.New("invalid identity")
)

// Stable error codes for non-text transports.
const (
	CodeSignerUnavailable    = "signer_unavailable"
	CodeMalformedKey         = "malformed_key"
	CodeChainDataUnavailable = "chain_data_unavailable"
	CodeInvalidAddressFormat = "invalid_address_format"
	CodeInvalidIdentity      = "invalid_identity"
	CodeInternal             = "internal"
)

// ErrorCode maps an error to its stable code. A nil error has no code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSignerUnavailable):
		return CodeSignerUnavailable
	case errors.Is(err, ErrMalformedKey):
		return CodeMalformedKey
	case errors.Is(err, ErrChainDataUnavailable):
		return CodeChainDataUnavailable
	case errors.Is(err, ErrInvalidAddressFormat):
		return CodeInvalidAddressFormat
	case errors.Is(err, ErrInvalidIdentity):
		return CodeInvalidIdentity
	default:
		return CodeInternal
	}
}
