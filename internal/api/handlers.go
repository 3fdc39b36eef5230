package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/OKaluzny/walletd/internal/auth"
	"github.com/OKaluzny/walletd/pkg/models"
)

const codeUnauthenticated = "unauthenticated"

type addressResponse struct {
	Address string         `json:"address"`
	Network models.Network `json:"network"`
}

type balanceResponse struct {
	Address string         `json:"address"`
	Network models.Network `json:"network"`
	Balance uint64         `json:"balance"`
	Text    string         `json:"text"`
}

type statusResponse struct {
	Network   models.Network `json:"network"`
	Online    bool           `json:"online"`
	Reason    string         `json:"reason,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
	Text      string         `json:"text"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newBalanceResponse(b models.Balance) balanceResponse {
	return balanceResponse{
		Address: b.Address.Encoded,
		Network: b.Address.Network,
		Balance: b.Sats,
		Text:    b.String(),
	}
}

type identityHandler func(w http.ResponseWriter, r *http.Request, identity models.Identity)

// authenticated resolves the bearer token to an identity before calling next.
func (s *Server) authenticated(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.authn.FromAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			requestLogger(r, s.logger).WithError(err).Info("rejected request")
			w.Header().Set("WWW-Authenticate", `Bearer realm="walletd"`)
			writeJSON(w, http.StatusUnauthorized, errorResponse{
				Code:    codeUnauthenticated,
				Message: auth.ErrUnauthenticated.Error(),
			})
			return
		}
		next(w, r, claims.Identity())
	})
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request, identity models.Identity) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	addr, err := s.facade.GetAddress(ctx, identity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addressResponse{Address: addr.Encoded, Network: addr.Network})
}

func (s *Server) handleOwnBalance(w http.ResponseWriter, r *http.Request, identity models.Identity) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	bal, err := s.facade.GetOwnBalance(ctx, identity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceResponse(bal))
}

func (s *Server) handleBalanceOf(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	bal, err := s.facade.GetBalanceOf(ctx, r.PathValue("address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceResponse(bal))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	status := s.facade.ProbeConnectivity(ctx)
	writeJSON(w, http.StatusOK, statusResponse{
		Network:   status.Network,
		Online:    status.Online,
		Reason:    status.Reason,
		CheckedAt: status.CheckedAt,
		Text:      status.String(),
	})
}

// statusFor maps an error code to the HTTP status returned to callers.
func statusFor(code string) int {
	switch code {
	case models.CodeSignerUnavailable, models.CodeChainDataUnavailable:
		return http.StatusServiceUnavailable
	case models.CodeMalformedKey:
		return http.StatusBadGateway
	case models.CodeInvalidAddressFormat, models.CodeInvalidIdentity:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := models.ErrorCode(err)
	status := statusFor(code)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}

	requestLogger(r, s.logger).WithError(err).WithField("code", code).Warn("request failed")
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
