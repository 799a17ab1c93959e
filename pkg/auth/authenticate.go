package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/edukit/eduguard/pkg/observability"
)

// Authenticator runs the request authentication pipeline.
type Authenticator struct {
	verifier TokenVerifier
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// Authentication outcome labels for the attempt counter
const (
	outcomeSuccess      = "success"
	outcomeMissingToken = "missing_token"
	outcomeInvalidToken = "invalid_token"
	outcomeError        = "error"
)

// NewAuthenticator wires a verifier and a logger. A nil logger disables
// server-side failure logging.
func NewAuthenticator(verifier TokenVerifier, logger *observability.Logger) *Authenticator {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Authenticator{verifier: verifier, logger: logger}
}

// SetMetrics enables the attempt counter and verification duration
// histogram. Safe to leave unset.
func (a *Authenticator) SetMetrics(m *observability.Metrics) {
	a.metrics = m
}

func (a *Authenticator) countAttempt(outcome string) {
	if a.metrics != nil {
		a.metrics.AuthAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

// ExtractToken pulls the bearer token from the request. The Authorization
// header wins; the access-token cookie is the fallback for browser
// clients. Returns "" when neither carries a token.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1]
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// AuthenticateRequest resolves the request to a user or a typed failure.
// It never panics; malfunctions surface as a 500 Result with a generic
// message while the real error goes to the server log.
func (a *Authenticator) AuthenticateRequest(r *http.Request) Result {
	token := ExtractToken(r)
	if token == "" {
		a.countAttempt(outcomeMissingToken)
		return Result{Error: MsgNoToken, Status: http.StatusUnauthorized}
	}

	start := time.Now()
	claims, err := a.verifier.VerifyToken(r.Context(), token, TokenTypeAccess)
	if a.metrics != nil {
		a.metrics.TokenVerificationDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			a.countAttempt(outcomeInvalidToken)
			return Result{Error: MsgInvalidToken, Status: http.StatusUnauthorized}
		}
		a.countAttempt(outcomeError)
		a.logger.WithError(err).WithField("path", r.URL.Path).Error("token verification failed")
		return Result{Error: MsgAuthFailed, Status: http.StatusInternalServerError}
	}

	a.countAttempt(outcomeSuccess)
	return Result{Success: true, User: claims.User()}
}
