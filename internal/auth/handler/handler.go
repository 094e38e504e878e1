// Package handler exposes the admin token exchange endpoint.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mlongerich/DonationTracker-sub003/internal/platform/secrets"
	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
	"github.com/mlongerich/DonationTracker-sub003/pkg/platform/httputil"
	"github.com/mlongerich/DonationTracker-sub003/pkg/requestcontext"
)

// Admin tokens are short-lived; ops tooling re-exchanges the secret as needed.
const tokenTTL = time.Hour

// TokenMinter issues signed admin tokens. jwttoken.JWTService satisfies it.
type TokenMinter interface {
	GenerateAdminToken(subject string, expiresIn time.Duration) (string, error)
}

// Handler exchanges the operator secret for a bearer token.
type Handler struct {
	tokens     TokenMinter
	secretHash string
	logger     *slog.Logger
}

// New constructs a token handler. secretHash is the bcrypt hash of the
// operator secret.
func New(tokens TokenMinter, secretHash string, logger *slog.Logger) *Handler {
	return &Handler{tokens: tokens, secretHash: secretHash, logger: logger}
}

// Register mounts the exchange endpoint on the public surface; the secret
// itself is the credential.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/token", h.HandleExchange)
}

// ExchangeRequest is the HTTP request body for POST /auth/token.
type ExchangeRequest struct {
	Operator string `json:"operator"`
	Secret   string `json:"secret"`
}

// Validate validates the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ExchangeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if r.Operator == "" {
		return dErrors.NewField("operator", "cannot be blank")
	}
	if r.Secret == "" {
		return dErrors.NewField("secret", "cannot be blank")
	}
	return nil
}

// ExchangeResponse carries the minted token.
type ExchangeResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

// HandleExchange handles POST /auth/token requests.
func (h *Handler) HandleExchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ExchangeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := secrets.Verify(req.Secret, h.secretHash); err != nil {
		h.logger.WarnContext(ctx, "admin token exchange refused",
			"request_id", requestID,
			"operator", req.Operator,
		)
		httputil.WriteError(w, err)
		return
	}

	token, err := h.tokens.GenerateAdminToken(req.Operator, tokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "admin token mint failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint token"))
		return
	}

	h.logger.InfoContext(ctx, "admin token issued",
		"request_id", requestID,
		"operator", req.Operator,
	)

	httputil.WriteJSON(w, http.StatusOK, ExchangeResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(tokenTTL.Seconds()),
	})
}
