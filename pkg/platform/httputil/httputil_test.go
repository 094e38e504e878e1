package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "github.com/mlongerich/DonationTracker-sub003/pkg/domain-errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal" {
			t.Fatalf("expected error code internal, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("validation error includes description and field", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.NewField("amount_cents", "must be positive"))

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "validation" {
			t.Fatalf("expected error code validation, got %q", body["error"])
		}
		if body["field"] != "amount_cents" {
			t.Fatalf("expected field amount_cents, got %q", body["field"])
		}
		if body["error_description"] == "" {
			t.Fatalf("expected error_description to be returned for validation errors")
		}
	})

	t.Run("status mapping", func(t *testing.T) {
		cases := map[dErrors.Code]int{
			dErrors.CodeValidation:         http.StatusUnprocessableEntity,
			dErrors.CodeInvalidInput:       http.StatusBadRequest,
			dErrors.CodeConflict:           http.StatusConflict,
			dErrors.CodeInvariantViolation: http.StatusConflict,
			dErrors.CodeNotFound:           http.StatusNotFound,
			dErrors.CodeUnauthorized:       http.StatusUnauthorized,
			dErrors.CodeTimeout:            http.StatusGatewayTimeout,
			dErrors.CodeInternal:           http.StatusInternalServerError,
		}
		for code, status := range cases {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(code, "boom"))
			if w.Code != status {
				t.Fatalf("code %s: expected status %d, got %d", code, status, w.Code)
			}
		}
	})
}

type decodeProbe struct {
	Amount int64 `json:"amount"`

	validated bool
}

func (p *decodeProbe) Validate() error {
	p.validated = true
	if p.Amount <= 0 {
		return dErrors.NewField("amount", "must be positive")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := discardLogger()

	t.Run("valid body passes through validated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount": 5}`))

		req, ok := DecodeAndPrepare[decodeProbe](w, r, logger, r.Context(), "req-1")
		if !ok {
			t.Fatalf("expected decode to succeed, got %d %s", w.Code, w.Body.String())
		}
		if !req.validated || req.Amount != 5 {
			t.Fatalf("expected validated request with amount 5, got %+v", req)
		}
	})

	t.Run("malformed JSON is invalid input", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{nope`))

		if _, ok := DecodeAndPrepare[decodeProbe](w, r, logger, r.Context(), "req-1"); ok {
			t.Fatalf("expected decode to fail")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("validation failure writes the coded error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount": 0}`))

		if _, ok := DecodeAndPrepare[decodeProbe](w, r, logger, r.Context(), "req-1"); ok {
			t.Fatalf("expected validation to fail")
		}
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
		}
	})
}
