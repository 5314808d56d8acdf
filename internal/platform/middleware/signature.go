package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"

	dErrors "flowgate/pkg/domain-errors"
	"flowgate/pkg/platform/httputil"
)

// SignatureHeader carries the platform's HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Hub-Signature-256"

// maxSignedBody caps how much of a delivery is buffered for verification.
const maxSignedBody = 1 << 20

// RequireSignature rejects POST bodies whose X-Hub-Signature-256 does not
// match HMAC-SHA256(appSecret, body). An empty secret disables the check.
func RequireSignature(appSecret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if appSecret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody))
			if err != nil {
				logger.WarnContext(ctx, "failed to read signed body",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable body"))
				return
			}

			if !ValidSignature(appSecret, body, r.Header.Get(SignatureHeader)) {
				logger.WarnContext(ctx, "rejected delivery with invalid signature",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid signature"))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// ValidSignature checks a "sha256=<hex>" header against body.
func ValidSignature(appSecret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
