package middleware

import (
	"bytes"
	"io"
	"net/http"

	"fleetlink/pkg/logger"
)

// SignatureVerifier reports whether signature authenticates body.
type SignatureVerifier func(body []byte, signature string) bool

// WebhookSignature rejects requests whose body does not verify against the
// signature in header. The body is restored for the next handler.
func WebhookSignature(header string, verify SignatureVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := r.Header.Get(header)
			if signature == "" {
				logAndReject(w, log, r, "Missing "+header+" header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				logAndReject(w, log, r, "Failed to read request body")
				return
			}

			if !verify(body, signature) {
				logAndReject(w, log, r, "Invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}

func logAndReject(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Webhook verification failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
}
