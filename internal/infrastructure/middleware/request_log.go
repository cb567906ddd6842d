package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const maxLoggedBody = 64 << 10

// RequestLogMiddleware stores one observability record per request with the
// decoded response body. A failed write is logged and never affects the
// response.
func RequestLogMiddleware(repo ports.RequestLogRepository, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			body := &limitedBuffer{max: maxLoggedBody}
			ww.Tee(body)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := &domain.RequestLog{
				Method:     r.Method,
				URL:        r.URL.RequestURI(),
				IP:         r.RemoteAddr,
				UserAgent:  r.UserAgent(),
				StatusCode: status,
				Type:       domain.RequestLogSuccess,
				CreatedAt:  time.Now().UTC(),
			}
			decoded := decodeBody(body)
			if status >= http.StatusBadRequest {
				entry.Type = domain.RequestLogError
				entry.Error = decoded
			} else {
				entry.Response = decoded
			}

			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
			defer cancel()
			if err := repo.Create(ctx, entry); err != nil {
				logger.Warn().
					Err(err).
					Str("method", r.Method).
					Str("url", entry.URL).
					Msg("Failed to store request log")
			}
		})
	}
}

func decodeBody(b *limitedBuffer) any {
	if b.truncated {
		return map[string]any{"truncated": true, "size": b.total}
	}
	raw := bytes.TrimSpace(b.Bytes())
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// limitedBuffer keeps at most max bytes and remembers whether more were
// written
type limitedBuffer struct {
	bytes.Buffer
	max       int
	total     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.total += len(p)
	if room := b.max - b.Len(); room > 0 {
		if len(p) > room {
			b.Buffer.Write(p[:room])
			b.truncated = true
		} else {
			b.Buffer.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}
