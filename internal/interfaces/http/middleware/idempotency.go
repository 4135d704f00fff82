// internal/interfaces/http/middleware/idempotency.go
package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "X-Idempotent-Replay"
	maxIdempotencyKeyLength = 128
)

// IdempotencyStatus is the lifecycle of a stored key
type IdempotencyStatus string

const (
	IdempotencyPending   IdempotencyStatus = "pending"
	IdempotencyCompleted IdempotencyStatus = "completed"
)

// IdempotencyRecord is what a key maps to while and after the request runs
type IdempotencyRecord struct {
	Fingerprint     string            `json:"fingerprint"`
	Status          IdempotencyStatus `json:"status"`
	ResponseStatus  int               `json:"response_status,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	ResponseBody    []byte            `json:"response_body,omitempty"`
}

// IdempotencyStore persists key reservations
type IdempotencyStore interface {
	// Reserve claims key. When the key already exists it returns the stored
	// record and false.
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (IdempotencyRecord, bool, error)
	Complete(ctx context.Context, key string, record IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through. Server errors release the key
// so the client may retry.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortWith(c, apperrors.CodeValidation, "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortWith(c, apperrors.CodeValidation, "Unable to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		scope := idempotencyScope(c, key)
		fingerprint := fingerprintRequest(c.Request.Method, c.FullPath(), body)

		record, reserved, err := store.Reserve(c.Request.Context(), scope, fingerprint, ttl)
		if err != nil {
			// store outage: serve without replay protection
			logger.WithError(err).WithField("path", c.FullPath()).Warn("idempotency store unavailable")
			c.Next()
			return
		}

		if !reserved {
			switch {
			case record.Fingerprint != fingerprint:
				abortWith(c, apperrors.CodeIdempotency, "Idempotency-Key was already used with a different request")
			case record.Status != IdempotencyCompleted:
				abortWith(c, apperrors.CodeIdempotency, "A request with this Idempotency-Key is still in progress")
			default:
				replay(c, record)
			}
			return
		}

		recorder := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		// a detached context so a cancelled request still settles its key
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 3*time.Second)
		defer cancel()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, scope); err != nil {
				logger.WithError(err).Warn("failed to release idempotency key")
			}
			return
		}

		record = IdempotencyRecord{
			Fingerprint:    fingerprint,
			Status:         IdempotencyCompleted,
			ResponseStatus: status,
			ResponseBody:   recorder.body.Bytes(),
		}
		if ct := recorder.Header().Get("Content-Type"); ct != "" {
			record.ResponseHeaders = map[string]string{"Content-Type": ct}
		}
		if err := store.Complete(ctx, scope, record, ttl); err != nil {
			logger.WithError(err).Warn("failed to persist idempotent response")
		}
	}
}

func idempotencyScope(c *gin.Context, key string) string {
	user := "anonymous"
	if id, ok := GetUserIDFromContext(c); ok {
		user = strconv.FormatUint(uint64(id), 10)
	}
	return user + "|" + c.Request.Method + "|" + c.FullPath() + "|" + key
}

func fingerprintRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func replay(c *gin.Context, record IdempotencyRecord) {
	for k, v := range record.ResponseHeaders {
		c.Header(k, v)
	}
	c.Header(idempotencyReplayHeader, "true")
	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	c.Status(status)
	_, _ = c.Writer.Write(record.ResponseBody)
	c.Abort()
}

type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// MemoryIdempotencyStore keeps keys in process memory. Used when Redis is
// not configured and in tests.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	record    IdempotencyRecord
	expiresAt time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{records: make(map[string]memoryRecord), now: time.Now}
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key, fingerprint string, ttl time.Duration) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && s.now().Before(existing.expiresAt) {
		return existing.record, false, nil
	}
	rec := IdempotencyRecord{Fingerprint: fingerprint, Status: IdempotencyPending}
	s.records[key] = memoryRecord{record: rec, expiresAt: s.now().Add(ttl)}
	return rec, true, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key string, record IdempotencyRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Status = IdempotencyCompleted
	s.records[key] = memoryRecord{record: record, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
