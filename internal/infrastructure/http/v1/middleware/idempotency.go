package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/internal/core/id"
	"cashpoint/internal/infrastructure/storage/postgres"
	"cashpoint/pkg/logger"
)

const (
	HeaderIdempotencyKey     = "X-Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"

	maxIdempotencyBodyBytes = 1 << 20
	idempotencyStateKey     = "idempotency"
)

// IdempotencyStore persists keys and the responses to replay.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, tenantID id.ID, key string, userID id.ID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, tenantID id.ID, key string, statusCode int, contentType string, body []byte) error
	FailKey(ctx context.Context, tenantID id.ID, key string, statusCode int, contentType string, body []byte) error
	ReleaseKey(ctx context.Context, tenantID id.ID, key string) error
}

type idempotencyState struct {
	store    IdempotencyStore
	tenantID id.ID
	key      string
}

// Idempotency middleware replays the stored response of a request whose
// X-Idempotency-Key was already used by the same user for the same body.
// Must run after Auth.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		actor, err := appctx.GetActor(c.Request.Context())
		if err != nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.AcquireKey(c.Request.Context(), actor.TenantID, key, actor.UserID, operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
			} else {
				_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			}
			c.Abort()
			return
		}

		if replay != nil {
			c.Header(HeaderIdempotentReplayed, "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(idempotencyStateKey, &idempotencyState{store: store, tenantID: actor.TenantID, key: key})
		c.Next()
	}
}

// CompleteIdempotency stores a successful response for replay.
// It is a no-op when the request carries no idempotency key.
func CompleteIdempotency(c *gin.Context, statusCode int, response any) {
	st := getIdempotencyState(c)
	if st == nil {
		return
	}
	body, err := json.Marshal(response)
	if err != nil {
		logger.Error(c.Request.Context(), "encode idempotent response", "error", err)
		return
	}
	if err := st.store.CompleteKey(c.Request.Context(), st.tenantID, st.key, statusCode, "application/json", body); err != nil {
		logger.Error(c.Request.Context(), "complete idempotency key", "key", st.key, "error", err)
	}
}

// finishIdempotency records an error response. Client errors replay as is;
// server errors release the key so the client may retry.
func finishIdempotency(c *gin.Context, statusCode int, response any) {
	st := getIdempotencyState(c)
	if st == nil {
		return
	}
	ctx := c.Request.Context()

	if statusCode >= http.StatusInternalServerError {
		if err := st.store.ReleaseKey(ctx, st.tenantID, st.key); err != nil {
			logger.Error(ctx, "release idempotency key", "key", st.key, "error", err)
		}
		return
	}

	body, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := st.store.FailKey(ctx, st.tenantID, st.key, statusCode, "application/json", body); err != nil {
		logger.Error(ctx, "fail idempotency key", "key", st.key, "error", err)
	}
}

func getIdempotencyState(c *gin.Context) *idempotencyState {
	v, ok := c.Get(idempotencyStateKey)
	if !ok {
		return nil
	}
	st, _ := v.(*idempotencyState)
	return st
}
