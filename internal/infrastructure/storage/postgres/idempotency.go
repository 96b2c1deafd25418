package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"cashpoint/internal/core/apperror"
	"cashpoint/internal/core/id"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// stalePendingAfter is how long a pending key may stay unfinished before
// another request may reclaim it.
const stalePendingAfter = time.Minute

// IdempotencyRecord stores the result of an idempotent operation.
type IdempotencyRecord struct {
	TenantID    id.ID             `db:"tenant_id"`
	Key         string            `db:"idempotency_key"`
	UserID      id.ID             `db:"user_id"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  *int              `db:"response_status"`
	ContentType *string           `db:"response_content_type"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
}

// IdempotencyReplay is the cached HTTP response for replay.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore manages idempotency keys per tenant.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{txManager: txManager, ttl: ttl, now: time.Now}
}

// AcquireKey attempts to acquire an idempotency key.
// Returns:
//   - (nil, nil) if the key was acquired and the request should run
//   - (replay, nil) if the operation already finished
//   - (nil, error) if the key is in flight or was used for a different request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, tenantID id.ID, key string, userID id.ID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now().UTC()
	q := s.txManager.GetQuerier(ctx)

	tag, err := q.Exec(ctx, `
		INSERT INTO sys_idempotency (tenant_id, idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8)
		ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
	`, tenantID, key, userID, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	var record IdempotencyRecord
	err = pgxscan.Get(ctx, q, &record, `
		SELECT tenant_id, idempotency_key, user_id, operation, status, request_hash,
		       response, response_status, response_content_type, created_at, updated_at, expires_at
		FROM sys_idempotency
		WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, key)
	if err != nil {
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}

	if record.ExpiresAt.Before(now) {
		return s.reclaim(ctx, record, userID, operation, requestHash, now)
	}

	if record.UserID != userID || record.Operation != operation || record.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", record.Operation).
			WithDetail("request_operation", operation)
	}

	switch record.Status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return replayOf(record), nil
	case IdempotencyStatusPending:
		if now.Sub(record.UpdatedAt) > stalePendingAfter {
			return s.reclaim(ctx, record, userID, operation, requestHash, now)
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, fmt.Errorf("unknown idempotency status %q", record.Status)
}

// reclaim takes over an expired or abandoned key. Only one request wins the
// conditional update.
func (s *IdempotencyStore) reclaim(ctx context.Context, record IdempotencyRecord, userID id.ID, operation, requestHash string, now time.Time) (*IdempotencyReplay, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET user_id = $1, operation = $2, request_hash = $3, status = $4,
		    response = NULL, response_status = NULL, response_content_type = NULL,
		    updated_at = $5, expires_at = $6
		WHERE tenant_id = $7 AND idempotency_key = $8 AND updated_at = $9
	`, userID, operation, requestHash, IdempotencyStatusPending, now, now.Add(s.ttl),
		record.TenantID, record.Key, record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(record.Key)
	}
	return nil, nil
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, tenantID id.ID, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, tenantID, key, IdempotencyStatusSuccess, statusCode, contentType, body)
}

// FailKey stores an error response for replay.
func (s *IdempotencyStore) FailKey(ctx context.Context, tenantID id.ID, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, tenantID, key, IdempotencyStatusFailed, statusCode, contentType, body)
}

// ReleaseKey drops a pending key so the client may retry. Used after server
// errors, whose transactions rolled back.
func (s *IdempotencyStore) ReleaseKey(ctx context.Context, tenantID id.ID, key string) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency
		WHERE tenant_id = $1 AND idempotency_key = $2 AND status = $3
	`, tenantID, key, IdempotencyStatusPending)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) finish(ctx context.Context, tenantID id.ID, key string, status IdempotencyStatus, statusCode int, contentType string, body []byte) error {
	if key == "" {
		return errors.New("empty idempotency key")
	}
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1, response = $2, response_status = $3, response_content_type = $4, updated_at = $5
		WHERE tenant_id = $6 AND idempotency_key = $7
	`, status, body, statusCode, contentType, s.now().UTC(), tenantID, key)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE expires_at < $1
	`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return result.RowsAffected(), nil
}

func replayOf(r IdempotencyRecord) *IdempotencyReplay {
	replay := &IdempotencyReplay{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        r.Response,
	}
	if r.StatusCode != nil && *r.StatusCode != 0 {
		replay.StatusCode = *r.StatusCode
	}
	if r.ContentType != nil && *r.ContentType != "" {
		replay.ContentType = *r.ContentType
	}
	return replay
}
