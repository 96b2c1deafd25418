package context

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpoint/internal/core/id"
)

func TestActorFromUser(t *testing.T) {
	tenant, user := id.New(), id.New()

	a, err := ActorFromUser(&UserContext{
		TenantID: tenant.String(),
		UserID:   user.String(),
		UserName: "Ana",
		Roles:    []string{"manager", "cashier"},
	})

	require.NoError(t, err)
	assert.Equal(t, tenant, a.TenantID)
	assert.Equal(t, "manager", a.Role)
	assert.True(t, a.HasRole("admin", "manager"))
	assert.False(t, a.HasRole("admin"))
}

func TestActorFromUser_Rejects(t *testing.T) {
	_, err := ActorFromUser(nil)
	assert.ErrorIs(t, err, ErrNoUser)

	_, err = ActorFromUser(&UserContext{TenantID: id.Nil().String(), UserID: id.New().String()})
	assert.ErrorIs(t, err, ErrInvalidTenant)

	_, err = ActorFromUser(&UserContext{TenantID: id.New().String(), UserID: "nope"})
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestGetActor_Missing(t *testing.T) {
	_, err := GetActor(context.Background())
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestNewTrace(t *testing.T) {
	kept := NewTrace("abc-123", "req-9")
	assert.Equal(t, "abc-123", kept.TraceID)
	assert.Equal(t, "req-9", kept.RequestID)

	replaced := NewTrace("has space", strings.Repeat("x", maxCallerID+1))
	assert.NotEqual(t, "has space", replaced.TraceID)
	assert.Len(t, replaced.RequestID, 36)
}

func TestLogFields(t *testing.T) {
	assert.Empty(t, LogFields(context.Background()))

	ctx := WithTrace(context.Background(), NewTrace("t", "r"))
	ctx = WithActor(ctx, Actor{TenantID: id.New(), UserID: id.New(), Role: "admin"})

	kv := LogFields(ctx)
	assert.Len(t, kv, 10)
	assert.Equal(t, "trace_id", kv[0])
	assert.Equal(t, "admin", kv[9])
}
