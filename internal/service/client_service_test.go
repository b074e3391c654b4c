package service

import (
	"context"
	"testing"

	"invoicing/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestClientService_CRUD(t *testing.T) {
	cache := newMemCache()
	svc := NewClientService(newStubClientRepo(), cache)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.CreateClientRequest{Name: "  Acme  ", Email: strPtr("ops@acme.test")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", created.Name)
	id := uuid.MustParse(created.ID)

	updated, err := svc.Update(ctx, id, dto.UpdateClientRequest{Phone: strPtr("555-0100")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Name, "absent fields are left alone")
	assert.Equal(t, "ops@acme.test", *updated.Email)
	assert.Equal(t, "555-0100", *updated.Phone)

	list, err := svc.List(ctx, dto.ClientFilter{Search: "acm"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, id))
	assert.Equal(t, 1, cache.invalidations, "detached invoices change client-filtered summaries")
	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrClientNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, id), ErrClientNotFound)
	_, err = svc.Update(ctx, id, dto.UpdateClientRequest{})
	assert.ErrorIs(t, err, ErrClientNotFound)
}
