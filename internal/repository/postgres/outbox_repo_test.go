package postgres_test

import (
	"context"
	"testing"

	"github.com/dom/account-auth/internal/domain"
	"github.com/dom/account-auth/internal/repository/postgres"
	"github.com/dom/account-auth/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestMailOutboxRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewMailOutboxRepository(testDB.DB)
	ctx := context.Background()

	msg := domain.ActivationMessage{To: "outbox@example.com", ActivationLink: uuid.NewString()}
	pending := &domain.PendingMail{Message: datatypes.NewJSONType(msg)}
	require.NoError(t, repo.Enqueue(ctx, pending))
	assert.NotEqual(t, uuid.Nil, pending.ID)

	listed, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, msg, listed[0].Message.Data())
	assert.Equal(t, 0, listed[0].Attempts)

	require.NoError(t, repo.MarkFailed(ctx, pending.ID, "connection refused"))
	require.NoError(t, repo.MarkFailed(ctx, pending.ID, "timeout"))

	listed, err = repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 2, listed[0].Attempts)
	assert.Equal(t, "timeout", listed[0].LastError)

	assert.ErrorIs(t, repo.MarkFailed(ctx, uuid.New(), "x"), domain.ErrPendingMailNotFound)

	require.NoError(t, repo.Delete(ctx, pending.ID))
	listed, err = repo.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
