package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
)

var sagaRowColumns = []string{
	"id", "user_id", "source_chain", "destination_chain", "recipient", "amount", "stage", "outcome",
	"failed_at", "failure_code", "failure_message", "approval_tx_hash", "burn_tx_hash", "mint_tx_hash",
	"delivery_tx_hash", "destination_wallet_address", "delivery_attempts", "await_completion", "stalled",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*BridgeSagaRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBridgeSagaRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestBridgeSagaRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	saga := &entities.BridgeSaga{
		ID:               "2ZJcYkV1cQwP3nYw6tB0f8rXh9L",
		UserID:           "user-1",
		SourceChain:      "arcTestnet",
		DestinationChain: "baseSepolia",
		Amount:           "0.10",
		Stage:            entities.StageInitiated,
		Outcome:          entities.OutcomePending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bridge_sagas")).
		WithArgs(saga.ID, "user-1", "arcTestnet", "baseSepolia", "", "0.10",
			entities.StageInitiated, entities.OutcomePending, entities.SagaStage(""), "", "",
			nil, nil, nil, nil, "", 0, false, false, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), saga))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBridgeSagaRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		now := time.Now()
		rows := sqlmock.NewRows(sagaRowColumns).AddRow(
			"saga-1", "user-1", "arcTestnet", "baseSepolia", "0x1111111111111111111111111111111111111111", "1.5",
			"minted", "failed", "delivered", "DELIVERY_FAILED", "delivery transfer failed",
			"", "0xburn", "0xmint", "", "0x7a2F5c3B9e1D4f6A8b0C2d4E6f8A0b2C4d6E8f0A", 5, true, false, now, now,
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM bridge_sagas WHERE id = $1")).WithArgs("saga-1").WillReturnRows(rows)

		saga, err := repo.GetByID(context.Background(), "saga-1")

		require.NoError(t, err)
		assert.Equal(t, "1.5", saga.Amount)
		assert.Equal(t, entities.StageMinted, saga.Stage)
		assert.Equal(t, entities.StageDelivered, saga.FailedAt)
		assert.Equal(t, "0xburn", saga.BurnTxHash)
		assert.Equal(t, 5, saga.DeliveryAttempts)
		assert.True(t, saga.IsResumable())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM bridge_sagas WHERE id = $1")).WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(sagaRowColumns))

		_, err := repo.GetByID(context.Background(), "nope")
		assert.ErrorIs(t, err, domainerrors.ErrSagaNotFound)
	})
}

func TestBridgeSagaRepository_Update(t *testing.T) {
	repo, mock := newMockRepo(t)
	saga := &entities.BridgeSaga{
		ID:         "saga-1",
		Stage:      entities.StageBurned,
		Outcome:    entities.OutcomePending,
		BurnTxHash: "0xburn",
		UpdatedAt:  time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bridge_sagas SET")).
		WithArgs("saga-1", "", entities.StageBurned, entities.OutcomePending, entities.SagaStage(""), "", "",
			nil, "0xburn", nil, nil, "", 0, false, false, saga.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), saga))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bridge_sagas SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), &entities.BridgeSaga{ID: "gone", UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, domainerrors.ErrSagaNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBridgeSagaRepository_Stalled(t *testing.T) {
	repo, mock := newMockRepo(t)
	before := time.Now().Add(-30 * time.Minute)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE outcome = $1 AND stalled = FALSE AND updated_at < $2")).
		WithArgs(entities.OutcomePending, before, 50).
		WillReturnRows(sqlmock.NewRows(sagaRowColumns).AddRow(
			"saga-2", "user-1", "arcTestnet", "ethereumSepolia", "", "3", "burned", "pending", "", "", "",
			"", "0xburn2", "", "", "", 0, false, false, now, before.Add(-time.Minute),
		))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bridge_sagas SET stalled = TRUE")).
		WithArgs("saga-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bridge_sagas SET stalled = TRUE")).
		WithArgs("saga-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	sagas, err := repo.ListStalled(context.Background(), before, 50)
	require.NoError(t, err)
	require.Len(t, sagas, 1)
	assert.Equal(t, "0xburn2", sagas[0].BurnTxHash)

	marked, err := repo.MarkStalled(context.Background(), "saga-2")
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = repo.MarkStalled(context.Background(), "saga-2")
	require.NoError(t, err)
	assert.False(t, marked)

	assert.NoError(t, mock.ExpectationsWereMet())
}
