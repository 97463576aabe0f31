package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
)

const sagaColumns = `
	id, user_id, source_chain, destination_chain, recipient, amount, stage, outcome,
	failed_at, failure_code, failure_message,
	COALESCE(approval_tx_hash, '') AS approval_tx_hash,
	COALESCE(burn_tx_hash, '') AS burn_tx_hash,
	COALESCE(mint_tx_hash, '') AS mint_tx_hash,
	COALESCE(delivery_tx_hash, '') AS delivery_tx_hash,
	destination_wallet_address, delivery_attempts, await_completion, stalled,
	created_at, updated_at`

// BridgeSagaRepository persists bridge saga records in postgres
type BridgeSagaRepository struct {
	db *sqlx.DB
}

// NewBridgeSagaRepository creates a new bridge saga repository
func NewBridgeSagaRepository(db *sqlx.DB) *BridgeSagaRepository {
	return &BridgeSagaRepository{db: db}
}

func (r *BridgeSagaRepository) Create(ctx context.Context, saga *entities.BridgeSaga) error {
	query := `
		INSERT INTO bridge_sagas (
			id, user_id, source_chain, destination_chain, recipient, amount, stage, outcome,
			failed_at, failure_code, failure_message, approval_tx_hash, burn_tx_hash,
			mint_tx_hash, delivery_tx_hash, destination_wallet_address, delivery_attempts,
			await_completion, stalled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err := r.db.ExecContext(ctx, query,
		saga.ID, saga.UserID, saga.SourceChain, saga.DestinationChain, saga.Recipient, saga.Amount,
		saga.Stage, saga.Outcome, saga.FailedAt, saga.FailureCode, saga.FailureMessage,
		nullString(saga.ApprovalTxHash), nullString(saga.BurnTxHash),
		nullString(saga.MintTxHash), nullString(saga.DeliveryTxHash),
		saga.DestinationWalletAddress, saga.DeliveryAttempts, saga.AwaitCompletion, saga.Stalled,
		saga.CreatedAt, saga.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bridge saga: %w", err)
	}
	return nil
}

func (r *BridgeSagaRepository) GetByID(ctx context.Context, id string) (*entities.BridgeSaga, error) {
	var saga entities.BridgeSaga
	query := `SELECT ` + sagaColumns + ` FROM bridge_sagas WHERE id = $1`
	if err := r.db.GetContext(ctx, &saga, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.SagaNotFoundError(id)
		}
		return nil, fmt.Errorf("get bridge saga: %w", err)
	}
	return &saga, nil
}

// GetByBurnTxHash returns nil, nil when no saga burned with txHash.
func (r *BridgeSagaRepository) GetByBurnTxHash(ctx context.Context, txHash string) (*entities.BridgeSaga, error) {
	var saga entities.BridgeSaga
	query := `SELECT ` + sagaColumns + ` FROM bridge_sagas WHERE burn_tx_hash = $1`
	if err := r.db.GetContext(ctx, &saga, query, txHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bridge saga by burn hash: %w", err)
	}
	return &saga, nil
}

func (r *BridgeSagaRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.BridgeSaga, error) {
	sagas := []*entities.BridgeSaga{}
	query := `SELECT ` + sagaColumns + ` FROM bridge_sagas WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &sagas, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list bridge sagas: %w", err)
	}
	return sagas, nil
}

func (r *BridgeSagaRepository) Update(ctx context.Context, saga *entities.BridgeSaga) error {
	query := `
		UPDATE bridge_sagas SET
			recipient = $2, stage = $3, outcome = $4, failed_at = $5, failure_code = $6,
			failure_message = $7, approval_tx_hash = $8, burn_tx_hash = $9, mint_tx_hash = $10,
			delivery_tx_hash = $11, destination_wallet_address = $12, delivery_attempts = $13,
			await_completion = $14, stalled = $15, updated_at = $16
		WHERE id = $1`

	if saga.UpdatedAt.IsZero() {
		saga.UpdatedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, query,
		saga.ID, saga.Recipient, saga.Stage, saga.Outcome, saga.FailedAt, saga.FailureCode,
		saga.FailureMessage, nullString(saga.ApprovalTxHash), nullString(saga.BurnTxHash),
		nullString(saga.MintTxHash), nullString(saga.DeliveryTxHash), saga.DestinationWalletAddress,
		saga.DeliveryAttempts, saga.AwaitCompletion, saga.Stalled, saga.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update bridge saga: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domainerrors.SagaNotFoundError(saga.ID)
	}
	return nil
}

// ListStalled returns pending sagas not touched since before and not yet flagged, oldest first.
func (r *BridgeSagaRepository) ListStalled(ctx context.Context, before time.Time, limit int) ([]*entities.BridgeSaga, error) {
	sagas := []*entities.BridgeSaga{}
	query := `
		SELECT ` + sagaColumns + ` FROM bridge_sagas
		WHERE outcome = $1 AND stalled = FALSE AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &sagas, query, entities.OutcomePending, before, limit); err != nil {
		return nil, fmt.Errorf("list stalled bridge sagas: %w", err)
	}
	return sagas, nil
}

// MarkStalled flags a saga for operator attention. It reports false when another sweep got there first.
func (r *BridgeSagaRepository) MarkStalled(ctx context.Context, id string) (bool, error) {
	query := `UPDATE bridge_sagas SET stalled = TRUE, updated_at = $2 WHERE id = $1 AND stalled = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return false, fmt.Errorf("mark bridge saga stalled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
