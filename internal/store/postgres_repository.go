/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the SQL needed for the streamer and tip tables, including the
 * settlement transaction that forms the service's only financial write path.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tippay/tip-service/internal/domain"
)

var (
	ErrStreamerNotFound  = errors.New("streamer not found")
	ErrTipNotFound       = errors.New("tip not found")
	ErrTipAlreadySettled = errors.New("tip already settled")
	ErrTipAlreadyFailed  = errors.New("tip already failed")
	ErrDuplicateOrderID  = errors.New("duplicate order id")
)

const streamerColumns = `id, btrim(username), email, payout_account_id, alert_token,
	overlay_theme, overlay_show_amount, overlay_show_message, overlay_sound_enabled,
	overlay_min_tip_amount, overlay_max_tip_amount, overlay_animation_duration_ms,
	is_active, total_earnings, tip_count, created_at, last_active`

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanStreamer(row pgx.Row) (*domain.Streamer, error) {
	var s domain.Streamer
	err := row.Scan(
		&s.ID, &s.Username, &s.Email, &s.PayoutAccountID, &s.AlertToken,
		&s.OverlaySettings.Theme, &s.OverlaySettings.ShowAmount, &s.OverlaySettings.ShowMessage,
		&s.OverlaySettings.SoundEnabled, &s.OverlaySettings.MinTipAmount,
		&s.OverlaySettings.MaxTipAmount, &s.OverlaySettings.AnimationDurationMS,
		&s.IsActive, &s.TotalEarnings, &s.TipCount, &s.CreatedAt, &s.LastActive,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrStreamerNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindStreamerByID retrieves a streamer by their internal UUID.
func (r *PostgresRepository) FindStreamerByID(ctx context.Context, id uuid.UUID) (*domain.Streamer, error) {
	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE id = $1`
	return scanStreamer(r.db.QueryRow(ctx, query, id))
}

// FindStreamerByUsername retrieves a streamer by their public username.
func (r *PostgresRepository) FindStreamerByUsername(ctx context.Context, username string) (*domain.Streamer, error) {
	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE lower(btrim(username)) = lower(btrim($1))`
	return scanStreamer(r.db.QueryRow(ctx, query, username))
}

// UpdateOverlaySettings persists a streamer's overlay configuration and refreshes
// their last-active timestamp.
func (r *PostgresRepository) UpdateOverlaySettings(ctx context.Context, streamerID uuid.UUID, settings domain.OverlaySettings) error {
	query := `
		UPDATE streamers
		SET
			overlay_theme = $2,
			overlay_show_amount = $3,
			overlay_show_message = $4,
			overlay_sound_enabled = $5,
			overlay_min_tip_amount = $6,
			overlay_max_tip_amount = $7,
			overlay_animation_duration_ms = $8,
			last_active = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		streamerID,
		settings.Theme,
		settings.ShowAmount,
		settings.ShowMessage,
		settings.SoundEnabled,
		settings.MinTipAmount,
		settings.MaxTipAmount,
		settings.AnimationDurationMS,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrStreamerNotFound
	}
	return nil
}

// UpdateAlertToken stores the third-party alert service credential for a streamer.
func (r *PostgresRepository) UpdateAlertToken(ctx context.Context, streamerID uuid.UUID, token string) error {
	query := `UPDATE streamers SET alert_token = $2, last_active = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, streamerID, token)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrStreamerNotFound
	}
	return nil
}

// CreateTip inserts a new pending tip record. The unique constraint on order_id
// maps to ErrDuplicateOrderID.
func (r *PostgresRepository) CreateTip(ctx context.Context, tip *domain.Tip) error {
	query := `
		INSERT INTO tips (id, streamer_id, donor_name, amount, message, order_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		tip.ID,
		tip.StreamerID,
		tip.DonorName,
		tip.Amount,
		tip.Message,
		tip.OrderID,
		tip.Status,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateOrderID
		}
		return err
	}
	return nil
}

const tipColumns = `id, streamer_id, donor_name, amount, COALESCE(message, ''), order_id,
	payment_id, status, commission, transfer_amount, failure_reason, created_at, updated_at`

func scanTip(row pgx.Row) (*domain.Tip, error) {
	var t domain.Tip
	err := row.Scan(
		&t.ID, &t.StreamerID, &t.DonorName, &t.Amount, &t.Message, &t.OrderID,
		&t.PaymentID, &t.Status, &t.Commission, &t.TransferAmount, &t.FailureReason, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTipNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindTipByOrderID retrieves a tip by its gateway order reference.
func (r *PostgresRepository) FindTipByOrderID(ctx context.Context, orderID string) (*domain.Tip, error) {
	query := `SELECT ` + tipColumns + ` FROM tips WHERE order_id = $1`
	return scanTip(r.db.QueryRow(ctx, query, orderID))
}

// SettleTip completes a pending tip and credits the streamer in one transaction.
// The UPDATE is conditional on status = 'pending': concurrent or replayed webhook
// deliveries for the same order race on that row and exactly one wins. Losers get
// ErrTipAlreadySettled (or ErrTipAlreadyFailed) without touching the streamer.
func (r *PostgresRepository) SettleTip(ctx context.Context, params SettleTipParams) (*domain.Tip, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settlement tx: %w", err)
	}
	defer tx.Rollback(ctx)

	settleQuery := `
		UPDATE tips
		SET
			status = 'completed',
			payment_id = $2,
			commission = $3,
			transfer_amount = $4,
			updated_at = NOW()
		WHERE order_id = $1 AND status = 'pending'
		RETURNING ` + tipColumns + `
	`
	tip, err := scanTip(tx.QueryRow(ctx, settleQuery,
		params.OrderID, params.PaymentID, params.Commission, params.TransferAmount))
	if err != nil {
		if !errors.Is(err, ErrTipNotFound) {
			return nil, fmt.Errorf("settle tip: %w", err)
		}
		// No pending row matched. Distinguish a missing order from a replay.
		existing, lookupErr := r.FindTipByOrderID(ctx, params.OrderID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		switch existing.Status {
		case domain.TipStatusCompleted:
			return existing, ErrTipAlreadySettled
		case domain.TipStatusFailed:
			return existing, ErrTipAlreadyFailed
		}
		return nil, fmt.Errorf("settle tip: unexpected status %q for order %s", existing.Status, params.OrderID)
	}

	creditQuery := `
		UPDATE streamers
		SET total_earnings = total_earnings + $2, tip_count = tip_count + 1, last_active = NOW()
		WHERE id = $1
	`
	result, err := tx.Exec(ctx, creditQuery, tip.StreamerID, params.TransferAmount)
	if err != nil {
		return nil, fmt.Errorf("credit streamer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrStreamerNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settlement tx: %w", err)
	}
	return tip, nil
}

// MarkTipFailed moves a pending tip to the terminal failed state. Already-settled
// tips are left untouched.
func (r *PostgresRepository) MarkTipFailed(ctx context.Context, orderID string, reason string) error {
	query := `
		UPDATE tips
		SET status = 'failed', failure_reason = NULLIF($2, ''), updated_at = NOW()
		WHERE order_id = $1 AND status = 'pending'
	`
	result, err := r.db.Exec(ctx, query, orderID, reason)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		existing, lookupErr := r.FindTipByOrderID(ctx, orderID)
		if lookupErr != nil {
			return lookupErr
		}
		if existing.Status == domain.TipStatusCompleted {
			return ErrTipAlreadySettled
		}
		return nil
	}
	return nil
}

// ListRecentTips returns the newest tips for a streamer's dashboard.
func (r *PostgresRepository) ListRecentTips(ctx context.Context, streamerID uuid.UUID, limit int) ([]domain.Tip, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	query := `SELECT ` + tipColumns + ` FROM tips WHERE streamer_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, query, streamerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTips(rows)
}

// ListCompletedTipsSince returns completed tips newer than the cutoff, used by
// the analytics endpoint.
func (r *PostgresRepository) ListCompletedTipsSince(ctx context.Context, streamerID uuid.UUID, since time.Time) ([]domain.Tip, error) {
	query := `
		SELECT ` + tipColumns + `
		FROM tips
		WHERE streamer_id = $1 AND status = 'completed' AND created_at >= $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, streamerID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTips(rows)
}

func collectTips(rows pgx.Rows) ([]domain.Tip, error) {
	var tips []domain.Tip
	for rows.Next() {
		var t domain.Tip
		if err := rows.Scan(
			&t.ID, &t.StreamerID, &t.DonorName, &t.Amount, &t.Message, &t.OrderID,
			&t.PaymentID, &t.Status, &t.Commission, &t.TransferAmount, &t.FailureReason, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tips = append(tips, t)
	}
	return tips, rows.Err()
}
