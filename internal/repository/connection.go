package repository

import (
	"context"
	"errors"
	"fmt"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/database"
	"entrepreneur-connect-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const connectionColumns = `id, user_id, connected_user_id, status, created_at, updated_at`

// ConnectionRepository handles database operations for connections
type ConnectionRepository struct {
	db *pgxpool.Pool
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *pgxpool.Pool) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func scanConnection(row pgx.Row) (*models.Connection, error) {
	var c models.Connection
	if err := row.Scan(&c.ID, &c.UserID, &c.ConnectedUserID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a pending connection. The unique pair index turns a
// duplicate in either direction into ErrConnectionExists.
func (r *ConnectionRepository) Create(ctx context.Context, c *models.Connection) error {
	query := `
		INSERT INTO connections (id, user_id, connected_user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, c.ID, c.UserID, c.ConnectedUserID, c.Status, c.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, database.ConnectionPairConstraint) {
			return apperrors.ErrConnectionExists
		}
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

// GetByID retrieves a connection by ID
func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*models.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = $1`
	c, err := scanConnection(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return c, nil
}

// FindBetween retrieves the connection between two users in either direction
func (r *ConnectionRepository) FindBetween(ctx context.Context, a, b string) (*models.Connection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM connections
		WHERE (user_id = $1 AND connected_user_id = $2)
		   OR (user_id = $2 AND connected_user_id = $1)
		LIMIT 1
	`
	c, err := scanConnection(r.db.QueryRow(ctx, query, a, b))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to find connection: %w", err)
	}
	return c, nil
}

// Transition moves a pending connection addressed to recipientID into status
// in a single compare-and-swap statement. When nothing matches it returns
// ErrInvalidTransition and the caller decides which guard failed.
func (r *ConnectionRepository) Transition(ctx context.Context, id, recipientID string, status models.ConnectionStatus) (*models.Connection, error) {
	query := `
		UPDATE connections
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND connected_user_id = $2 AND status = 'pending'
		RETURNING ` + connectionColumns
	c, err := scanConnection(r.db.QueryRow(ctx, query, id, recipientID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidTransition
		}
		return nil, fmt.Errorf("failed to update connection: %w", err)
	}
	return c, nil
}

func (r *ConnectionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Connection, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var out []models.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connections: %w", err)
	}
	return out, nil
}

// ListReceived returns pending requests addressed to the user
func (r *ConnectionRepository) ListReceived(ctx context.Context, userID string) ([]models.Connection, error) {
	return r.list(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE connected_user_id = $1 AND status = 'pending'
		ORDER BY COALESCE(updated_at, created_at) DESC
	`, userID)
}

// ListSent returns every request the user sent, whatever its status
func (r *ConnectionRepository) ListSent(ctx context.Context, userID string) ([]models.Connection, error) {
	return r.list(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE user_id = $1
		ORDER BY COALESCE(updated_at, created_at) DESC
	`, userID)
}

// ListAccepted returns accepted connections on either side of the user
func (r *ConnectionRepository) ListAccepted(ctx context.Context, userID string) ([]models.Connection, error) {
	return r.list(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE (user_id = $1 OR connected_user_id = $1) AND status = 'accepted'
		ORDER BY COALESCE(updated_at, created_at) DESC
	`, userID)
}

// ListForUser returns every connection involving the user
func (r *ConnectionRepository) ListForUser(ctx context.Context, userID string) ([]models.Connection, error) {
	return r.list(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE user_id = $1 OR connected_user_id = $1
	`, userID)
}

// CountPending returns the number of pending requests addressed to the user
func (r *ConnectionRepository) CountPending(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM connections WHERE connected_user_id = $1 AND status = 'pending'`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending connections: %w", err)
	}
	return count, nil
}

// CountAccepted returns the number of accepted connections on either side
func (r *ConnectionRepository) CountAccepted(ctx context.Context, userID string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM connections
		WHERE (user_id = $1 OR connected_user_id = $1) AND status = 'accepted'
	`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count accepted connections: %w", err)
	}
	return count, nil
}
