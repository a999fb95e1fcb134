package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/bartarleather/erp-backend/pkg/database"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/google/uuid"
)

// StageTask is one production stage of an order. Its handover history lives
// in the handover_state blob.
type StageTask struct {
	ID            string        `db:"id" json:"id"`
	OrderID       string        `db:"order_id" json:"order_id"`
	Title         string        `db:"title" json:"title"`
	Position      int           `db:"position" json:"position"`
	ShelfID       string        `db:"shelf_id" json:"shelf_id"`
	Completed     bool          `db:"completed" json:"completed"`
	HandoverState HandoverState `db:"handover_state" json:"handover_state"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// StageTaskRepository handles stage task persistence
type StageTaskRepository struct {
	db *database.DB
}

// NewStageTaskRepository creates a new stage task repository
func NewStageTaskRepository(db *database.DB) *StageTaskRepository {
	return &StageTaskRepository{db: db}
}

// Create creates a new stage task
func (r *StageTaskRepository) Create(ctx context.Context, t *StageTask) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stage_tasks (id, order_id, title, position, shelf_id, completed, handover_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		t.ID, t.OrderID, t.Title, t.Position, t.ShelfID, t.Completed, t.HandoverState,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return errors.Wrap(err, "DB_ERROR", "failed to create stage task", 500)
	}
	return nil
}

// GetByID gets a stage task by ID
func (r *StageTaskRepository) GetByID(ctx context.Context, id string) (*StageTask, error) {
	var t StageTask
	query := `
		SELECT id, order_id, title, position, shelf_id, completed, handover_state, created_at, updated_at
		FROM stage_tasks WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stage task")
		}
		return nil, errors.Wrap(err, "DB_ERROR", "failed to get stage task", 500)
	}
	return &t, nil
}

// ListByOrder lists an order's stage tasks in position order
func (r *StageTaskRepository) ListByOrder(ctx context.Context, orderID string) ([]*StageTask, error) {
	var tasks []*StageTask
	query := `
		SELECT id, order_id, title, position, shelf_id, completed, handover_state, created_at, updated_at
		FROM stage_tasks WHERE order_id = $1 ORDER BY position
	`
	if err := r.db.SelectContext(ctx, &tasks, query, orderID); err != nil {
		return nil, errors.Wrap(err, "DB_ERROR", "failed to list stage tasks", 500)
	}
	return tasks, nil
}

// FirstForOrder returns the order's first stage task
func (r *StageTaskRepository) FirstForOrder(ctx context.Context, orderID string) (*StageTask, error) {
	var t StageTask
	query := `
		SELECT id, order_id, title, position, shelf_id, completed, handover_state, created_at, updated_at
		FROM stage_tasks WHERE order_id = $1 ORDER BY position LIMIT 1
	`
	if err := r.db.GetContext(ctx, &t, query, orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stage task")
		}
		return nil, errors.Wrap(err, "DB_ERROR", "failed to get first stage task", 500)
	}
	return &t, nil
}

// SaveHandoverState replaces a stage task's handover blob
func (r *StageTaskRepository) SaveHandoverState(ctx context.Context, id string, state HandoverState) error {
	query := `UPDATE stage_tasks SET handover_state = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, state)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to save handover state", 500)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("stage task")
	}
	return nil
}

// SetCompleted marks a stage task done or not done
func (r *StageTaskRepository) SetCompleted(ctx context.Context, id string, completed bool) error {
	query := `UPDATE stage_tasks SET completed = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, completed)
	if err != nil {
		return errors.Wrap(err, "DB_ERROR", "failed to update stage task", 500)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.NotFound("stage task")
	}
	return nil
}
