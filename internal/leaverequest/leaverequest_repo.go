package leaverequest

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leaverequest_repo.go -destination=mock/leaverequest_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, lr *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	FindAll(ctx context.Context, limit, offset int) ([]LeaveRequest, int64, error)
	FindAllByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]LeaveRequest, int64, error)
	ClaimPending(ctx context.Context, id, newStatus, actorID string, adminNotes *string, approvedAt *time.Time) (*LeaveRequest, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

type queryer interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func (r *repository) queryer() (queryer, error) {
	if r.tx != nil {
		return r.tx, nil
	}
	return r.db.DB()
}

func (r *repository) Create(ctx context.Context, lr *LeaveRequest) error {
	return r.db.WithContext(ctx).Create(lr).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var lr LeaveRequest
	err := r.db.WithContext(ctx).First(&lr, "id = ?", id).Error
	return &lr, err
}

func (r *repository) FindAll(ctx context.Context, limit, offset int) ([]LeaveRequest, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []LeaveRequest
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	return requests, total, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]LeaveRequest, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("employee_id = ?", employeeID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error
	return requests, total, err
}

// ClaimPending performs the conditional status transition: the UPDATE only
// matches while the request is still PENDING, so of N concurrent claims
// exactly one gets the row back and the rest see sql.ErrNoRows. This is the
// compare-and-set that makes the ledger debit at-most-once per request.
func (r *repository) ClaimPending(ctx context.Context, id, newStatus, actorID string, adminNotes *string, approvedAt *time.Time) (*LeaveRequest, error) {
	q, err := r.queryer()
	if err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx, `
		UPDATE leave_requests
		SET status = $2,
		    approved_by = $3,
		    admin_notes = $4,
		    approved_at = $5,
		    updated_at = now()
		WHERE id = $1 AND status = 'PENDING' AND deleted_at IS NULL
		RETURNING id, employee_id, leave_type_id, start_date, end_date, days_requested,
		          reason, status, approved_by, approved_at, admin_notes, created_at, updated_at
	`, id, newStatus, actorID, adminNotes, approvedAt)

	var lr LeaveRequest
	if err := row.Scan(
		&lr.ID,
		&lr.EmployeeID,
		&lr.LeaveTypeID,
		&lr.StartDate,
		&lr.EndDate,
		&lr.DaysRequested,
		&lr.Reason,
		&lr.Status,
		&lr.ApprovedBy,
		&lr.ApprovedAt,
		&lr.AdminNotes,
		&lr.CreatedAt,
		&lr.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &lr, nil
}

// Exists probes the request id on the same queryer as ClaimPending so the
// NotFound / ConcurrentModification distinction is made inside the claim's
// transaction.
func (r *repository) Exists(ctx context.Context, id string) (bool, error) {
	q, err := r.queryer()
	if err != nil {
		return false, err
	}

	var exists bool
	err = q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leave_requests
			WHERE id = $1 AND deleted_at IS NULL
		)
	`, id).Scan(&exists)
	return exists, err
}
