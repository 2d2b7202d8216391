package balance

import (
	"context"
	"database/sql"
	"errors"

	balanceerrors "leavedesk/internal/balance/errors"

	"gorm.io/gorm"
)

//go:generate mockgen -source=balance_repo.go -destination=mock/balance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindAll(ctx context.Context) ([]LeaveBalance, error)
	FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveBalance, error)
	FindByID(ctx context.Context, id string) (*LeaveBalance, error)
	GetBucket(ctx context.Context, employeeID, leaveTypeID string, year int) (*LeaveBalance, error)
	Grant(ctx context.Context, b *LeaveBalance) (*LeaveBalance, error)
	Debit(ctx context.Context, employeeID, leaveTypeID string, year, days int) error
	Delete(ctx context.Context, id string) error
	LeaveTypeExists(ctx context.Context, leaveTypeID string) (bool, error)
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
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func (r *repository) queryer() (queryer, error) {
	if r.tx != nil {
		return r.tx, nil
	}
	return r.db.DB()
}

func (r *repository) FindAll(ctx context.Context) ([]LeaveBalance, error) {
	var balances []LeaveBalance
	err := r.db.WithContext(ctx).
		Order("year DESC, employee_id ASC").
		Find(&balances).Error
	return balances, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveBalance, error) {
	var balances []LeaveBalance
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("year DESC").
		Find(&balances).Error
	return balances, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveBalance, error) {
	var b LeaveBalance
	err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error
	return &b, err
}

func (r *repository) GetBucket(ctx context.Context, employeeID, leaveTypeID string, year int) (*LeaveBalance, error) {
	var b LeaveBalance
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND leave_type_id = ? AND year = ?", employeeID, leaveTypeID, year).
		First(&b).Error
	return &b, err
}

// Grant upserts a bucket as one atomic statement: a new bucket starts with
// used_days = 0, an existing one keeps its used_days and only total_days and
// remaining_days change. remaining_days is always derived inside the
// statement, never computed by the caller. The DO UPDATE is guarded so an
// admin correction can never push total_days below what is already used;
// a rejected shrink matches zero rows and maps to ErrGrantBelowUsed.
func (r *repository) Grant(ctx context.Context, b *LeaveBalance) (*LeaveBalance, error) {
	q, err := r.queryer()
	if err != nil {
		return nil, err
	}

	row := q.QueryRowContext(ctx, `
		INSERT INTO leave_balances (id, employee_id, leave_type_id, year, total_days, used_days, remaining_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $5, now(), now())
		ON CONFLICT (employee_id, leave_type_id, year) DO UPDATE
		SET total_days = EXCLUDED.total_days,
		    remaining_days = EXCLUDED.total_days - leave_balances.used_days,
		    updated_at = now()
		WHERE leave_balances.used_days <= EXCLUDED.total_days
		RETURNING id, employee_id, leave_type_id, year, total_days, used_days, remaining_days, created_at, updated_at
	`, b.ID, b.EmployeeID, b.LeaveTypeID, b.Year, b.TotalDays)

	var out LeaveBalance
	if err := row.Scan(
		&out.ID,
		&out.EmployeeID,
		&out.LeaveTypeID,
		&out.Year,
		&out.TotalDays,
		&out.UsedDays,
		&out.RemainingDays,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, balanceerrors.ErrGrantBelowUsed
		}
		return nil, err
	}
	return &out, nil
}

// Debit increments used_days and recomputes remaining_days in one guarded
// UPDATE. The sufficiency check lives in the WHERE clause, so it is evaluated
// against the persisted row at write time; two concurrent debits on the same
// bucket serialize at the database and cannot lose an update.
func (r *repository) Debit(ctx context.Context, employeeID, leaveTypeID string, year, days int) error {
	q, err := r.queryer()
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE leave_balances
		SET used_days = used_days + $4,
		    remaining_days = total_days - (used_days + $4),
		    updated_at = now()
		WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3
		  AND used_days + $4 <= total_days
	`, employeeID, leaveTypeID, year, days)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Zero rows: either the bucket is missing or the guard rejected the
	// debit. Check on the same queryer (and so the same tx) to tell them
	// apart.
	var exists bool
	err = q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leave_balances
			WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3
		)
	`, employeeID, leaveTypeID, year).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return balanceerrors.ErrBalanceNotFound
	}
	return balanceerrors.ErrInsufficientBalance
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&LeaveBalance{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) LeaveTypeExists(ctx context.Context, leaveTypeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("leave_types").
		Where("id = ?", leaveTypeID).
		Where("deleted_at IS NULL").
		Count(&count).Error
	return count > 0, err
}

// IsNotFound reports whether err is the gorm record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
