package balance_test

import (
	"context"
	"testing"
	"time"

	"leavedesk/internal/balance"
	balanceerrors "leavedesk/internal/balance/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func txRepo(t *testing.T) (balance.Repository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)

	return balance.NewRepository(nil).WithTx(tx), mock, func() { db.Close() }
}

func TestBalanceRepository_Debit(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New().String()
	leaveTypeID := uuid.New().String()

	t.Run("sufficient balance debits one row", func(t *testing.T) {
		repo, mock, cleanup := txRepo(t)
		defer cleanup()

		mock.ExpectExec("UPDATE leave_balances").
			WithArgs(employeeID, leaveTypeID, 2026, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Debit(ctx, employeeID, leaveTypeID, 2026, 3)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("guard rejects an over-debit", func(t *testing.T) {
		repo, mock, cleanup := txRepo(t)
		defer cleanup()

		mock.ExpectExec("UPDATE leave_balances").
			WithArgs(employeeID, leaveTypeID, 2026, 30).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(employeeID, leaveTypeID, 2026).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.Debit(ctx, employeeID, leaveTypeID, 2026, 30)
		assert.ErrorIs(t, err, balanceerrors.ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing bucket is not found", func(t *testing.T) {
		repo, mock, cleanup := txRepo(t)
		defer cleanup()

		mock.ExpectExec("UPDATE leave_balances").
			WithArgs(employeeID, leaveTypeID, 2026, 3).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(employeeID, leaveTypeID, 2026).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := repo.Debit(ctx, employeeID, leaveTypeID, 2026, 3)
		assert.ErrorIs(t, err, balanceerrors.ErrBalanceNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBalanceRepository_Grant(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	grant := &balance.LeaveBalance{
		ID:          uuid.New(),
		EmployeeID:  uuid.New(),
		LeaveTypeID: uuid.New(),
		Year:        2026,
		TotalDays:   12,
	}

	t.Run("upsert keeps used_days and derives remaining_days", func(t *testing.T) {
		repo, mock, cleanup := txRepo(t)
		defer cleanup()

		mock.ExpectQuery("INSERT INTO leave_balances").
			WithArgs(grant.ID, grant.EmployeeID, grant.LeaveTypeID, grant.Year, grant.TotalDays).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "employee_id", "leave_type_id", "year",
				"total_days", "used_days", "remaining_days", "created_at", "updated_at",
			}).AddRow(
				grant.ID.String(), grant.EmployeeID.String(), grant.LeaveTypeID.String(), 2026,
				12, 5, 7, now, now,
			))

		out, err := repo.Grant(ctx, grant)
		assert.NoError(t, err)
		assert.Equal(t, 12, out.TotalDays)
		assert.Equal(t, 5, out.UsedDays)
		assert.Equal(t, out.TotalDays-out.UsedDays, out.RemainingDays)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("shrink below used_days is rejected", func(t *testing.T) {
		repo, mock, cleanup := txRepo(t)
		defer cleanup()

		shrink := &balance.LeaveBalance{
			ID:          grant.ID,
			EmployeeID:  grant.EmployeeID,
			LeaveTypeID: grant.LeaveTypeID,
			Year:        grant.Year,
			TotalDays:   5,
		}

		// Guard di DO UPDATE tidak match (used_days 6 > total_days baru 5),
		// statement mengembalikan nol baris.
		mock.ExpectQuery("INSERT INTO leave_balances").
			WithArgs(shrink.ID, shrink.EmployeeID, shrink.LeaveTypeID, shrink.Year, shrink.TotalDays).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "employee_id", "leave_type_id", "year",
				"total_days", "used_days", "remaining_days", "created_at", "updated_at",
			}))

		out, err := repo.Grant(ctx, shrink)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, balanceerrors.ErrGrantBelowUsed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
