package leaverequest_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"leavedesk/internal/leaverequest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func claimColumns() []string {
	return []string{
		"id", "employee_id", "leave_type_id", "start_date", "end_date", "days_requested",
		"reason", "status", "approved_by", "approved_at", "admin_notes", "created_at", "updated_at",
	}
}

func TestLeaveRequestRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	requestID := uuid.New().String()
	employeeID := uuid.New().String()
	leaveTypeID := uuid.New().String()
	actorID := uuid.New().String()
	now := time.Now().UTC()

	t.Run("winning claim returns the updated row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		tx, err := db.Begin()
		assert.NoError(t, err)

		approvedAt := now
		mock.ExpectQuery("UPDATE leave_requests").
			WithArgs(requestID, leaverequest.StatusApproved, actorID, nil, approvedAt).
			WillReturnRows(sqlmock.NewRows(claimColumns()).AddRow(
				requestID, employeeID, leaveTypeID, now, now.AddDate(0, 0, 2), 3,
				"Family event", leaverequest.StatusApproved, actorID, approvedAt, nil, now, now,
			))

		repo := leaverequest.NewRepository(nil).WithTx(tx)
		claimed, err := repo.ClaimPending(ctx, requestID, leaverequest.StatusApproved, actorID, nil, &approvedAt)
		assert.NoError(t, err)
		assert.Equal(t, leaverequest.StatusApproved, claimed.Status)
		assert.Equal(t, 3, claimed.DaysRequested)
		assert.NotNil(t, claimed.ApprovedBy)
		assert.Equal(t, actorID, claimed.ApprovedBy.String())
		assert.NotNil(t, claimed.ApprovedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("losing claim surfaces sql.ErrNoRows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		tx, err := db.Begin()
		assert.NoError(t, err)

		mock.ExpectQuery("UPDATE leave_requests").
			WillReturnError(sql.ErrNoRows)

		repo := leaverequest.NewRepository(nil).WithTx(tx)
		_, err = repo.ClaimPending(ctx, requestID, leaverequest.StatusApproved, actorID, nil, &now)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLeaveRequestRepository_Exists(t *testing.T) {
	ctx := context.Background()
	requestID := uuid.New().String()

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		tx, err := db.Begin()
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(requestID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		repo := leaverequest.NewRepository(nil).WithTx(tx)
		exists, err := repo.Exists(ctx, requestID)
		assert.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("missing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		tx, err := db.Begin()
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(requestID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		repo := leaverequest.NewRepository(nil).WithTx(tx)
		exists, err := repo.Exists(ctx, requestID)
		assert.NoError(t, err)
		assert.False(t, exists)
	})
}
