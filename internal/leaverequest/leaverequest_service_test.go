package leaverequest_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"leavedesk/internal/balance"
	balanceerrors "leavedesk/internal/balance/errors"
	"leavedesk/internal/leaverequest"
	leaverequesterrors "leavedesk/internal/leaverequest/errors"
	"leavedesk/internal/notification"
	notificationmock "leavedesk/internal/notification/mock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type fakeRequestRepository struct {
	withTxFn            func(tx *sql.Tx) leaverequest.Repository
	createFn            func(ctx context.Context, lr *leaverequest.LeaveRequest) error
	findByIDFn          func(ctx context.Context, id string) (*leaverequest.LeaveRequest, error)
	findAllFn           func(ctx context.Context, limit, offset int) ([]leaverequest.LeaveRequest, int64, error)
	findAllByEmployeeFn func(ctx context.Context, employeeID string, limit, offset int) ([]leaverequest.LeaveRequest, int64, error)
	claimPendingFn      func(ctx context.Context, id, newStatus, actorID string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error)
	existsFn            func(ctx context.Context, id string) (bool, error)
}

func (f *fakeRequestRepository) WithTx(tx *sql.Tx) leaverequest.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeRequestRepository) Create(ctx context.Context, lr *leaverequest.LeaveRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, lr)
	}
	return nil
}

func (f *fakeRequestRepository) FindByID(ctx context.Context, id string) (*leaverequest.LeaveRequest, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeRequestRepository) FindAll(ctx context.Context, limit, offset int) ([]leaverequest.LeaveRequest, int64, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeRequestRepository) FindAllByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]leaverequest.LeaveRequest, int64, error) {
	if f.findAllByEmployeeFn != nil {
		return f.findAllByEmployeeFn(ctx, employeeID, limit, offset)
	}
	return nil, 0, nil
}

func (f *fakeRequestRepository) ClaimPending(ctx context.Context, id, newStatus, actorID string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error) {
	if f.claimPendingFn != nil {
		return f.claimPendingFn(ctx, id, newStatus, actorID, adminNotes, approvedAt)
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRequestRepository) Exists(ctx context.Context, id string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, id)
	}
	return false, nil
}

type fakeBalanceRepository struct {
	withTxFn func(tx *sql.Tx) balance.Repository
	debitFn  func(ctx context.Context, employeeID, leaveTypeID string, year, days int) error
}

func (f *fakeBalanceRepository) WithTx(tx *sql.Tx) balance.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeBalanceRepository) FindAll(ctx context.Context) ([]balance.LeaveBalance, error) {
	return nil, nil
}

func (f *fakeBalanceRepository) FindAllByEmployee(ctx context.Context, employeeID string) ([]balance.LeaveBalance, error) {
	return nil, nil
}

func (f *fakeBalanceRepository) FindByID(ctx context.Context, id string) (*balance.LeaveBalance, error) {
	return nil, nil
}

func (f *fakeBalanceRepository) GetBucket(ctx context.Context, employeeID, leaveTypeID string, year int) (*balance.LeaveBalance, error) {
	return nil, nil
}

func (f *fakeBalanceRepository) Grant(ctx context.Context, b *balance.LeaveBalance) (*balance.LeaveBalance, error) {
	return b, nil
}

func (f *fakeBalanceRepository) Debit(ctx context.Context, employeeID, leaveTypeID string, year, days int) error {
	if f.debitFn != nil {
		return f.debitFn(ctx, employeeID, leaveTypeID, year, days)
	}
	return nil
}

func (f *fakeBalanceRepository) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeBalanceRepository) LeaveTypeExists(ctx context.Context, leaveTypeID string) (bool, error) {
	return true, nil
}

type fakeIdentityLookup struct {
	roleOfFn func(ctx context.Context, employeeID string) (string, bool, error)
	existsFn func(ctx context.Context, employeeID string) (bool, error)
}

func (f *fakeIdentityLookup) RoleOf(ctx context.Context, employeeID string) (string, bool, error) {
	if f.roleOfFn != nil {
		return f.roleOfFn(ctx, employeeID)
	}
	return "admin", true, nil
}

func (f *fakeIdentityLookup) Exists(ctx context.Context, employeeID string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, employeeID)
	}
	return true, nil
}

type serviceDeps struct {
	db         *sql.DB
	sqlMock    sqlmock.Sqlmock
	repo       *fakeRequestRepository
	balances   *fakeBalanceRepository
	identity   *fakeIdentityLookup
	dispatcher *notificationmock.MockDispatcher
	service    leaverequest.Service
}

func setupServiceTest(t *testing.T) *serviceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	ctrl := gomock.NewController(t)
	dispatcher := notificationmock.NewMockDispatcher(ctrl)

	repo := &fakeRequestRepository{}
	balances := &fakeBalanceRepository{}
	identityLookup := &fakeIdentityLookup{}

	svc := leaverequest.NewService(db, repo, balances, identityLookup, dispatcher)

	return &serviceDeps{
		db:         db,
		sqlMock:    sqlMock,
		repo:       repo,
		balances:   balances,
		identity:   identityLookup,
		dispatcher: dispatcher,
		service:    svc,
	}
}

func pendingRequest(id, employeeID, leaveTypeID uuid.UUID, days int) *leaverequest.LeaveRequest {
	start, _ := time.Parse("2006-01-02", "2026-03-02")
	end := start.AddDate(0, 0, days-1)
	return &leaverequest.LeaveRequest{
		ID:            id,
		EmployeeID:    employeeID,
		LeaveTypeID:   leaveTypeID,
		StartDate:     start,
		EndDate:       end,
		DaysRequested: days,
		Reason:        "Family event",
		Status:        leaverequest.StatusPending,
	}
}

func TestLeaveRequestService_Create(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New().String()
	leaveTypeID := uuid.New().String()

	t.Run("success starts pending", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		req := leaverequest.CreateLeaveRequestRequest{
			EmployeeID:    actorID,
			LeaveTypeID:   leaveTypeID,
			StartDate:     "2026-03-02",
			EndDate:       "2026-03-04",
			DaysRequested: 3,
			Reason:        "Family event",
		}

		deps.repo.createFn = func(ctx context.Context, lr *leaverequest.LeaveRequest) error {
			assert.Equal(t, leaverequest.StatusPending, lr.Status)
			assert.Equal(t, uuid.MustParse(actorID), lr.EmployeeID)
			assert.Equal(t, 3, lr.DaysRequested)
			assert.Nil(t, lr.ApprovedBy)
			assert.Nil(t, lr.ApprovedAt)
			return nil
		}

		resp, err := deps.service.Create(ctx, actorID, req)
		assert.NoError(t, err)
		assert.Equal(t, leaverequest.StatusPending, resp.Status)
		assert.Equal(t, "2026-03-02", resp.StartDate)
		assert.Equal(t, "2026-03-04", resp.EndDate)
	})

	t.Run("filing for someone else requires privileged role", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.identity.roleOfFn = func(ctx context.Context, employeeID string) (string, bool, error) {
			return "employee", true, nil
		}

		req := leaverequest.CreateLeaveRequestRequest{
			EmployeeID:    uuid.New().String(),
			LeaveTypeID:   leaveTypeID,
			StartDate:     "2026-03-02",
			EndDate:       "2026-03-04",
			DaysRequested: 3,
			Reason:        "Family event",
		}

		_, err := deps.service.Create(ctx, actorID, req)
		assert.ErrorIs(t, err, leaverequesterrors.ErrNotRequestOwner)
	})

	t.Run("invalid date range rejected before persistence", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.repo.createFn = func(ctx context.Context, lr *leaverequest.LeaveRequest) error {
			t.Fatal("create must not be called")
			return nil
		}

		req := leaverequest.CreateLeaveRequestRequest{
			EmployeeID:    actorID,
			LeaveTypeID:   leaveTypeID,
			StartDate:     "2026-03-04",
			EndDate:       "2026-03-02",
			DaysRequested: 3,
			Reason:        "Family event",
		}

		_, err := deps.service.Create(ctx, actorID, req)
		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidDateRange)
	})
}

func TestLeaveRequestService_List(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New().String()

	t.Run("list all pushes paging into the query", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.repo.findAllFn = func(ctx context.Context, limit, offset int) ([]leaverequest.LeaveRequest, int64, error) {
			assert.Equal(t, 10, limit)
			assert.Equal(t, 10, offset)
			return []leaverequest.LeaveRequest{
				*pendingRequest(uuid.New(), uuid.New(), uuid.New(), 2),
			}, 15, nil
		}

		resp, total, err := deps.service.ListAll(ctx, 2, 10)
		assert.NoError(t, err)
		assert.Equal(t, int64(15), total)
		assert.Len(t, resp, 1)
	})

	t.Run("list for employee scopes and pages", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.repo.findAllByEmployeeFn = func(ctx context.Context, eid string, limit, offset int) ([]leaverequest.LeaveRequest, int64, error) {
			assert.Equal(t, employeeID, eid)
			assert.Equal(t, 10, limit)
			assert.Equal(t, 0, offset)
			return nil, 0, nil
		}

		_, total, err := deps.service.ListForEmployee(ctx, employeeID, 1, 10)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("malformed employee id", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		_, _, err := deps.service.ListForEmployee(ctx, "not-a-uuid", 1, 10)
		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidEmployeeID)
	})
}

func TestLeaveRequestService_TransitionApprove(t *testing.T) {
	ctx := context.Background()
	requestID := uuid.New()
	employeeID := uuid.New()
	leaveTypeID := uuid.New()
	actorID := uuid.New().String()

	t.Run("approve claims, debits and notifies", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		debited := 0
		deps.repo.claimPendingFn = func(ctx context.Context, id, newStatus, aid string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error) {
			assert.Equal(t, requestID.String(), id)
			assert.Equal(t, leaverequest.StatusApproved, newStatus)
			assert.Equal(t, actorID, aid)
			assert.NotNil(t, approvedAt)

			lr := pendingRequest(requestID, employeeID, leaveTypeID, 3)
			lr.Status = newStatus
			approver := uuid.MustParse(aid)
			lr.ApprovedBy = &approver
			lr.ApprovedAt = approvedAt
			return lr, nil
		}
		deps.balances.debitFn = func(ctx context.Context, eid, tid string, year, days int) error {
			debited++
			assert.Equal(t, employeeID.String(), eid)
			assert.Equal(t, leaveTypeID.String(), tid)
			assert.Equal(t, 2026, year)
			assert.Equal(t, 3, days)
			return nil
		}

		deps.dispatcher.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, event notification.LeaveStatusEvent) error {
				assert.Equal(t, notification.EventLeaveApproved, event.EventType)
				assert.Equal(t, requestID.String(), event.RequestID)
				assert.Equal(t, 3, event.Days)
				assert.Equal(t, leaverequest.StatusApproved, event.Status)
				return nil
			}).
			Times(1)

		resp, err := deps.service.Transition(ctx, requestID.String(), leaverequest.StatusApproved, actorID, nil)
		assert.NoError(t, err)
		assert.Equal(t, leaverequest.StatusApproved, resp.Status)
		assert.Equal(t, 1, debited)
		assert.NotNil(t, resp.ApprovedBy)
		assert.NotNil(t, resp.ApprovedAt)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("insufficient balance rolls back the claim", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		deps.repo.claimPendingFn = func(ctx context.Context, id, newStatus, aid string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error) {
			lr := pendingRequest(requestID, employeeID, leaveTypeID, 3)
			lr.Status = newStatus
			return lr, nil
		}
		deps.balances.debitFn = func(ctx context.Context, eid, tid string, year, days int) error {
			return balanceerrors.ErrInsufficientBalance
		}

		// No commit, no notification.
		_, err := deps.service.Transition(ctx, requestID.String(), leaverequest.StatusApproved, actorID, nil)
		assert.ErrorIs(t, err, balanceerrors.ErrInsufficientBalance)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("already resolved returns concurrent modification", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		deps.repo.claimPendingFn = func(ctx context.Context, id, newStatus, aid string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error) {
			return nil, sql.ErrNoRows
		}
		deps.repo.existsFn = func(ctx context.Context, id string) (bool, error) {
			return true, nil
		}
		deps.balances.debitFn = func(ctx context.Context, eid, tid string, year, days int) error {
			t.Fatal("debit must not be called")
			return nil
		}

		_, err := deps.service.Transition(ctx, requestID.String(), leaverequest.StatusApproved, actorID, nil)
		assert.ErrorIs(t, err, leaverequesterrors.ErrConcurrentModification)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("unknown request returns not found", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		deps.repo.claimPendingFn = func(ctx context.Context, id, newStatus, aid string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error) {
			return nil, sql.ErrNoRows
		}
		deps.repo.existsFn = func(ctx context.Context, id string) (bool, error) {
			return false, nil
		}

		_, err := deps.service.Transition(ctx, requestID.String(), leaverequest.StatusApproved, actorID, nil)
		assert.ErrorIs(t, err, leaverequesterrors.ErrRequestNotFound)
	})

	t.Run("unprivileged actor is rejected before any write", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.identity.roleOfFn = func(ctx context.Context, employeeID string) (string, bool, error) {
			return "employee", true, nil
		}
		deps.repo.claimPendingFn = func(ctx context.Context, id, newStatus, aid string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error) {
			t.Fatal("claim must not be called")
			return nil, nil
		}

		_, err := deps.service.Transition(ctx, requestID.String(), leaverequest.StatusApproved, actorID, nil)
		assert.ErrorIs(t, err, leaverequesterrors.ErrActorNotAuthorized)
	})

	t.Run("invalid target status rejected", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Transition(ctx, requestID.String(), "CANCELLED", actorID, nil)
		assert.ErrorIs(t, err, leaverequesterrors.ErrInvalidTargetStatus)
	})
}

func TestLeaveRequestService_TransitionReject(t *testing.T) {
	ctx := context.Background()
	requestID := uuid.New()
	employeeID := uuid.New()
	leaveTypeID := uuid.New()
	actorID := uuid.New().String()

	t.Run("reject never touches the ledger", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		notes := "conflicts with sprint"
		deps.repo.claimPendingFn = func(ctx context.Context, id, newStatus, aid string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error) {
			assert.Equal(t, leaverequest.StatusRejected, newStatus)
			assert.Nil(t, approvedAt)
			assert.NotNil(t, adminNotes)
			assert.Equal(t, notes, *adminNotes)

			lr := pendingRequest(requestID, employeeID, leaveTypeID, 3)
			lr.Status = newStatus
			approver := uuid.MustParse(aid)
			lr.ApprovedBy = &approver
			lr.AdminNotes = adminNotes
			return lr, nil
		}
		deps.balances.debitFn = func(ctx context.Context, eid, tid string, year, days int) error {
			t.Fatal("debit must not be called on rejection")
			return nil
		}

		deps.dispatcher.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, event notification.LeaveStatusEvent) error {
				assert.Equal(t, notification.EventLeaveRejected, event.EventType)
				return nil
			}).
			Times(1)

		resp, err := deps.service.Transition(ctx, requestID.String(), leaverequest.StatusRejected, actorID, &notes)
		assert.NoError(t, err)
		assert.Equal(t, leaverequest.StatusRejected, resp.Status)
		assert.NotNil(t, resp.ApprovedBy)
		assert.Nil(t, resp.ApprovedAt)
		assert.Equal(t, notes, *resp.AdminNotes)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("dispatch failure does not unwind the transition", func(t *testing.T) {
		deps := setupServiceTest(t)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		deps.repo.claimPendingFn = func(ctx context.Context, id, newStatus, aid string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error) {
			lr := pendingRequest(requestID, employeeID, leaveTypeID, 3)
			lr.Status = newStatus
			return lr, nil
		}

		deps.dispatcher.EXPECT().
			Dispatch(gomock.Any(), gomock.Any()).
			Return(errors.New("broker unavailable")).
			Times(1)

		resp, err := deps.service.Transition(ctx, requestID.String(), leaverequest.StatusRejected, actorID, nil)
		assert.NoError(t, err)
		assert.Equal(t, leaverequest.StatusRejected, resp.Status)
	})
}

// N racing approvals on one pending request: exactly one wins the claim and
// the ledger is debited exactly once.
func TestLeaveRequestService_ConcurrentApprovals(t *testing.T) {
	const racers = 8

	requestID := uuid.New()
	employeeID := uuid.New()
	leaveTypeID := uuid.New()
	actorID := uuid.New().String()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	sqlMock.MatchExpectationsInOrder(false)

	for i := 0; i < racers; i++ {
		sqlMock.ExpectBegin()
	}
	sqlMock.ExpectCommit()
	for i := 0; i < racers-1; i++ {
		sqlMock.ExpectRollback()
	}

	var mu sync.Mutex
	claimed := false
	debits := 0

	repo := &fakeRequestRepository{
		claimPendingFn: func(ctx context.Context, id, newStatus, aid string, adminNotes *string, approvedAt *time.Time) (*leaverequest.LeaveRequest, error) {
			mu.Lock()
			defer mu.Unlock()
			if claimed {
				return nil, sql.ErrNoRows
			}
			claimed = true

			lr := pendingRequest(requestID, employeeID, leaveTypeID, 3)
			lr.Status = newStatus
			return lr, nil
		},
		existsFn: func(ctx context.Context, id string) (bool, error) {
			return true, nil
		},
	}
	balances := &fakeBalanceRepository{
		debitFn: func(ctx context.Context, eid, tid string, year, days int) error {
			mu.Lock()
			defer mu.Unlock()
			debits += days
			return nil
		},
	}

	svc := leaverequest.NewService(db, repo, balances, &fakeIdentityLookup{}, notification.NopDispatcher{})

	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Transition(context.Background(), requestID.String(), leaverequest.StatusApproved, actorID, nil)
			results[i] = err
		}(i)
	}
	wg.Wait()

	successes := 0
	conflicts := 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, leaverequesterrors.ErrConcurrentModification):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, conflicts)
	assert.Equal(t, 3, debits, "used_days must grow by exactly one debit")
}
