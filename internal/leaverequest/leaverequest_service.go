package leaverequest

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"leavedesk/internal/balance"
	"leavedesk/internal/identity"
	leaverequesterrors "leavedesk/internal/leaverequest/errors"
	"leavedesk/internal/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// dispatchTimeout bounds the best-effort notification call so a slow sink
// can never stall a finished transition.
const dispatchTimeout = 2 * time.Second

//go:generate mockgen -source=leaverequest_service.go -destination=mock/leaverequest_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, actorID string, req CreateLeaveRequestRequest) (LeaveRequestResponse, error)
	GetByID(ctx context.Context, id string) (LeaveRequestResponse, error)
	ListForEmployee(ctx context.Context, employeeID string, page, pageSize int) ([]LeaveRequestResponse, int64, error)
	ListAll(ctx context.Context, page, pageSize int) ([]LeaveRequestResponse, int64, error)
	Transition(ctx context.Context, id, targetStatus, actorID string, adminNotes *string) (LeaveRequestResponse, error)
}

type service struct {
	db         *sql.DB
	repo       Repository
	balances   balance.Repository
	identity   identity.Lookup
	dispatcher notification.Dispatcher
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	balances balance.Repository,
	identityLookup identity.Lookup,
	dispatcher notification.Dispatcher,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leaverequest.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leaverequest.service")
	}
	if dispatcher == nil {
		dispatcher = notification.NopDispatcher{}
	}
	return &service{
		db:         db,
		repo:       repo,
		balances:   balances,
		identity:   identityLookup,
		dispatcher: dispatcher,
		logger:     l,
	}
}

func (s *service) Create(ctx context.Context, actorID string, req CreateLeaveRequestRequest) (LeaveRequestResponse, error) {
	s.logger.Debug("create leave request requested",
		zap.String("actor_id", actorID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
		zap.Int("days_requested", req.DaysRequested),
	)

	if _, err := uuid.Parse(actorID); err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidActorID
	}
	employeeUUID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidEmployeeID
	}
	leaveTypeUUID, err := uuid.Parse(req.LeaveTypeID)
	if err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidLeaveTypeID
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return LeaveRequestResponse{}, err
	}
	if startDate.After(endDate) {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidDateRange
	}

	// Filing for someone else needs a privileged role.
	if req.EmployeeID != actorID {
		role, found, err := s.identity.RoleOf(ctx, actorID)
		if err != nil {
			s.logger.Error("create leave request role lookup failed", zap.Error(err))
			return LeaveRequestResponse{}, err
		}
		if !found || !isPrivilegedRole(role) {
			return LeaveRequestResponse{}, leaverequesterrors.ErrNotRequestOwner
		}
	}

	lr := &LeaveRequest{
		ID:            uuid.New(),
		EmployeeID:    employeeUUID,
		LeaveTypeID:   leaveTypeUUID,
		StartDate:     startDate,
		EndDate:       endDate,
		DaysRequested: req.DaysRequested,
		Reason:        req.Reason,
		Status:        StatusPending,
	}

	if err := s.repo.Create(ctx, lr); err != nil {
		s.logger.Error("create leave request persist failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	s.logger.Info("create leave request success",
		zap.String("request_id", lr.ID.String()),
		zap.String("employee_id", req.EmployeeID),
	)

	return mapToResponse(*lr), nil
}

func (s *service) GetByID(ctx context.Context, id string) (LeaveRequestResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidRequestID
	}

	lr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequestResponse{}, leaverequesterrors.ErrRequestNotFound
		}
		return LeaveRequestResponse{}, err
	}
	return mapToResponse(*lr), nil
}

func (s *service) ListForEmployee(ctx context.Context, employeeID string, page, pageSize int) ([]LeaveRequestResponse, int64, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, 0, leaverequesterrors.ErrInvalidEmployeeID
	}

	limit, offset := pageBounds(page, pageSize)
	requests, total, err := s.repo.FindAllByEmployee(ctx, employeeID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return mapToListResponse(requests), total, nil
}

func (s *service) ListAll(ctx context.Context, page, pageSize int) ([]LeaveRequestResponse, int64, error) {
	limit, offset := pageBounds(page, pageSize)
	requests, total, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return mapToListResponse(requests), total, nil
}

func pageBounds(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return pageSize, (page - 1) * pageSize
}

// Transition resolves a PENDING request to APPROVED or REJECTED. The
// conditional claim and the ledger debit run in one database transaction:
// either the request flips state and (on approval) the bucket is debited, or
// neither happens. Racing resolvers lose the claim and get
// ErrConcurrentModification, which also makes client retries after a success
// harmless.
func (s *service) Transition(ctx context.Context, id, targetStatus, actorID string, adminNotes *string) (LeaveRequestResponse, error) {
	s.logger.Debug("transition leave request requested",
		zap.String("request_id", id),
		zap.String("actor_id", actorID),
		zap.String("target_status", targetStatus),
	)

	if _, err := uuid.Parse(id); err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidRequestID
	}
	if _, err := uuid.Parse(actorID); err != nil {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidActorID
	}
	if targetStatus != StatusApproved && targetStatus != StatusRejected {
		return LeaveRequestResponse{}, leaverequesterrors.ErrInvalidTargetStatus
	}

	role, found, err := s.identity.RoleOf(ctx, actorID)
	if err != nil {
		s.logger.Error("transition role lookup failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	if !found || !isPrivilegedRole(role) {
		s.logger.Warn("transition rejected for unprivileged actor",
			zap.String("request_id", id),
			zap.String("actor_id", actorID),
			zap.String("role", role),
		)
		return LeaveRequestResponse{}, leaverequesterrors.ErrActorNotAuthorized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("transition begin tx failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	var approvedAt *time.Time
	if targetStatus == StatusApproved {
		now := time.Now().UTC()
		approvedAt = &now
	}

	claimed, err := qtx.ClaimPending(ctx, id, targetStatus, actorID, adminNotes, approvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			exists, probeErr := qtx.Exists(ctx, id)
			if probeErr != nil {
				return LeaveRequestResponse{}, probeErr
			}
			if !exists {
				return LeaveRequestResponse{}, leaverequesterrors.ErrRequestNotFound
			}
			s.logger.Warn("transition lost the claim",
				zap.String("request_id", id),
				zap.String("actor_id", actorID),
			)
			return LeaveRequestResponse{}, leaverequesterrors.ErrConcurrentModification
		}
		s.logger.Error("transition claim failed", zap.String("request_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	if targetStatus == StatusApproved {
		err := s.balances.WithTx(tx).Debit(
			ctx,
			claimed.EmployeeID.String(),
			claimed.LeaveTypeID.String(),
			claimed.StartDate.Year(),
			claimed.DaysRequested,
		)
		if err != nil {
			// Rollback undoes the claim, so the request stays PENDING
			// and the ledger is untouched.
			s.logger.Warn("transition debit failed, rolling back claim",
				zap.String("request_id", id),
				zap.Int("days_requested", claimed.DaysRequested),
				zap.Error(err),
			)
			return LeaveRequestResponse{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("transition commit failed", zap.String("request_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	s.logger.Info("transition leave request success",
		zap.String("request_id", id),
		zap.String("status", targetStatus),
		zap.String("actor_id", actorID),
	)

	s.notify(*claimed)

	return mapToResponse(*claimed), nil
}

// notify emits the status event best-effort: bounded context detached from
// the request, failures logged and swallowed. The transition is already
// committed by the time this runs.
func (s *service) notify(lr LeaveRequest) {
	eventType := notification.EventLeaveApproved
	if lr.Status == StatusRejected {
		eventType = notification.EventLeaveRejected
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	err := s.dispatcher.Dispatch(ctx, notification.LeaveStatusEvent{
		EventType:   eventType,
		RequestID:   lr.ID.String(),
		EmployeeID:  lr.EmployeeID.String(),
		LeaveTypeID: lr.LeaveTypeID.String(),
		Days:        lr.DaysRequested,
		Status:      lr.Status,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("leave status notification dropped",
			zap.String("request_id", lr.ID.String()),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func isPrivilegedRole(role string) bool {
	return role == "hr" || role == "admin"
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, leaverequesterrors.ErrInvalidDateFormat
	}
	return t, nil
}

func mapToResponse(lr LeaveRequest) LeaveRequestResponse {
	resp := LeaveRequestResponse{
		ID:            lr.ID.String(),
		EmployeeID:    lr.EmployeeID.String(),
		LeaveTypeID:   lr.LeaveTypeID.String(),
		StartDate:     lr.StartDate.Format("2006-01-02"),
		EndDate:       lr.EndDate.Format("2006-01-02"),
		DaysRequested: lr.DaysRequested,
		Reason:        lr.Reason,
		Status:        lr.Status,
		AdminNotes:    lr.AdminNotes,
		CreatedAt:     lr.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     lr.UpdatedAt.Format(time.RFC3339),
	}
	if lr.ApprovedBy != nil {
		v := lr.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	if lr.ApprovedAt != nil {
		v := lr.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	return resp
}

func mapToListResponse(requests []LeaveRequest) []LeaveRequestResponse {
	resp := make([]LeaveRequestResponse, len(requests))
	for i, lr := range requests {
		resp[i] = mapToResponse(lr)
	}
	return resp
}
