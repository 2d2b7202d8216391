package balance

import (
	"context"

	balanceerrors "leavedesk/internal/balance/errors"
	"leavedesk/internal/identity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=balance_service.go -destination=mock/balance_service_mock.go -package=mock
type Service interface {
	Grant(ctx context.Context, req GrantBalanceRequest) (BalanceResponse, error)
	ListAll(ctx context.Context) ([]BalanceResponse, error)
	ListForEmployee(ctx context.Context, employeeID string) ([]BalanceResponse, error)
	GetBucket(ctx context.Context, employeeID, leaveTypeID string, year int) (BalanceResponse, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo     Repository
	identity identity.Lookup
	logger   *zap.Logger
}

func NewService(repo Repository, identityLookup identity.Lookup, logger ...*zap.Logger) Service {
	l := zap.L().Named("balance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.service")
	}
	return &service{repo: repo, identity: identityLookup, logger: l}
}

func (s *service) Grant(ctx context.Context, req GrantBalanceRequest) (BalanceResponse, error) {
	s.logger.Debug("grant balance requested",
		zap.String("employee_id", req.EmployeeID),
		zap.String("leave_type_id", req.LeaveTypeID),
		zap.Int("year", req.Year),
		zap.Int("total_days", req.TotalDays),
	)

	employeeUUID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return BalanceResponse{}, balanceerrors.ErrInvalidEmployeeID
	}
	leaveTypeUUID, err := uuid.Parse(req.LeaveTypeID)
	if err != nil {
		return BalanceResponse{}, balanceerrors.ErrLeaveTypeNotFound
	}

	exists, err := s.identity.Exists(ctx, req.EmployeeID)
	if err != nil {
		s.logger.Error("grant balance employee check failed", zap.Error(err))
		return BalanceResponse{}, err
	}
	if !exists {
		return BalanceResponse{}, balanceerrors.ErrEmployeeNotFound
	}

	typeExists, err := s.repo.LeaveTypeExists(ctx, req.LeaveTypeID)
	if err != nil {
		s.logger.Error("grant balance leave type check failed", zap.Error(err))
		return BalanceResponse{}, err
	}
	if !typeExists {
		return BalanceResponse{}, balanceerrors.ErrLeaveTypeNotFound
	}

	granted, err := s.repo.Grant(ctx, &LeaveBalance{
		ID:          uuid.New(),
		EmployeeID:  employeeUUID,
		LeaveTypeID: leaveTypeUUID,
		Year:        req.Year,
		TotalDays:   req.TotalDays,
	})
	if err != nil {
		s.logger.Error("grant balance persist failed", zap.Error(err))
		return BalanceResponse{}, err
	}

	s.logger.Info("grant balance success",
		zap.String("balance_id", granted.ID.String()),
		zap.String("employee_id", req.EmployeeID),
		zap.Int("year", granted.Year),
		zap.Int("total_days", granted.TotalDays),
		zap.Int("remaining_days", granted.RemainingDays),
	)

	return mapToResponse(*granted), nil
}

func (s *service) ListAll(ctx context.Context) ([]BalanceResponse, error) {
	balances, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(balances), nil
}

func (s *service) ListForEmployee(ctx context.Context, employeeID string) ([]BalanceResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, balanceerrors.ErrInvalidEmployeeID
	}

	balances, err := s.repo.FindAllByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(balances), nil
}

func (s *service) GetBucket(ctx context.Context, employeeID, leaveTypeID string, year int) (BalanceResponse, error) {
	b, err := s.repo.GetBucket(ctx, employeeID, leaveTypeID, year)
	if err != nil {
		if IsNotFound(err) {
			return BalanceResponse{}, balanceerrors.ErrBalanceNotFound
		}
		return BalanceResponse{}, err
	}
	return mapToResponse(*b), nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return balanceerrors.ErrInvalidBalanceID
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if IsNotFound(err) {
			return balanceerrors.ErrBalanceNotFound
		}
		s.logger.Error("delete balance failed", zap.String("balance_id", id), zap.Error(err))
		return err
	}

	s.logger.Info("delete balance success", zap.String("balance_id", id))
	return nil
}

func mapToResponse(b LeaveBalance) BalanceResponse {
	return BalanceResponse{
		ID:            b.ID.String(),
		EmployeeID:    b.EmployeeID.String(),
		LeaveTypeID:   b.LeaveTypeID.String(),
		Year:          b.Year,
		TotalDays:     b.TotalDays,
		UsedDays:      b.UsedDays,
		RemainingDays: b.RemainingDays,
	}
}

func mapToListResponse(balances []LeaveBalance) []BalanceResponse {
	resp := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		resp[i] = mapToResponse(b)
	}
	return resp
}
