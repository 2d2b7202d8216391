package leavetype

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	leavetypeerrors "leavedesk/internal/leavetype/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const CatalogCacheKey = "leave_types:catalog"

// Default catalog seeded on first read against an empty registry.
var defaultCatalog = []LeaveType{
	{Name: "ANNUAL", MaxDaysPerYear: 12, CarryForward: true, Description: "Paid annual leave"},
	{Name: "SICK", MaxDaysPerYear: 14, CarryForward: false, Description: "Paid sick leave"},
	{Name: "UNPAID", MaxDaysPerYear: 30, CarryForward: false, Description: "Unpaid personal leave"},
	{Name: "MATERNITY", MaxDaysPerYear: 90, CarryForward: false, Description: "Maternity leave"},
}

//go:generate mockgen -source=leavetype_service.go -destination=mock/leavetype_service_mock.go -package=mock
type Service interface {
	List(ctx context.Context) ([]LeaveTypeResponse, error)
	Create(ctx context.Context, req CreateLeaveTypeRequest) (LeaveTypeResponse, error)
	Update(ctx context.Context, id string, req UpdateLeaveTypeRequest) (LeaveTypeResponse, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("leavetype.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leavetype.service")
	}
	return &service{repo: repo, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

func (s *service) List(ctx context.Context) ([]LeaveTypeResponse, error) {
	// 1. Cek Redis
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, CatalogCacheKey).Result(); err == nil {
			var resp []LeaveTypeResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	// 2. Singleflight supaya cache-miss serentak hanya memukul DB sekali
	v, err, _ := s.sf.Do(CatalogCacheKey, func() (interface{}, error) {
		if err := s.ensureSeeded(ctx); err != nil {
			return nil, err
		}

		types, err := s.repo.FindAll(ctx)
		if err != nil {
			return nil, err
		}

		resp := mapToListResponse(types)

		// 3. Simpan ke Redis (TTL 1 jam cukup karena data master)
		if s.rdb != nil {
			if jsonData, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, CatalogCacheKey, jsonData, 1*time.Hour)
			}
		}

		return resp, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]LeaveTypeResponse), nil
}

// ensureSeeded inserts the default catalog when the registry is empty. The
// count check plus ON CONFLICT insert keeps concurrent first calls from
// duplicating rows.
func (s *service) ensureSeeded(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := make([]LeaveType, len(defaultCatalog))
	copy(defaults, defaultCatalog)
	for i := range defaults {
		defaults[i].ID = uuid.New()
	}

	if err := s.repo.SeedDefaults(ctx, defaults); err != nil {
		s.logger.Error("seed default leave types failed", zap.Error(err))
		return err
	}

	s.logger.Info("seeded default leave types", zap.Int("count", len(defaults)))
	return nil
}

func (s *service) Create(ctx context.Context, req CreateLeaveTypeRequest) (LeaveTypeResponse, error) {
	s.logger.Debug("create leave type requested", zap.String("name", req.Name))

	lt := &LeaveType{
		ID:             uuid.New(),
		Name:           req.Name,
		MaxDaysPerYear: req.MaxDaysPerYear,
		CarryForward:   req.CarryForward,
		Description:    req.Description,
	}

	if err := s.repo.Create(ctx, lt); err != nil {
		if isUniqueViolation(err) {
			return LeaveTypeResponse{}, leavetypeerrors.ErrDuplicateLeaveTypeName
		}
		s.logger.Error("create leave type persist failed", zap.Error(err))
		return LeaveTypeResponse{}, err
	}

	s.invalidateCache(ctx)
	s.logger.Info("create leave type success", zap.String("leave_type_id", lt.ID.String()), zap.String("name", lt.Name))

	return mapToResponse(*lt), nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateLeaveTypeRequest) (LeaveTypeResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return LeaveTypeResponse{}, leavetypeerrors.ErrInvalidLeaveTypeID
	}

	lt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveTypeResponse{}, leavetypeerrors.ErrLeaveTypeNotFound
		}
		return LeaveTypeResponse{}, err
	}

	lt.Name = req.Name
	lt.MaxDaysPerYear = req.MaxDaysPerYear
	lt.CarryForward = req.CarryForward
	lt.Description = req.Description

	if err := s.repo.Update(ctx, lt); err != nil {
		if isUniqueViolation(err) {
			return LeaveTypeResponse{}, leavetypeerrors.ErrDuplicateLeaveTypeName
		}
		s.logger.Error("update leave type persist failed", zap.String("leave_type_id", id), zap.Error(err))
		return LeaveTypeResponse{}, err
	}

	s.invalidateCache(ctx)
	s.logger.Info("update leave type success", zap.String("leave_type_id", id))

	return mapToResponse(*lt), nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return leavetypeerrors.ErrInvalidLeaveTypeID
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return leavetypeerrors.ErrLeaveTypeNotFound
		}
		return err
	}

	referenced, err := s.repo.IsReferencedByBalances(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return leavetypeerrors.ErrLeaveTypeInUse
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("delete leave type failed", zap.String("leave_type_id", id), zap.Error(err))
		return err
	}

	s.invalidateCache(ctx)
	s.logger.Info("delete leave type success", zap.String("leave_type_id", id))
	return nil
}

func (s *service) invalidateCache(ctx context.Context) {
	if s.rdb != nil {
		s.rdb.Del(ctx, CatalogCacheKey)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapToResponse(lt LeaveType) LeaveTypeResponse {
	return LeaveTypeResponse{
		ID:             lt.ID.String(),
		Name:           lt.Name,
		MaxDaysPerYear: lt.MaxDaysPerYear,
		CarryForward:   lt.CarryForward,
		Description:    lt.Description,
	}
}

func mapToListResponse(types []LeaveType) []LeaveTypeResponse {
	resp := make([]LeaveTypeResponse, len(types))
	for i, lt := range types {
		resp[i] = mapToResponse(lt)
	}
	return resp
}
