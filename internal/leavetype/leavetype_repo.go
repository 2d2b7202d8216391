package leavetype

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leavetype_repo.go -destination=mock/leavetype_repo_mock.go -package=mock
type Repository interface {
	Count(ctx context.Context) (int64, error)
	SeedDefaults(ctx context.Context, defaults []LeaveType) error
	FindAll(ctx context.Context) ([]LeaveType, error)
	FindByID(ctx context.Context, id string) (*LeaveType, error)
	Create(ctx context.Context, lt *LeaveType) error
	Update(ctx context.Context, lt *LeaveType) error
	Delete(ctx context.Context, id string) error
	IsReferencedByBalances(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&LeaveType{}).Count(&count).Error
	return count, err
}

// SeedDefaults inserts the default catalog. ON CONFLICT DO NOTHING keeps the
// seed idempotent when two first calls race past the count check.
func (r *repository) SeedDefaults(ctx context.Context, defaults []LeaveType) error {
	for _, lt := range defaults {
		err := r.db.WithContext(ctx).Exec(`
			INSERT INTO leave_types (id, name, max_days_per_year, carry_forward, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, now(), now())
			ON CONFLICT (name) DO NOTHING
		`, lt.ID, lt.Name, lt.MaxDaysPerYear, lt.CarryForward, lt.Description).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) FindAll(ctx context.Context) ([]LeaveType, error) {
	var types []LeaveType
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&types).Error
	return types, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveType, error) {
	var lt LeaveType
	err := r.db.WithContext(ctx).First(&lt, "id = ?", id).Error
	return &lt, err
}

func (r *repository) Create(ctx context.Context, lt *LeaveType) error {
	return r.db.WithContext(ctx).Create(lt).Error
}

func (r *repository) Update(ctx context.Context, lt *LeaveType) error {
	return r.db.WithContext(ctx).Save(lt).Error
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&LeaveType{}, "id = ?", id).Error
}

func (r *repository) IsReferencedByBalances(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("leave_balances").
		Where("leave_type_id = ?", id).
		Count(&count).Error
	return count > 0, err
}
