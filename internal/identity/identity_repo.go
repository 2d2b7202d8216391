package identity

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

//go:generate mockgen -source=identity_repo.go -destination=mock/identity_repo_mock.go -package=mock
type Lookup interface {
	// RoleOf returns the role of an employee, or ok=false when the
	// employee does not exist.
	RoleOf(ctx context.Context, employeeID string) (role string, ok bool, err error)
	Exists(ctx context.Context, employeeID string) (bool, error)
}

type lookup struct {
	db *gorm.DB
}

func NewLookup(db *gorm.DB) Lookup {
	return &lookup{db: db}
}

func (l *lookup) RoleOf(ctx context.Context, employeeID string) (string, bool, error) {
	var e Employee
	err := l.db.WithContext(ctx).
		Select("id", "role").
		First(&e, "id = ?", employeeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return e.Role, true, nil
}

func (l *lookup) Exists(ctx context.Context, employeeID string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&Employee{}).
		Where("id = ?", employeeID).
		Count(&count).Error
	return count > 0, err
}
