package identity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Employee is the slice of the HR employee record this service reads.
// Profile management lives elsewhere; only identity and role matter here.
type Employee struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FullName string    `gorm:"type:varchar(150);not null"`
	Email    string    `gorm:"type:varchar(150);not null;uniqueIndex:idx_employees_email"`
	Role     string    `gorm:"type:varchar(20);not null;default:'employee'"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_employees_deleted_at"`
}
