package leavetype

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeaveType struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name           string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_leave_types_name"`
	MaxDaysPerYear int       `gorm:"type:int;not null"`
	CarryForward   bool      `gorm:"type:boolean;not null;default:false"`
	Description    string    `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_leave_types_deleted_at"`
}
