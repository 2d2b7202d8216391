package balance

import (
	"time"

	"github.com/google/uuid"
)

// LeaveBalance is one bucket: the entitlement of a single employee for a
// single leave type in a single year. remaining_days is stored, but every
// write path recomputes it from total_days and used_days in the same
// statement, so the invariant remaining = total - used holds on disk.
type LeaveBalance struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EmployeeID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_leave_balances_bucket"`
	LeaveTypeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_leave_balances_bucket"`
	Year        int       `gorm:"type:int;not null;uniqueIndex:idx_leave_balances_bucket"`

	TotalDays     int `gorm:"type:int;not null"`
	UsedDays      int `gorm:"type:int;not null;default:0"`
	RemainingDays int `gorm:"type:int;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
