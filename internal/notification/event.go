package notification

import "time"

const LeaveStatusTopic = "hr.leave.status.v1"

const (
	EventLeaveApproved = "leave.approved"
	EventLeaveRejected = "leave.rejected"
)

// LeaveStatusEvent is published whenever a leave request reaches a terminal
// state. Consumers (mail relay, in-app feed) live outside this service.
type LeaveStatusEvent struct {
	EventType   string    `json:"event_type"`
	RequestID   string    `json:"request_id"`
	EmployeeID  string    `json:"employee_id"`
	LeaveTypeID string    `json:"leave_type_id"`
	Days        int       `json:"days"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}
