package leaverequest

type CreateLeaveRequestRequest struct {
	EmployeeID    string `json:"employee_id" binding:"required,uuid"`
	LeaveTypeID   string `json:"leave_type_id" binding:"required,uuid"`
	StartDate     string `json:"start_date" binding:"required"`
	EndDate       string `json:"end_date" binding:"required"`
	DaysRequested int    `json:"days_requested" binding:"required,gt=0"`
	Reason        string `json:"reason" binding:"required"`
}

type RejectLeaveRequestRequest struct {
	AdminNotes string `json:"admin_notes"`
}

type ApproveLeaveRequestRequest struct {
	AdminNotes string `json:"admin_notes"`
}

type LeaveRequestResponse struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	LeaveTypeID   string  `json:"leave_type_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	DaysRequested int     `json:"days_requested"`
	Reason        string  `json:"reason"`
	Status        string  `json:"status"`
	ApprovedBy    *string `json:"approved_by,omitempty"`
	ApprovedAt    *string `json:"approved_at,omitempty"`
	AdminNotes    *string `json:"admin_notes,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}
