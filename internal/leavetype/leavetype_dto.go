package leavetype

type CreateLeaveTypeRequest struct {
	Name           string `json:"name" binding:"required,max=50"`
	MaxDaysPerYear int    `json:"max_days_per_year" binding:"required,gt=0"`
	CarryForward   bool   `json:"carry_forward"`
	Description    string `json:"description"`
}

type UpdateLeaveTypeRequest struct {
	Name           string `json:"name" binding:"required,max=50"`
	MaxDaysPerYear int    `json:"max_days_per_year" binding:"required,gt=0"`
	CarryForward   bool   `json:"carry_forward"`
	Description    string `json:"description"`
}

type LeaveTypeResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MaxDaysPerYear int    `json:"max_days_per_year"`
	CarryForward   bool   `json:"carry_forward"`
	Description    string `json:"description,omitempty"`
}
