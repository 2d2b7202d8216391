package rbac

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const (
	RoleEmployee = "employee"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

// EnforceRequest describes a single authorization check.
type EnforceRequest struct {
	Role     string
	Resource string
	Action   string
}

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(req EnforceRequest) (bool, error)
	// IsPrivileged reports whether the role may act on other employees' data.
	IsPrivileged(role string) bool
}

type service struct {
	enforcer *casbin.Enforcer
}

// RBAC model is static: role -> resource -> action, with admin inheriting
// hr through a grouping rule.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

var policies = [][]string{
	{RoleEmployee, ResourceLeaveRequest, ActionRead},
	{RoleEmployee, ResourceLeaveRequest, ActionCreate},
	{RoleEmployee, ResourceLeaveBalance, ActionRead},
	{RoleEmployee, ResourceLeaveType, ActionRead},

	{RoleHR, ResourceLeaveRequest, ActionRead},
	{RoleHR, ResourceLeaveRequest, ActionCreate},
	{RoleHR, ResourceLeaveRequest, ActionApprove},
	{RoleHR, ResourceLeaveBalance, ActionRead},
	{RoleHR, ResourceLeaveBalance, ActionManage},
	{RoleHR, ResourceLeaveType, ActionRead},
	{RoleHR, ResourceLeaveType, ActionManage},
}

const (
	ResourceLeaveRequest = "leave_request"
	ResourceLeaveBalance = "leave_balance"
	ResourceLeaveType    = "leave_type"

	ActionRead    = "read"
	ActionCreate  = "create"
	ActionApprove = "approve"
	ActionManage  = "manage"
)

func NewService() (Service, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, err
		}
	}
	// admin mewarisi semua hak hr
	if _, err := enforcer.AddGroupingPolicy(RoleAdmin, RoleHR); err != nil {
		return nil, err
	}

	return &service{enforcer: enforcer}, nil
}

func (s *service) Enforce(req EnforceRequest) (bool, error) {
	return s.enforcer.Enforce(req.Role, req.Resource, req.Action)
}

func (s *service) IsPrivileged(role string) bool {
	return role == RoleHR || role == RoleAdmin
}
