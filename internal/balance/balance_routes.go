package balance

import (
	"leavedesk/internal/middleware"
	"leavedesk/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	balances := r.Group("/leave-balances")
	balances.Use(middleware.AuthMiddleware())
	{
		balances.GET("", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveBalance, rbac.ActionRead), handler.List)
		balances.POST("", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveBalance, rbac.ActionManage), handler.Grant)
		balances.DELETE("/:id", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveBalance, rbac.ActionManage), handler.Delete)
	}
}
