package leavetype

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
	types := r.Group("/leave-types")
	types.Use(middleware.AuthMiddleware())
	{
		types.GET("", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveType, rbac.ActionRead), handler.List)
		types.POST("", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveType, rbac.ActionManage), handler.Create)
		types.PUT("/:id", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveType, rbac.ActionManage), handler.Update)
		types.DELETE("/:id", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveType, rbac.ActionManage), handler.Delete)
	}
}
