package leaverequest

import (
	"leavedesk/internal/middleware"
	"leavedesk/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
	rdb *redis.Client,
) {
	requests := r.Group("/leave-requests")
	requests.Use(middleware.AuthMiddleware())
	{
		requests.GET("", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionRead), handler.List)
		requests.GET("/:id", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionRead), handler.GetById)
		requests.POST("", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionCreate), handler.Create)

		// Transisi dilindungi idempotency middleware; deteksi race final tetap
		// di conditional update coordinator.
		approve := requests.Group("")
		if rdb != nil {
			approve.Use(middleware.Idempotency(rdb))
		}
		approve.POST("/:id/approve", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionApprove), handler.Approve)
		approve.POST("/:id/reject", middleware.RBACAuthorize(rbacService, rbac.ResourceLeaveRequest, rbac.ActionApprove), handler.Reject)
	}
}
