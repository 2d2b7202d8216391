package leaverequest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"leavedesk/internal/rbac"
	"leavedesk/internal/shared/apperror"
	"leavedesk/internal/shared/contextutil"
	"leavedesk/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	rbac    rbac.Service
	rdb     *redis.Client
	logger  *zap.Logger
}

func NewHandler(service Service, rbacService rbac.Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("leaverequest.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leaverequest.handler")
	}
	return &Handler{service: service, rbac: rbacService, logger: l}
}

// NewHandlerWithRedis mengaktifkan result-cache idempotency untuk endpoint
// transisi: handler menyimpan response di cache key dan melepas lock key yang
// dipasang middleware.Idempotency.
func NewHandlerWithRedis(service Service, rbacService rbac.Service, rdb *redis.Client, logger ...*zap.Logger) *Handler {
	h := NewHandler(service, rbacService, logger...)
	h.rdb = rdb
	return h
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("leave request failed",
		zap.String("request_id", contextutil.GetRequestID(c.Request.Context())),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Create(c *gin.Context) {
	actorID := c.GetString("employee_id")

	var req CreateLeaveRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create leave request validation failed", zap.Error(err))
		httpErr := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, nil)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

// List returns the caller's own requests; privileged roles may pass
// ?employee_id= or omit it for the full list. Paging dikerjakan di query,
// bukan memotong slice di memori.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	actorID := c.GetString("employee_id")
	role := c.GetString("role")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if pageSize < 1 {
		pageSize = 10
	}

	var resp []LeaveRequestResponse
	var total int64
	var err error

	switch {
	case !h.rbac.IsPrivileged(role):
		resp, total, err = h.service.ListForEmployee(ctx, actorID, page, pageSize)
	case c.Query("employee_id") != "":
		resp, total, err = h.service.ListForEmployee(ctx, c.Query("employee_id"), page, pageSize)
	default:
		resp, total, err = h.service.ListAll(ctx, page, pageSize)
	}

	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, resp, &meta)
}

func (h *Handler) GetById(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	actorID := c.GetString("employee_id")
	role := c.GetString("role")

	resp, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if !h.rbac.IsPrivileged(role) && resp.EmployeeID != actorID {
		response.Error(c, http.StatusForbidden, apperror.CodeForbidden,
			"You do not have permission to access this resource", nil)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

// releaseIdempotencyLock melepas lock key dari middleware.Idempotency lewat
// defer, apapun hasil transisinya, supaya retry tidak tertahan 409 sampai
// lock expire.
func (h *Handler) releaseIdempotencyLock(c *gin.Context) {
	if h.rdb == nil {
		return
	}
	if lk := c.GetString("idempotency_lock_key"); lk != "" {
		h.rdb.Del(c.Request.Context(), lk)
	}
}

func (h *Handler) cacheIdempotentResult(c *gin.Context, resp LeaveRequestResponse) {
	if h.rdb == nil {
		return
	}
	ck := c.GetString("idempotency_cache_key")
	if ck == "" {
		return
	}
	if payload, err := json.Marshal(resp); err == nil {
		_ = h.rdb.Set(c.Request.Context(), ck, payload, 24*time.Hour).Err()
	}
}

func (h *Handler) Approve(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	actorID := c.GetString("employee_id")
	defer h.releaseIdempotencyLock(c)

	// Body optional untuk approve
	var req ApproveLeaveRequestRequest
	_ = c.ShouldBindJSON(&req)

	var notes *string
	if req.AdminNotes != "" {
		notes = &req.AdminNotes
	}

	resp, err := h.service.Transition(ctx, id, StatusApproved, actorID, notes)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.cacheIdempotentResult(c, resp)
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Reject(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	actorID := c.GetString("employee_id")
	defer h.releaseIdempotencyLock(c)

	var req RejectLeaveRequestRequest
	_ = c.ShouldBindJSON(&req)

	var notes *string
	if req.AdminNotes != "" {
		notes = &req.AdminNotes
	}

	resp, err := h.service.Transition(ctx, id, StatusRejected, actorID, notes)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.cacheIdempotentResult(c, resp)
	response.Success(c, http.StatusOK, resp, nil)
}
