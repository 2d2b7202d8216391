package app

import (
	"leavedesk/internal/balance"
	"leavedesk/internal/identity"
	"leavedesk/internal/leaverequest"
	"leavedesk/internal/leavetype"
	"leavedesk/internal/notification"
	"leavedesk/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	// --- RBAC Core ---
	rbacService, err := rbac.NewService()
	if err != nil {
		return err
	}

	// --- Repositories ---
	identityLookup := identity.NewLookup(gormDB)
	leaveTypeRepo := leavetype.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB)
	leaveRequestRepo := leaverequest.NewRepository(gormDB)
	outboxRepo := notification.NewOutboxRepository(db)

	// --- Services ---
	dispatcher := notification.NewOutboxDispatcher(outboxRepo)
	leaveTypeService := leavetype.NewService(leaveTypeRepo, rdb)
	balanceService := balance.NewService(balanceRepo, identityLookup)
	leaveRequestService := leaverequest.NewService(db, leaveRequestRepo, balanceRepo, identityLookup, dispatcher)

	// --- Handlers ---
	leaveTypeHandler := leavetype.NewHandler(leaveTypeService)
	balanceHandler := balance.NewHandler(balanceService, rbacService)
	leaveRequestHandler := leaverequest.NewHandlerWithRedis(leaveRequestService, rbacService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		leavetype.RegisterRoutes(api, leaveTypeHandler, rbacService)
		balance.RegisterRoutes(api, balanceHandler, rbacService)
		leaverequest.RegisterRoutes(api, leaveRequestHandler, rbacService, rdb)
	}

	return nil
}
