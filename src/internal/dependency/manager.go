package dependency

import (
	"context"
	"time"

	"campus-attendance-svc/src/clients"
	"campus-attendance-svc/src/internal/attendance"
	"campus-attendance-svc/src/internal/cache"
	"campus-attendance-svc/src/internal/config"
	"campus-attendance-svc/src/internal/redemption"
	"campus-attendance-svc/src/internal/session"
	"campus-attendance-svc/src/internal/token"

	"github.com/gin-gonic/gin"
)

type Manager struct {
	Router            *gin.Engine
	Config            *config.Configuration
	Mongodb           *clients.MongoDB
	Redis             *clients.RedisClient
	RabbitMQ          *clients.RabbitMQ
	CacheService      cache.Service
	Publisher         *clients.EventPublisher
	RosterClient      *clients.RosterClient
	SessionService    session.Service
	SessionHandler    session.Handler
	AttendanceService attendance.Service
	AttendanceHandler attendance.Handler
	RedemptionHandler redemption.Handler
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) (*Manager, error) {
	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	publisher := clients.NewEventPublisher(cfg, rabbitMQ.Channel)
	rosterClient := clients.NewRosterClient(cfg, cacheService)
	codec := token.NewCodec(cfg.Security.TokenSecret)

	sessionRepo := session.NewRepository(mongodb, cfg.Database.SessionCollection)
	sessionService := session.NewService(sessionRepo, codec, cacheService, publisher, cfg)
	sessionHandler := session.NewHandler(cfg, sessionService)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.Timeout)*time.Second)
	defer cancel()

	ledger, err := attendance.NewLedger(ctx, mongodb, cfg.Database.AttendanceCollection)
	if err != nil {
		return nil, err
	}

	attendanceService := attendance.NewService(ledger, publisher)
	attendanceHandler := attendance.NewHandler(cfg, attendanceService)

	validator := redemption.NewValidator(codec, sessionService, ledger, rosterClient, publisher, cfg)
	redemptionHandler := redemption.NewHandler(cfg, validator)

	return &Manager{
		Router:            router,
		Config:            cfg,
		Mongodb:           mongodb,
		Redis:             redisClient,
		RabbitMQ:          rabbitMQ,
		CacheService:      cacheService,
		Publisher:         publisher,
		RosterClient:      rosterClient,
		SessionService:    sessionService,
		SessionHandler:    sessionHandler,
		AttendanceService: attendanceService,
		AttendanceHandler: attendanceHandler,
		RedemptionHandler: redemptionHandler,
	}, nil
}
