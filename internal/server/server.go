package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"spurline/internal/ai"
	"spurline/internal/config"
	"spurline/internal/handler"
	chatHandler "spurline/internal/handler/chat"
	"spurline/internal/pkg/cache"
	"spurline/internal/pkg/mongodb"
	"spurline/internal/realtime"
	chatRepo "spurline/internal/repository/chat"
	"spurline/internal/server/middleware"
	"spurline/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
	hub    *realtime.Hub

	chatSvc *service.ChatService
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB（消息持久化依赖，必须可用）
	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	// 创建索引
	if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	// 初始化 Redis（输入状态标记）
	redisCache, err := cache.NewRedisCache(&cfg.Redis)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")

	// 初始化 AI 客户端
	aiClient, err := ai.New(context.Background(), &cfg.AI)
	if err != nil {
		return nil, err
	}
	log.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("initialized AI client")

	// WebSocket Hub
	hub := realtime.NewHub()

	// 组装服务层
	db := mongoClient.Database()
	convRepo := chatRepo.NewConversationRepo(db)
	msgRepo := chatRepo.NewMessageRepo(db)
	fbRepo := chatRepo.NewFeedbackRepo(db)
	typingSvc := service.NewTypingService(redisCache, cfg.Chat.TypingTTL)
	chatSvc := service.NewChatService(aiClient, convRepo, msgRepo, fbRepo, typingSvc, hub, cfg.Chat.HistoryWindow)

	srv := &Server{
		cfg:     cfg,
		engine:  engine,
		mongo:   mongoClient,
		redis:   redisCache,
		hub:     hub,
		chatSvc: chatSvc,
	}

	// 设置路由
	srv.setupRoutes()

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler(s.mongo, s.redis)
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// WebSocket 实时通道
	wsHandler := realtime.NewWSHandler(s.hub)
	s.engine.GET("/ws", wsHandler.Handle)

	// Chat 接口
	chatHdl := chatHandler.NewHandler(s.chatSvc)
	api := s.engine.Group("/api")
	{
		chatGroup := api.Group("/chat")
		if s.cfg.RateLimit.Enabled {
			limiter := middleware.NewRateLimiter(s.cfg.RateLimit.RequestsPerMinute)
			chatGroup.Use(limiter.Handler())
		}

		chatGroup.POST("/message", chatHdl.SendMessage)
		chatGroup.GET("/:session_id", chatHdl.GetHistory)
		chatGroup.GET("/:session_id/status", chatHdl.GetStatus)
		chatGroup.POST("/:session_id/feedback", chatHdl.SubmitFeedback)
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 关闭连接
		if err := s.mongo.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB connection")
		}
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis connection")
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
