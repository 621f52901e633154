package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/royo00/music/cache"
	"github.com/royo00/music/config"
	"github.com/royo00/music/core/account"
	"github.com/royo00/music/core/auth"
	"github.com/royo00/music/core/catalog"
	"github.com/royo00/music/core/rate"
	"github.com/royo00/music/db"
	"github.com/royo00/music/logger"
	"github.com/royo00/music/model"
	"github.com/royo00/music/repository"
	"github.com/royo00/music/storage"
)

// Start initializes the dependencies and runs the HTTP server until a
// termination signal arrives.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
	})

	auth.SetSecret(cfg.JWTSecret)

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("数据库连接失败", logger.ErrorField(err))
	}
	defer db.CloseDB()

	if err := db.InitDB(); err != nil {
		logger.Fatal("数据库初始化失败", logger.ErrorField(err))
	}

	// 评分表交给 GORM 管理
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("GORM 连接失败", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.Rating{}); err != nil {
		logger.Fatal("评分表迁移失败", logger.ErrorField(err))
	}

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Redis 连接失败", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	store, err := storage.NewMinioStore(cfg)
	if err != nil {
		logger.Fatal("MinIO 初始化失败", logger.ErrorField(err))
	}

	// 仓储层
	userRepo := repository.NewMySQLUserRepository(db.DB)
	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	favoriteRepo := repository.NewMySQLFavoriteRepository(db.DB)
	historyRepo := repository.NewMySQLPlayHistoryRepository(db.DB)
	ratingRepo := repository.NewGormRatingRepository(db.GormDB)

	// 缓存层
	redisCache := cache.NewRedisCache(db.RedisClient)
	trackCache := cache.NewTrackCache(redisCache)
	userCache := cache.NewUserCache(redisCache)
	playCounter := cache.NewPlayCounter(db.RedisClient)

	// 服务层
	accountService := account.NewService(userRepo, userCache)
	catalogService := catalog.NewService(trackRepo, userRepo, favoriteRepo, historyRepo, trackCache, playCounter, store)
	rateService := rate.NewService(ratingRepo, trackRepo)

	apiHandler := NewAPIHandler(accountService, catalogService, rateService, cfg)

	router := NewRouter(apiHandler)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		logger.Info("服务启动", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务启动失败", logger.ErrorField(err))
		}
	}()

	// 等待中断信号
	<-stop
	logger.Info("收到停止信号，准备关闭服务")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("服务关闭失败", logger.ErrorField(err))
	}

	logger.Info("服务已停止")
}

// NewRouter builds the route table. Split out so tests can mount the API
// against fakes.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()

	// CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", h.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost)

	// 个人资料
	router.HandleFunc("/api/user/profile", h.AuthMiddleware(h.ProfileHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/user/profile", h.AuthMiddleware(h.UpdateProfileHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/user/password", h.AuthMiddleware(h.ChangePasswordHandler)).Methods(http.MethodPut)

	// 音乐浏览，游客可访问，带 token 能看到自己的未发布作品
	router.HandleFunc("/api/music", h.OptionalAuthMiddleware(h.ListTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/music/{id:[0-9]+}", h.OptionalAuthMiddleware(h.TrackDetailHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/music/{id:[0-9]+}/play", h.OptionalAuthMiddleware(h.PlayTrackHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/music/{id:[0-9]+}/stats", h.OptionalAuthMiddleware(h.TrackStatsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/artists/{id:[0-9]+}/stats", h.OptionalAuthMiddleware(h.ArtistStatsHandler)).Methods(http.MethodGet)

	// 收藏、历史、评分需要登录
	router.HandleFunc("/api/music/{id:[0-9]+}/favorite", h.AuthMiddleware(h.FavoriteHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/music/{id:[0-9]+}/favorite", h.AuthMiddleware(h.UnfavoriteHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/music/{id:[0-9]+}/rate", h.AuthMiddleware(h.RateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/user/favorites", h.AuthMiddleware(h.FavoriteListHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/user/history", h.AuthMiddleware(h.HistoryHandler)).Methods(http.MethodGet)

	// 艺人端
	router.HandleFunc("/api/actor/music", h.AuthMiddleware(h.UploadTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/actor/music", h.AuthMiddleware(h.OwnTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/actor/music/{id:[0-9]+}", h.AuthMiddleware(h.UpdateTrackHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/actor/music/{id:[0-9]+}", h.AuthMiddleware(h.DeleteTrackHandler)).Methods(http.MethodDelete)

	// 管理端
	router.HandleFunc("/api/admin/users", h.AuthMiddleware(h.ListUsersHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/users/{id:[0-9]+}/status", h.AuthMiddleware(h.SetUserStatusHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/admin/music/{id:[0-9]+}/status", h.AuthMiddleware(h.SetTrackStatusHandler)).Methods(http.MethodPut)

	return router
}
