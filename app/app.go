package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"Gin_gorm_library_borrow/db"
	"Gin_gorm_library_borrow/idempotency"
	"Gin_gorm_library_borrow/library"
	"Gin_gorm_library_borrow/mongostore"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router  *gin.Engine
	Store   library.Store
	Library *library.Service
	RDB     *redis.Client // nil when REDIS_ADDR is unset
	Log     *slog.Logger
	Config  Config

	idem *idempotency.Store
}

// Config 从环境变量读取
type Config struct {
	Port           string
	DBDriver       string
	DatabaseURL    string
	DBDebug        bool
	MongoURI       string
	MongoDB        string
	RedisAddr      string
	RedisPwd       string
	IdempotencyTTL time.Duration
	CORSOrigins    []string
	LogLevel       string
	GinMode        string
}

// Idempotency returns nil when Redis is not configured.
func (a *App) Idempotency() *idempotency.Store { return a.idem }

func MustNew() *App {
	a, err := New(LoadConfig())
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	return a
}

func New(cfg Config) (*App, error) {
	log := NewLogger(cfg.LogLevel)
	slog.SetDefault(log)

	// --- Store: Postgres / MySQL / SQLite via GORM, or MongoDB ---
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	// --- Redis (optional) ---
	var rdb *redis.Client
	var idem *idempotency.Store
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		idem = idempotency.NewStore(rdb, cfg.IdempotencyTTL, 30*time.Second)
	}

	// --- Gin ---
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	registerJSONTagNames()
	r := gin.Default()
	useCORS(r, cfg.CORSOrigins)

	return &App{
		Router:  r,
		Store:   store,
		Library: library.NewService(store, log),
		RDB:     rdb,
		Log:     log,
		Config:  cfg,
		idem:    idem,
	}, nil
}

func (a *App) Close() {
	if a.RDB != nil {
		_ = a.RDB.Close()
	}
	if err := a.Store.Close(); err != nil {
		a.Log.Warn("close store", "err", err)
	}
}

func openStore(cfg Config) (library.Store, error) {
	if cfg.DBDriver == "mongo" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	}
	conn, err := db.Open(db.Options{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL, Debug: cfg.DBDebug})
	if err != nil {
		return nil, err
	}
	return db.NewRepo(conn), nil
}

func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func LoadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}

	driver := strings.ToLower(get("DB_DRIVER", "postgres"))
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		switch driver {
		case "postgres":
			dsn = db.PostgresDSN(
				get("DB_HOST", "127.0.0.1"),
				get("DB_USER", "postgres"),
				os.Getenv("DB_PASSWORD"),
				get("DB_NAME", "library"),
				get("DB_PORT", "5432"),
			)
		case "sqlite":
			dsn = "library.db"
		}
	}

	ttl := 24 * time.Hour
	if d, err := time.ParseDuration(get("IDEMPOTENCY_TTL_SECONDS", "86400") + "s"); err == nil && d > 0 {
		ttl = d
	}

	var origins []string
	for _, o := range strings.Split(get("CORS_ORIGINS", "*"), ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}

	return Config{
		Port:           get("PORT", "3001"),
		DBDriver:       driver,
		DatabaseURL:    dsn,
		DBDebug:        get("DB_DEBUG", "") == "true",
		MongoURI:       get("MONGO_URI", "mongodb://127.0.0.1:27017/?replicaSet=rs0"),
		MongoDB:        get("MONGO_DB", "library"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPwd:       os.Getenv("REDIS_PASSWORD"),
		IdempotencyTTL: ttl,
		CORSOrigins:    origins,
		LogLevel:       get("LOG_LEVEL", "info"),
		GinMode:        os.Getenv("GIN_MODE"),
	}
}
