package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/devmatch/internal/cache"
	"github.com/oggyb/devmatch/internal/compat"
)

// Realtime is the part of the websocket gateway that request/response
// services use to push events and read presence.
type Realtime interface {
	NotifyUser(userID uint64, event string, data any)
	NotifyMatch(matchID uint64, event string, data any)
	IsOnline(userID uint64) bool
}

// Scheduler queues background compatibility scoring.
type Scheduler interface {
	Submit(job compat.Job) bool
}

// AppContext holds shared dependencies (DB, Redis, Logger, gateway, scoring).
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Realtime   Realtime
	Compat     Scheduler
}

// New creates a new AppContext
func New(db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, rt Realtime, sched Scheduler) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Realtime:   rt,
		Compat:     sched,
	}
}
