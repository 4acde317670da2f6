package http

import (
	"errors"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
)

var errNoDatabase = errors.New("database connection unavailable")

type healthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
	DBStatus  string    `json:"db_status"`
}

// HealthIndexAction reports service liveness and whether the metrics
// database answers a ping. A degraded report still returns 200, the
// load balancer only restarts on connection failure.
func HealthIndexAction(ctx *cartridge.Context) error {
	resp := healthResponse{
		Status:    "ok",
		Service:   "vetpulse",
		Timestamp: time.Now().UTC(),
		DBStatus:  "ok",
	}

	if err := pingDatabase(ctx); err != nil {
		ctx.Logger.Error("Health check database ping failed", slog.Any("error", err))
		resp.Status = "degraded"
		resp.DBStatus = "error"
	}

	return ctx.JSON(resp)
}

func pingDatabase(ctx *cartridge.Context) error {
	db := ctx.DBManager.GetConnection()
	if db == nil {
		return errNoDatabase
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
