// Package health answers the load balancer's liveness probe. The check pings
// the database and reports connection pool pressure alongside the verdict.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"gorm.io/gorm"
)

const pingTimeout = 5 * time.Second

// Report is the health endpoint's JSON body.
type Report struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	DB        DBReport  `json:"db"`
}

type DBReport struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	PingMillis int64  `json:"ping_ms"`
	OpenConns  int    `json:"open_conns"`
	InUseConns int    `json:"in_use_conns"`
}

// Check returns the health handler. Uptime counts from when the handler was
// built, which is process start for all practical purposes.
func Check(db *gorm.DB) http.HandlerFunc {
	started := time.Now()

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		report := Report{
			Status:    "ok",
			Timestamp: time.Now(),
			Uptime:    time.Since(started).Round(time.Second).String(),
		}

		sqlDB, err := db.DB()
		if err != nil {
			report.Status = "degraded"
			report.DB.Status = "error"
			report.DB.Message = "failed to get database connection"
			writeReport(w, report, http.StatusServiceUnavailable)
			return
		}

		pingStart := time.Now()
		if err := sqlDB.PingContext(ctx); err != nil {
			report.Status = "degraded"
			report.DB.Status = "error"
			report.DB.Message = "database ping failed"
			writeReport(w, report, http.StatusServiceUnavailable)
			return
		}
		report.DB.PingMillis = time.Since(pingStart).Milliseconds()

		stats := sqlDB.Stats()
		report.DB.Status = "ok"
		report.DB.OpenConns = stats.OpenConnections
		report.DB.InUseConns = stats.InUse
		writeReport(w, report, http.StatusOK)
	}
}

func writeReport(w http.ResponseWriter, report Report, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		slog.Error("Failed to encode health response", slog.Any("error", err))
	}
}
