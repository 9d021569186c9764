// Command backoffice-sweeper runs scheduled maintenance against the
// entitlement database: hard-deleting expired grants and trimming audit
// records past their retention window.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/backoffice/pkg/audit"
	"github.com/platinummonkey/backoffice/pkg/config"
	"github.com/platinummonkey/backoffice/pkg/grants"
	"github.com/platinummonkey/backoffice/pkg/observability"
)

func main() {
	runOnce := flag.Bool("run-once", false, "Run both sweeps immediately and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Failed to ping database: %v", err)
	}
	pingCancel()

	grantStore := grants.NewStore(db)
	auditStore := audit.NewStore(db)
	retention := time.Duration(cfg.Sweeper.AuditRetentionDays) * 24 * time.Hour

	sweepExpired := func() {
		n, err := grantStore.DeleteExpiredGrants(ctx, time.Now())
		if err != nil {
			logger.WithError(err).Error("Expired grant sweep failed")
			return
		}
		logger.WithField("deleted", n).Info("Swept expired grants")
	}
	sweepAudit := func() {
		n, err := auditStore.Cleanup(ctx, retention)
		if err != nil {
			logger.WithError(err).Error("Audit retention sweep failed")
			return
		}
		logger.WithField("deleted", n).Info("Trimmed audit records")
	}

	if *runOnce {
		sweepExpired()
		sweepAudit()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Sweeper.ExpirySchedule, sweepExpired); err != nil {
		log.Fatalf("Invalid expiry schedule %q: %v", cfg.Sweeper.ExpirySchedule, err)
	}
	if _, err := c.AddFunc(cfg.Sweeper.RetentionSchedule, sweepAudit); err != nil {
		log.Fatalf("Invalid retention schedule %q: %v", cfg.Sweeper.RetentionSchedule, err)
	}

	logger.WithFields(map[string]interface{}{
		"expiry_schedule":    cfg.Sweeper.ExpirySchedule,
		"retention_schedule": cfg.Sweeper.RetentionSchedule,
		"retention_days":     cfg.Sweeper.AuditRetentionDays,
	}).Info("Starting sweeper")
	c.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Stopping sweeper")
	stopCtx := c.Stop()
	<-stopCtx.Done()
}
