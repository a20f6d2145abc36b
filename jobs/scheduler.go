package jobs

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"skillforge/services"
)

// StartScheduler runs the periodic maintenance jobs. Currently there is
// one: marking in-progress challenge participations as failed once the
// challenge window has closed.
func StartScheduler(db *gorm.DB, ledger *services.PointsLedger, logger *log.Logger) *cron.Cron {
	evaluator := services.NewEvaluator(db, ledger)

	scheduler := cron.New()
	// Nightly, shortly after midnight.
	scheduler.AddFunc("5 0 * * *", func() {
		expired, err := evaluator.ExpireChallenges(time.Now())
		if err != nil {
			logger.Printf("challenge expiry sweep failed: %v", err)
			return
		}
		if expired > 0 {
			logger.Printf("challenge expiry sweep: %d participations marked failed", expired)
		}
	})

	scheduler.Start()
	return scheduler
}
