package cron

import (
	"fmt"
	"log"
	"time"

	"newcam-dvr/config"
	"newcam-dvr/service"

	"github.com/robfig/cron/v3"
)

// StartReconcileCron runs the filesystem/database reconciler on a fixed
// interval so orphans in either direction get repaired without operator
// intervention.
func StartReconcileCron(cfg config.Config, reconciler *service.Reconciler) {
	go func() {
		// Initial delay so the first sweep does not race startup seeding
		time.Sleep(10 * time.Second)

		// Run immediately once at startup
		reconciler.Run()

		schedule := cron.New()
		spec := fmt.Sprintf("@every %s", cfg.ReconcileInterval)
		_, err := schedule.AddFunc(spec, func() {
			reconciler.Run()
		})
		if err != nil {
			log.Fatalf("Error scheduling reconcile cron: %v", err)
		}

		schedule.Start()
		log.Printf("reconcile : Reconciliation cron job started - will run every %s", cfg.ReconcileInterval)
	}()
}
