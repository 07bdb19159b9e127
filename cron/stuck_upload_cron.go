package cron

import (
	"log"

	"newcam-dvr/service"

	"github.com/robfig/cron/v3"
)

// StartStuckUploadCron sweeps the upload queue for items a crashed or hung
// worker left in processing and returns them to pending.
func StartStuckUploadCron(uploadService *service.UploadService) {
	go func() {
		schedule := cron.New()
		_, err := schedule.AddFunc("@every 1m", func() {
			n, err := uploadService.RequeueStuck()
			if err != nil {
				log.Printf("stuckUpload : Error requeueing stuck uploads: %v", err)
				return
			}
			if n > 0 {
				log.Printf("stuckUpload : Requeued %d stuck upload items", n)
			}
		})
		if err != nil {
			log.Fatalf("Error scheduling stuck upload cron: %v", err)
		}

		schedule.Start()
		log.Println("stuckUpload : Stuck upload sweep cron job started - will run every 1 minute")
	}()
}
