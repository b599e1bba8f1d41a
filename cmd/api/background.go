package main

import (
	"context"
	"time"
)

// markAbandonedCartsEveryHour sweeps active carts whose TTL has passed so
// they stop matching owner lookups and show up as abandoned in the admin
// listing.
func (app *application) markAbandonedCartsEveryHour() {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		sweep := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			n, err := app.store.Carts.MarkExpiredAsAbandoned(ctx)
			if err != nil {
				app.logger.Errorf("Error marking carts as abandoned: %v", err)
				return
			}
			if n > 0 {
				app.logger.Infof("Marked %d carts as abandoned", n)
			}
		}

		// Run once immediately
		sweep()

		// Then run every hour
		for range ticker.C {
			sweep()
		}
	}()
}
