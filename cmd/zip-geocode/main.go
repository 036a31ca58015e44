// Command zip-geocode backfills missing latitude/longitude on stored dataset
// demographics from the offline ZIP centroid table. Useful after extending
// the centroid CSV via ZIP_CENTROIDS_PATH.
package main

import (
	"context"
	"sync/atomic"

	datasetsrepo "marketscope_backend/internal/datasets/repository"
	"marketscope_backend/internal/geo"
	"marketscope_backend/platform/config"
	"marketscope_backend/platform/db"
	"marketscope_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting zip geocode backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	centroids, err := geo.LoadTable(cfg.GetZipCentroidsPath())
	if err != nil {
		log.Error("failed to load zip centroid table", "error", err)
		panic("failed to load zip centroid table: " + err.Error())
	}
	log.Info("zip centroid table loaded", "zips", centroids.Len())

	repo := datasetsrepo.New(pool)

	const batchSize = 100
	var updated atomic.Int64
	for {
		missing, err := repo.ListDemographicsMissingLocation(ctx, batchSize)
		if err != nil {
			log.Error("failed to list rows missing location", "error", err)
			return
		}
		if len(missing) == 0 {
			log.Info("zip geocode backfill complete", "updated", updated.Load())
			return
		}

		before := updated.Load()
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(8)
		for _, row := range missing {
			row := row
			centroid, ok := centroids.Lookup(row.Zip)
			if !ok {
				continue
			}
			group.Go(func() error {
				if err := repo.UpdateDemographicLocation(groupCtx, row.DatasetID, row.Zip, centroid.Lat, centroid.Lon); err != nil {
					log.Error("failed to update demographic location", "datasetId", row.DatasetID, "zip", row.Zip, "error", err)
					return nil
				}
				updated.Add(1)
				return nil
			})
		}
		_ = group.Wait()

		if updated.Load() == before {
			log.Info("remaining rows have no centroid; stopping", "remaining", len(missing), "updated", updated.Load())
			return
		}
	}
}
