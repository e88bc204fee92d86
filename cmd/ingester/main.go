package main

import (
	"os"
	"time"

	"github.com/vanityontour/newspipe/ingest"
	"github.com/vanityontour/newspipe/store"
	"github.com/vanityontour/newspipe/utils/dotenv"
	. "github.com/vanityontour/newspipe/utils/log"
)

const defaultIngestInterval = 15 * time.Minute

func ingestInterval() time.Duration {
	if raw := os.Getenv("INGEST_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
		Log.Warn("invalid INGEST_INTERVAL, using default: ", raw)
	}
	return defaultIngestInterval
}

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}
	InitLogger()

	db, err := store.GetDBConnection()
	if err != nil {
		Log.Fatal("fail to connect database : ", err)
	}
	store.DatabaseSetupAndMigration(db)

	engine := ingest.NewEngine(db)
	// Optional single-feed mode, mainly for debugging one origin.
	feedId := os.Getenv("INGEST_FEED_ID")
	interval := ingestInterval()

	Log.Info("ingester starts up, interval=", interval)
	for {
		stats, err := engine.Run(feedId)
		if err != nil {
			Log.Error("ingestion run failed: ", err)
		} else {
			Log.Info("ingestion run ", stats.RunId, ": feeds=", stats.FeedsProcessed,
				" entries=", stats.EntriesSeen, " upserts=", stats.ArticlesUpserted)
		}
		time.Sleep(interval)
	}
}
