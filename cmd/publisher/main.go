package main

import (
	"time"

	"github.com/vanityontour/newspipe/publisher"
	"github.com/vanityontour/newspipe/store"
	"github.com/vanityontour/newspipe/utils/dotenv"
	. "github.com/vanityontour/newspipe/utils/log"
)

const (
	publishBatchSize = 10
	// Protective delay between queue drains.
	drainInterval = 2 * time.Second
)

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		Log.Fatal("fail to load env : ", err)
	}
	InitLogger()

	db, err := store.GetDBConnection()
	if err != nil {
		Log.Fatal("fail to connect database : ", err)
	}

	processor := publisher.NewProcessor(db, publisher.NewWordPressClientFromEnv())

	Log.Info("publisher starts up")
	for {
		stats, err := processor.Run(publishBatchSize)
		if err != nil {
			Log.Error("publish run failed: ", err)
		} else if stats.Processed > 0 {
			Log.Info("publish run ", stats.RunId, ": processed=", stats.Processed,
				" success=", stats.Success, " requeued=", stats.Requeued, " failed=", stats.Failed)
		}
		time.Sleep(drainInterval)
	}
}
