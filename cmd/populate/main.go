// Bulk fixture generator: fills the store with synthetic PENDING
// notifications for load and backlog testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/igronus/notify/internal/config"
	"github.com/igronus/notify/internal/model"
	"github.com/igronus/notify/internal/mongodb"
	notifrepo "github.com/igronus/notify/internal/repository/notification"
)

func main() {
	var (
		total      = flag.Int("total", 1_000_000, "number of notifications to insert")
		batchSize  = flag.Int("batch", 10_000, "insert batch size")
		recipients = flag.Int("recipients", 10_000, "number of distinct recipients")
		horizon    = flag.Duration("horizon", 30*24*time.Hour, "delivery times are spread over this window from now")
	)
	flag.Parse()

	zlog.Init()
	cfg := config.Must()

	ctx := context.Background()

	client, db, err := mongodb.Connect(ctx, cfg.Mongo, cfg.Retry)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer func() { _ = client.Disconnect(ctx) }()

	repo := notifrepo.NewRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	zlog.Logger.Info().Int("total", *total).Int("batch", *batchSize).Msg("starting population")

	start := time.Now()
	now := start.UnixMilli()
	inserted := 0

	for inserted < *total {
		size := min(*batchSize, *total-inserted)

		batch := make([]model.Notification, 0, size)
		for i := 0; i < size; i++ {
			recipientID := fmt.Sprintf("client_%d", rand.Intn(*recipients))
			scheduledAt := now + rand.Int63n(horizon.Milliseconds())

			batch = append(batch, model.Notification{
				ID:          uuid.New().String(),
				RecipientID: recipientID,
				ScheduledAt: scheduledAt,
				Status:      model.StatusPending,
				Text: fmt.Sprintf("Delayed notification for %s at %s - message #%d",
					recipientID, time.UnixMilli(scheduledAt).Format(time.RFC3339), inserted+i+1),
				CreatedAt: time.Now(),
			})
		}

		n, err := repo.InsertBatch(ctx, batch)
		inserted += n
		if err != nil {
			zlog.Logger.Error().Err(err).Int("inserted", inserted).Msg("batch insert failed, stopping")
			break
		}

		zlog.Logger.Info().Int("batch", n).Int("total", inserted).Msg("inserted batch")
	}

	elapsed := time.Since(start)
	rate := float64(inserted) / elapsed.Seconds()

	zlog.Logger.Info().
		Int("inserted", inserted).
		Dur("elapsed", elapsed).
		Float64("per_second", rate).
		Msg("population finished")
}
