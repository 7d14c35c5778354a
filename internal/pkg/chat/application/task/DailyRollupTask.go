package task

import (
	"context"
	"encoding/json"
	"time"

	qport "convohub/internal/infrastructure/queue/port"
	"convohub/internal/pkg/chat/application/usecase"
	repoAdapter "convohub/internal/pkg/chat/persistence/repository/adapter"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DailyRollupTaskType is the queue task name for the daily message stats job.
const DailyRollupTaskType = "chat:daily_rollup"

// DailyRollupPayload pins the day the job aggregates. An empty Day means
// "yesterday relative to execution time", which is what the scheduled run
// uses; a concrete day allows backfills.
type DailyRollupPayload struct {
	Day string `json:"day,omitempty"` // YYYY-MM-DD, UTC
}

// RegisterDailyRollupTask binds the rollup handler and keeps the job on a
// daily cadence: each run re-enqueues the next one shortly after the next
// UTC midnight. The rollup reads message history only; it shares no state
// with the send path.
func RegisterDailyRollupTask(srv qport.Server, client qport.Client, pool *pgxpool.Pool, queue string, log *zap.SugaredLogger) {
	srv.Register(DailyRollupTaskType, func(ctx context.Context, t qport.Task) error {
		var p DailyRollupPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return err
		}

		now := time.Now().UTC()
		var day time.Time
		if p.Day != "" {
			parsed, err := time.Parse("2006-01-02", p.Day)
			if err != nil {
				return err
			}
			day = parsed
		} else {
			day = now.AddDate(0, 0, -1).Truncate(24 * time.Hour)
		}
		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		until := from.AddDate(0, 0, 1)

		repo := repoAdapter.NewPgChatRepository(pool)

		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		stats, err := usecase.NewDailyRollupUseCase(repo).Execute(ctx, from, until)
		if err != nil {
			return err
		}
		log.Infow("daily message rollup",
			"day", from.Format("2006-01-02"),
			"messages", stats.Messages,
			"activeConversations", stats.ActiveConversations,
			"activeSenders", stats.ActiveSenders,
		)

		// Backfill runs do not reschedule; only the rolling daily job does.
		if p.Day == "" {
			ScheduleDailyRollup(ctx, client, queue, now)
		}
		return nil
	})
}

// ScheduleDailyRollup enqueues the next rolling rollup run for five minutes
// past the next UTC midnight. UniqueTTL keeps restarts from stacking up
// duplicate schedules.
func ScheduleDailyRollup(ctx context.Context, client qport.Client, queue string, now time.Time) {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, time.UTC).AddDate(0, 0, 1)
	payload, _ := json.Marshal(DailyRollupPayload{})
	_, _ = client.Enqueue(ctx, qport.Task{Type: DailyRollupTaskType, Payload: payload}, qport.EnqueueOption{
		Queue:     queue,
		ProcessAt: next,
		MaxRetry:  3,
		UniqueTTL: 23 * time.Hour,
	})
}
