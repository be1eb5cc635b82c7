package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ereas/ereas-backend/internal/config"
	"github.com/ereas/ereas-backend/internal/service"
)

const (
	StatsBatchSize    = 50
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

// ResultStatsWorker consumes scored-result events off the Redis queue and
// accumulates per-exam aggregates in Postgres. Aggregates are advisory; the
// results table remains the record of truth.
type ResultStatsWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewResultStatsWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultStatsWorker {
	return &ResultStatsWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_stats_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultStatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultStatsWorker started")

	batch := make([]*service.ResultEvent, 0, StatsBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.PersistResultStatsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var ev service.ResultEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &ev)
		}
	}
}

// ----------------------------------------------------------------
// Batch Upsert Wrapper
// ----------------------------------------------------------------

func (w *ResultStatsWorker) flushSafe(ctx context.Context, batch []*service.ResultEvent) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpsertStats(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk stats upsert failed, using fallback")

		for _, ev := range batch {
			if err := w.persistSingle(ctx, ev); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(ev)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultStatsQueue, raw)
			}
		}
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPSERT using UNNEST + alias
// ----------------------------------------------------------------

func (w *ResultStatsWorker) bulkUpsertStats(ctx context.Context, batch []*service.ResultEvent) error {
	n := len(batch)

	examIDs := make([]uuid.UUID, 0, n)
	scores := make([]int, 0, n)
	percentages := make([]float64, 0, n)
	completedAts := make([]time.Time, 0, n)

	for _, ev := range batch {
		eID, err := uuid.Parse(ev.ExamID)
		if err != nil {
			return err
		}
		var pct float64
		if ev.Percentage != nil {
			pct = *ev.Percentage
		}
		examIDs = append(examIDs, eID)
		scores = append(scores, ev.Score)
		percentages = append(percentages, pct)
		completedAts = append(completedAts, ev.CompletedAt)
	}

	query := `
		INSERT INTO exam_stats (exam_id, submissions, score_sum, percentage_sum, last_submission_at)
		SELECT
			u.exam_id,
			COUNT(*),
			SUM(u.score),
			SUM(u.percentage),
			MAX(u.completed_at)
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::float8[],
			$4::timestamptz[]
		) AS u (exam_id, score, percentage, completed_at)
		GROUP BY u.exam_id
		ON CONFLICT (exam_id) DO UPDATE
		SET submissions        = exam_stats.submissions + EXCLUDED.submissions,
		    score_sum          = exam_stats.score_sum + EXCLUDED.score_sum,
		    percentage_sum     = exam_stats.percentage_sum + EXCLUDED.percentage_sum,
		    last_submission_at = GREATEST(exam_stats.last_submission_at, EXCLUDED.last_submission_at)
	`

	_, err := w.pool.Exec(ctx, query, examIDs, scores, percentages, completedAts)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single upsert
// ----------------------------------------------------------------

func (w *ResultStatsWorker) persistSingle(ctx context.Context, ev *service.ResultEvent) error {
	eID, err := uuid.Parse(ev.ExamID)
	if err != nil {
		return err
	}

	var pct float64
	if ev.Percentage != nil {
		pct = *ev.Percentage
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO exam_stats (exam_id, submissions, score_sum, percentage_sum, last_submission_at)
		 VALUES ($1, 1, $2, $3, $4)
		 ON CONFLICT (exam_id) DO UPDATE
		 SET submissions        = exam_stats.submissions + 1,
		     score_sum          = exam_stats.score_sum + EXCLUDED.score_sum,
		     percentage_sum     = exam_stats.percentage_sum + EXCLUDED.percentage_sum,
		     last_submission_at = GREATEST(exam_stats.last_submission_at, EXCLUDED.last_submission_at)`,
		eID, ev.Score, pct, ev.CompletedAt,
	)
	return err
}
