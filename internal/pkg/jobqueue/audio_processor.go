package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	metrics "github.com/soundhaven/soundhaven/internal/pkg/metrics/counter"
	"github.com/soundhaven/soundhaven/internal/pkg/storage"
)

// processAudioDeleteJob removes the audio object for a deleted track.
func (q *Queue) processAudioDeleteJob(ctx context.Context, job *Job) error {
	payload, err := AudioDeleteJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid audio delete payload: %w", err)
	}
	if payload.AudioKey == "" {
		return fmt.Errorf("audio delete payload missing audio key")
	}

	store := storage.GetAudioStore()
	if store == nil {
		return fmt.Errorf("audio store not initialized")
	}

	if err := store.Delete(ctx, payload.AudioKey); err != nil {
		return fmt.Errorf("failed to delete audio object %s: %w", payload.AudioKey, err)
	}

	log.Infof("[JobQueue] Deleted audio object %s for track %d", payload.AudioKey, payload.TrackID)
	return nil
}

// processCounterFlushJob drains the Redis counters into the database.
// The manager also runs this on a ticker; an explicit job is useful for
// admin-triggered flushes.
func (q *Queue) processCounterFlushJob(job *Job) error {
	return metrics.FlushAll()
}
