package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mka142/ccw-platform-sub001/internal/domain"
	"github.com/mka142/ccw-platform-sub001/internal/metrics"
)

const (
	// durationMultiplier scales the piece duration into the absolute timeout
	// budget. Intentionally 1x; bump here if stakeholders settle on 1.5x.
	durationMultiplier = 1
	// fixedGrace is added on top of the scaled piece duration.
	fixedGrace = 2 * time.Minute
	// recordingHeartbeatTimeout is how stale a recording heartbeat may be
	// before the session counts as disconnected.
	recordingHeartbeatTimeout = 30 * time.Second

	timeoutErrorMessage = "status 'finished' was not called properly by user after recording ended"
)

// RecordingTimeoutValidator reconciles in-progress re-record sessions. Each
// active recording ends a pass in exactly one of three states: still active,
// disconnected (heartbeat lost, no error message), or timed out with the
// fixed error message. The two terminal outcomes are mutually exclusive per
// pass: an absolute timeout skips the heartbeat check for that recording.
type RecordingTimeoutValidator struct {
	recordings domain.RecordingStore
	clock      clockwork.Clock
}

func NewRecordingTimeoutValidator(recordings domain.RecordingStore, clock clockwork.Clock) *RecordingTimeoutValidator {
	return &RecordingTimeoutValidator{recordings: recordings, clock: clock}
}

// Run executes one validation pass over all active recordings.
func (v *RecordingTimeoutValidator) Run(ctx context.Context) error {
	recordings, err := v.recordings.GetActiveRecordings(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active recordings: %w", err)
	}

	now := v.clock.Now()
	for _, rec := range recordings {
		elapsed := now.Sub(rec.StartedAt)
		threshold := durationMultiplier*rec.PieceDuration + fixedGrace

		if elapsed > threshold {
			if err := v.recordings.MarkRecordingTimedOut(ctx, rec.Token, timeoutErrorMessage); err != nil {
				slog.Warn("Recording validation: failed to mark timed out",
					"token", rec.Token.String(),
					"error", err,
				)
				continue
			}
			metrics.RecordingsTimedOutTotal.Inc()
			slog.Info("Recording timed out",
				"token", rec.Token.String(),
				"elapsed", elapsed,
				"threshold", threshold,
			)
			continue
		}

		if rec.LastHeartbeatAt != nil && now.Sub(*rec.LastHeartbeatAt) > recordingHeartbeatTimeout {
			if err := v.recordings.MarkRecordingDisconnected(ctx, rec.Token); err != nil {
				slog.Warn("Recording validation: failed to mark disconnected",
					"token", rec.Token.String(),
					"error", err,
				)
				continue
			}
			metrics.RecordingsDisconnectedTotal.Inc()
			slog.Info("Recording disconnected",
				"token", rec.Token.String(),
				"last_heartbeat", rec.LastHeartbeatAt,
			)
		}
	}

	return nil
}
