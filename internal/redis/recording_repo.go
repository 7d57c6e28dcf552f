package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mka142/ccw-platform-sub001/internal/domain"
)

const (
	// Redis hash field names for recording keys.
	fieldPieceDuration = "piece_duration_ms"
	fieldStartedAt     = "started_at"
	fieldLastHeartbeat = "last_heartbeat"
	fieldActive        = "active"
	fieldErrorMessage  = "error_message"

	scanBatchSize = 100
)

// RecordingRepo implements domain.RecordingStore on Redis hashes, one hash
// per re-record session keyed by its access token.
type RecordingRepo struct {
	rdb   *goredis.Client
	clock clockwork.Clock
}

func NewRecordingRepo(rdb *goredis.Client, clock clockwork.Clock) *RecordingRepo {
	return &RecordingRepo{rdb: rdb, clock: clock}
}

func (r *RecordingRepo) StartRecording(ctx context.Context, token uuid.UUID, pieceDuration time.Duration) error {
	now := r.clock.Now()
	err := r.rdb.HSet(ctx, recordingKey(token),
		fieldPieceDuration, strconv.FormatInt(pieceDuration.Milliseconds(), 10),
		fieldStartedAt, strconv.FormatInt(now.UnixMilli(), 10),
		fieldLastHeartbeat, "0",
		fieldActive, "1",
		fieldErrorMessage, "",
	).Err()
	if err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	return nil
}

func (r *RecordingRepo) Heartbeat(ctx context.Context, token uuid.UUID) error {
	key := recordingKey(token)
	if err := r.requireExists(ctx, key); err != nil {
		return err
	}
	now := r.clock.Now()
	if err := r.rdb.HSet(ctx, key, fieldLastHeartbeat, strconv.FormatInt(now.UnixMilli(), 10)).Err(); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return nil
}

func (r *RecordingRepo) FinishRecording(ctx context.Context, token uuid.UUID) error {
	key := recordingKey(token)
	if err := r.requireExists(ctx, key); err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, key, fieldActive, "0").Err(); err != nil {
		return fmt.Errorf("failed to finish recording: %w", err)
	}
	return nil
}

// GetActiveRecordings scans all recording keys and returns the active ones.
func (r *RecordingRepo) GetActiveRecordings(ctx context.Context) ([]domain.Recording, error) {
	var recordings []domain.Recording
	var cursor uint64

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("scan cancelled: %w", ctx.Err())
		default:
		}

		keys, nextCursor, err := r.rdb.Scan(ctx, cursor, "recording:*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		for _, key := range keys {
			rec, ok := r.loadRecording(ctx, key)
			if ok && rec.Active {
				recordings = append(recordings, rec)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return recordings, nil
}

func (r *RecordingRepo) MarkRecordingDisconnected(ctx context.Context, token uuid.UUID) error {
	err := r.rdb.HSet(ctx, recordingKey(token), fieldActive, "0").Err()
	if err != nil {
		return fmt.Errorf("failed to mark recording disconnected: %w", err)
	}
	return nil
}

func (r *RecordingRepo) MarkRecordingTimedOut(ctx context.Context, token uuid.UUID, message string) error {
	err := r.rdb.HSet(ctx, recordingKey(token),
		fieldActive, "0",
		fieldErrorMessage, message,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to mark recording timed out: %w", err)
	}
	return nil
}

func (r *RecordingRepo) requireExists(ctx context.Context, key string) error {
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check recording existence: %w", err)
	}
	if n == 0 {
		return domain.ErrRecordingNotFound
	}
	return nil
}

func (r *RecordingRepo) loadRecording(ctx context.Context, key string) (domain.Recording, bool) {
	fields, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		slog.Error("GetActiveRecordings: failed to read key", "key", key, "error", err)
		return domain.Recording{}, false
	}
	if len(fields) == 0 {
		return domain.Recording{}, false
	}

	token, err := uuid.Parse(strings.TrimPrefix(key, "recording:"))
	if err != nil {
		slog.Warn("GetActiveRecordings: invalid token key", "key", key, "error", err)
		return domain.Recording{}, false
	}

	durationMs, err := strconv.ParseInt(fields[fieldPieceDuration], 10, 64)
	if err != nil {
		slog.Warn("GetActiveRecordings: invalid piece duration", "key", key, "error", err)
		return domain.Recording{}, false
	}
	startedAtMs, err := strconv.ParseInt(fields[fieldStartedAt], 10, 64)
	if err != nil {
		slog.Warn("GetActiveRecordings: invalid start timestamp", "key", key, "error", err)
		return domain.Recording{}, false
	}

	rec := domain.Recording{
		Token:         token,
		PieceDuration: time.Duration(durationMs) * time.Millisecond,
		StartedAt:     time.UnixMilli(startedAtMs),
		Active:        fields[fieldActive] == "1",
		ErrorMessage:  fields[fieldErrorMessage],
	}

	if hb, err := strconv.ParseInt(fields[fieldLastHeartbeat], 10, 64); err == nil && hb > 0 {
		t := time.UnixMilli(hb)
		rec.LastHeartbeatAt = &t
	}

	return rec, true
}

func recordingKey(token uuid.UUID) string {
	return "recording:" + token.String()
}
