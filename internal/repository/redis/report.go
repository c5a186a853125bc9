package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sharetube/synctube/internal/session"
)

// AppendReport pushes a report to the session's list, keeping the most recent
// reportsLimit entries.
func (r Repo) AppendReport(ctx context.Context, report session.Report) error {
	funcName := "journal.redis.AppendReport"
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := r.getReportsKey(report.RoomID, report.SessionID)
	pipe := r.rc.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, r.reportsLimit-1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.ErrorContext(ctx, funcName, "error", err)
		return err
	}

	return nil
}

// ListReports returns up to limit reports, newest first.
func (r Repo) ListReports(ctx context.Context, roomID, sessionID string, limit int64) ([]session.Report, error) {
	if limit <= 0 || limit > r.reportsLimit {
		limit = r.reportsLimit
	}

	raw, err := r.rc.LRange(ctx, r.getReportsKey(roomID, sessionID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	reports := make([]session.Report, 0, len(raw))
	for _, item := range raw {
		var report session.Report
		if err := json.Unmarshal([]byte(item), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, nil
}
