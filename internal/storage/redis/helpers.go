package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeofday"
)

// parseSegment converts a Redis hash to Segment
func parseSegment(data map[string]string) (*storage.Segment, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	start, err := timeofday.Parse(data["start"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse start: %w", err)
	}

	seg := &storage.Segment{
		ID:      data["id"],
		Date:    data["date"],
		Start:   start,
		Label:   data["label"],
		IsBreak: data["is_break"] == "1",
	}

	if raw := data["end"]; raw != "" {
		end, err := timeofday.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end: %w", err)
		}
		seg.End = &end
	}

	return seg, nil
}

// parseBlock converts a Redis hash to Block
func parseBlock(data map[string]string) (*storage.Block, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	start, err := timeofday.Parse(data["start"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse start: %w", err)
	}

	end, err := timeofday.Parse(data["end"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse end: %w", err)
	}

	duration, err := strconv.Atoi(data["duration_minutes"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration_minutes: %w", err)
	}

	return &storage.Block{
		ID:              data["id"],
		Date:            data["date"],
		Start:           start,
		End:             end,
		Label:           data["label"],
		DurationMinutes: duration,
	}, nil
}

// parseLabelUsage converts a Redis hash to LabelUsage
func parseLabelUsage(data map[string]string) (*storage.LabelUsage, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	count, err := strconv.ParseInt(data["usage_count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse usage_count: %w", err)
	}

	lastUsed, err := time.Parse(time.RFC3339Nano, data["last_used"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_used: %w", err)
	}

	return &storage.LabelUsage{
		Label:      data["label"],
		UsageCount: count,
		LastUsed:   lastUsed,
	}, nil
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func endValue(seg storage.Segment) string {
	if seg.End == nil {
		return ""
	}
	return seg.End.String()
}
