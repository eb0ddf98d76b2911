package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a miniredis instance for testing Lua scripts
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

// segmentWriteArgs builds the keys and arguments of applySegmentsScript
// for writes given as op, id, start, end, label.
func segmentWriteArgs(writes ...[5]string) ([]string, []interface{}) {
	keys := []string{activeSegmentKey}
	args := []interface{}{segmentDatePrefix}
	for _, w := range writes {
		keys = append(keys, segmentKey(w[1]), segmentDateKey("2024-05-13"))
		start := 0
		if w[2] != "" {
			var h, m int
			_, _ = fmt.Sscanf(w[2], "%d:%d", &h, &m)
			start = h*60 + m
		}
		args = append(args, w[0], w[1], "2024-05-13", start, w[2], w[3], w[4], "0")
	}
	return keys, args
}

func TestApplySegmentsScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()

	tests := []struct {
		name       string
		write      [5]string
		wantResult int
		wantActive bool
	}{
		{
			name:       "create open segment",
			write:      [5]string{"insert", "seg-1", "09:00", "", "Coding"},
			wantResult: 0,
			wantActive: true,
		},
		{
			name:       "close segment clears active pointer",
			write:      [5]string{"update", "seg-1", "09:00", "10:00", "Coding"},
			wantResult: 0,
			wantActive: false,
		},
		{
			name:       "update of missing segment is refused",
			write:      [5]string{"update", "seg-2", "10:00", "11:00", "Mail"},
			wantResult: 1,
			wantActive: false,
		},
		{
			name:       "delete of missing segment is refused",
			write:      [5]string{"delete", "seg-3", "", "", ""},
			wantResult: 1,
			wantActive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, args := segmentWriteArgs(tt.write)
			result, err := client.Eval(ctx, applySegmentsScript, keys, args...).Int()
			if err != nil {
				t.Fatalf("Script execution failed: %v", err)
			}

			if result != tt.wantResult {
				t.Errorf("Expected result %d, got %d", tt.wantResult, result)
			}

			if got := mr.Exists(activeSegmentKey); got != tt.wantActive {
				t.Errorf("Expected active key exists=%v, got %v", tt.wantActive, got)
			}
		})
	}

	if mr.Exists(segmentKey("seg-2")) {
		t.Error("Refused update must not create the segment")
	}
}

func TestApplySegmentsScript_RefusedBatchWritesNothing(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()

	keys, args := segmentWriteArgs(
		[5]string{"insert", "a", "09:00", "10:00", "A"},
		[5]string{"insert", "b", "10:00", "11:00", "B"},
	)
	if err := client.Eval(ctx, applySegmentsScript, keys, args...).Err(); err != nil {
		t.Fatalf("Seeding failed: %v", err)
	}

	// Delete b and fill its hole, then update a segment that does not exist
	keys, args = segmentWriteArgs(
		[5]string{"delete", "b", "", "", ""},
		[5]string{"insert", "gap", "10:00", "11:00", "Pause"},
		[5]string{"update", "missing", "11:00", "12:00", "C"},
	)
	result, err := client.Eval(ctx, applySegmentsScript, keys, args...).Int()
	if err != nil {
		t.Fatalf("Script execution failed: %v", err)
	}
	if result != 3 {
		t.Errorf("Expected the third write to fail, got %d", result)
	}

	if !mr.Exists(segmentKey("b")) {
		t.Error("Segment b was deleted by a refused batch")
	}
	if mr.Exists(segmentKey("gap")) {
		t.Error("Refused batch inserted a segment")
	}
	members, err := mr.ZMembers(segmentDateKey("2024-05-13"))
	if err != nil {
		t.Fatalf("Date index missing: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("Expected date index [a b], got %v", members)
	}
}

func TestApplySegmentsScript_DeleteAfterInsertInSameBatch(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()

	keys, args := segmentWriteArgs(
		[5]string{"insert", "tmp", "09:00", "", "Coding"},
		[5]string{"delete", "tmp", "", "", ""},
	)
	result, err := client.Eval(ctx, applySegmentsScript, keys, args...).Int()
	if err != nil {
		t.Fatalf("Script execution failed: %v", err)
	}
	if result != 0 {
		t.Errorf("Expected batch to apply, got %d", result)
	}
	if mr.Exists(segmentKey("tmp")) || mr.Exists(activeSegmentKey) {
		t.Error("Expected segment and active pointer to be gone")
	}
}

func TestApplySegmentsScript_KeepsOtherActivePointer(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()

	if err := mr.Set(activeSegmentKey, "running"); err != nil {
		t.Fatalf("Failed to seed active key: %v", err)
	}

	keys, args := segmentWriteArgs([5]string{"insert", "seg-1", "08:00", "09:00", "Mail"})
	if err := client.Eval(ctx, applySegmentsScript, keys, args...).Err(); err != nil {
		t.Fatalf("Script execution failed: %v", err)
	}

	active, err := mr.Get(activeSegmentKey)
	if err != nil {
		t.Fatalf("Active key missing: %v", err)
	}
	if active != "running" {
		t.Errorf("Expected active pointer to stay on running, got %s", active)
	}
}

func TestReplaceBlocksScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()

	for _, id := range []string{"b1", "b2", "b3"} {
		keys := []string{blockKey(id), blockDateKey("2024-05-13")}
		if err := client.Eval(ctx, insertBlockScript, keys,
			id, "2024-05-13", "08:00", "09:00", "Coding", 60,
		).Err(); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	count, err := client.Eval(ctx, replaceBlocksScript, []string{blockDateKey("2024-05-13")},
		blockPrefix,
		"n1", "2024-05-13", "09:00", "10:00", "Mail", 60,
	).Int()
	if err != nil {
		t.Fatalf("Script execution failed: %v", err)
	}

	if count != 3 {
		t.Errorf("Expected 3 replaced blocks, got %d", count)
	}

	for _, id := range []string{"b1", "b2", "b3"} {
		if mr.Exists(blockKey(id)) {
			t.Errorf("Block %s still exists", id)
		}
	}
	list, err := mr.List(blockDateKey("2024-05-13"))
	if err != nil {
		t.Fatalf("Date list missing: %v", err)
	}
	if len(list) != 1 || list[0] != "n1" {
		t.Errorf("Expected date list [n1], got %v", list)
	}
	if got := mr.HGet(blockKey("n1"), "label"); got != "Mail" {
		t.Errorf("Expected new block label Mail, got %s", got)
	}
}

func TestRecordLabelScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	keys := []string{labelKey("coding"), labelUsageKey}

	for i, stamp := range []string{"2024-05-13T09:00:00Z", "2024-05-13T10:00:00Z"} {
		count, err := client.Eval(ctx, recordLabelScript, keys,
			"coding", "Coding", stamp, 1715590800+i*3600,
		).Int()
		if err != nil {
			t.Fatalf("Script execution failed: %v", err)
		}
		if count != i+1 {
			t.Errorf("Expected count %d, got %d", i+1, count)
		}
	}

	if got := mr.HGet(labelKey("coding"), "last_used"); got != "2024-05-13T10:00:00Z" {
		t.Errorf("Expected last_used to be updated, got %s", got)
	}

	score, err := mr.ZScore(labelUsageKey, "coding")
	if err != nil {
		t.Fatalf("Usage index missing: %v", err)
	}
	if score < 2e10 {
		t.Errorf("Expected score to carry the usage count, got %f", score)
	}
}
