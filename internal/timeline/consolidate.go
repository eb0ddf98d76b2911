package timeline

import (
	"fmt"
	"sort"

	"github.com/goodtune/daybook/internal/storage"
)

// Consolidate merges a day's closed work segments by label and lays them
// out as blocks of at most MaxBlockMinutes. Each label group starts at its
// earliest segment; groups longer than the cap are numbered " (Teil N)".
// Open segments, breaks and unlabeled segments are ignored. The input is
// not modified and equal inputs give equal outputs.
func Consolidate(segments []storage.Segment) []storage.Block {
	groups := make(map[string][]storage.Segment)
	for _, seg := range segments {
		if !seg.Closed() || seg.IsBreak {
			continue
		}
		key := storage.LabelKey(seg.Label)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], seg)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var blocks []storage.Block
	for _, key := range keys {
		members := groups[key]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Start < members[j].Start
		})
		total := 0
		for _, seg := range members {
			total += seg.Duration()
		}
		blocks = append(blocks, layoutGroup(members[0], total)...)
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Start != blocks[j].Start {
			return blocks[i].Start < blocks[j].Start
		}
		return blocks[i].Label < blocks[j].Label
	})
	return blocks
}

func layoutGroup(first storage.Segment, total int) []storage.Block {
	numbered := total > MaxBlockMinutes
	cursor := first.Start

	var blocks []storage.Block
	for part := 1; total > 0; part++ {
		chunk := min(total, MaxBlockMinutes)
		label := first.Label
		if numbered {
			label = fmt.Sprintf("%s (Teil %d)", first.Label, part)
		}
		end := cursor.Add(chunk)
		blocks = append(blocks, storage.Block{
			Date:            first.Date,
			Start:           cursor,
			End:             end,
			Label:           label,
			DurationMinutes: chunk,
		})
		cursor = end
		total -= chunk
	}
	return blocks
}
