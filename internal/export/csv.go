// Package export writes days as CSV for timesheet tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeofday"
)

// Header is the first CSV record.
var Header = []string{"Datum", "Startzeit", "Endzeit", "Dauer", "Beschreibung", "Pause"}

const dateLayout = "02.01.2006"

// WriteDay exports the consolidated blocks of a closed day, or the raw
// segments when there are no blocks.
func WriteDay(w io.Writer, segments []storage.Segment, blocks []storage.Block) error {
	if len(blocks) > 0 {
		return WriteBlocks(w, blocks)
	}
	return WriteSegments(w, segments)
}

// WriteSegments exports raw segments. A running segment has no end and no
// duration.
func WriteSegments(w io.Writer, segments []storage.Segment) error {
	records := make([][]string, 0, len(segments))
	for _, seg := range segments {
		date, err := formatDate(seg.Date)
		if err != nil {
			return err
		}
		end, duration := "", ""
		if seg.Closed() {
			end = seg.End.String()
			duration = timeofday.FormatDuration(seg.Duration())
		}
		records = append(records, []string{
			date,
			seg.Start.String(),
			end,
			duration,
			seg.Label,
			yesNo(seg.IsBreak),
		})
	}
	return write(w, records)
}

// WriteBlocks exports consolidated blocks, which never contain breaks.
func WriteBlocks(w io.Writer, blocks []storage.Block) error {
	records := make([][]string, 0, len(blocks))
	for _, b := range blocks {
		date, err := formatDate(b.Date)
		if err != nil {
			return err
		}
		records = append(records, []string{
			date,
			b.Start.String(),
			b.End.String(),
			timeofday.FormatDuration(b.DurationMinutes),
			b.Label,
			yesNo(false),
		})
	}
	return write(w, records)
}

func write(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv records: %w", err)
	}
	return nil
}

func formatDate(date string) (string, error) {
	d, err := time.Parse(storage.DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d.Format(dateLayout), nil
}

func yesNo(v bool) string {
	if v {
		return "Ja"
	}
	return "Nein"
}
