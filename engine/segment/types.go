package segment

import (
	"fmt"
	"time"
)

// Granularity controls how timestamps are bucketed into segment ids.
type Granularity int

const (
	Daily Granularity = iota
	Weekly
)

// IDForTimestamp derives the segment a document with timestamp ts
// belongs to. Daily segments are named by calendar date (UTC); weekly
// segments are named by ISO year and week number, so a segment id is
// stable regardless of which day within the week a document lands on.
func IDForTimestamp(ts time.Time, g Granularity) string {
	ts = ts.UTC()
	switch g {
	case Weekly:
		year, week := ts.ISOWeek()
		return weeklyID(year, week)
	default:
		return ts.Format("2006-01-02")
	}
}

func weeklyID(year, week int) string {
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// DocAddress locates a single document within a segment: which segment
// it lives in, and its byte offset into that segment's data file. This
// is what DocIndex persists and what Reader.ReadAt consumes.
type DocAddress struct {
	SegmentID string `msgpack:"segment_id"`
	Offset    int64  `msgpack:"offset"`
}
