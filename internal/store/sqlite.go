// Package store persists reported event timelines to SQLite so latency can
// be analyzed after the session ends.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/lagmon/internal/latency"
	"github.com/bnema/lagmon/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS event_timelines (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	event_time  INTEGER NOT NULL,
	read_time   INTEGER NOT NULL,
	vendor      INTEGER NOT NULL,
	product     INTEGER NOT NULL,
	action      TEXT    NOT NULL,
	sources     TEXT    NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS connection_timelines (
	timeline_id   INTEGER NOT NULL REFERENCES event_timelines(id),
	token         TEXT    NOT NULL,
	delivery_time INTEGER,
	consume_time  INTEGER,
	finish_time   INTEGER,
	gpu_completed INTEGER,
	present       INTEGER
);
CREATE INDEX IF NOT EXISTS idx_event_timelines_action ON event_timelines(action);
`

// Store is a TimelineProcessor that writes timelines to SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create timeline schema: %w", err)
	}
	return &Store{db: db}, nil
}

// ProcessTimeline persists one timeline. The processor interface carries no
// error; a failed write is logged and the timeline is lost, which is
// acceptable for metrics data.
func (s *Store) ProcessTimeline(timeline *latency.EventTimeline) {
	if err := s.insert(timeline); err != nil {
		logger.Error("failed to persist event timeline", "err", err)
	}
}

func (s *Store) insert(timeline *latency.EventTimeline) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sources := make([]string, len(timeline.Sources))
	for i, src := range timeline.Sources {
		sources[i] = src.String()
	}

	res, err := tx.Exec(
		`INSERT INTO event_timelines (event_time, read_time, vendor, product, action, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		timeline.EventTime, timeline.ReadTime, timeline.Vendor, timeline.Product,
		timeline.ActionType.String(), strings.Join(sources, ","), time.Now().UnixNano(),
	)
	if err != nil {
		return err
	}
	timelineID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for token, ct := range timeline.ConnectionTimelines {
		var delivery, consume, finish, gpuCompleted, present interface{}
		if ct.HasDispatchTimeline() {
			delivery, consume, finish = ct.DeliveryTime, ct.ConsumeTime, ct.FinishTime
		}
		if ct.HasGraphicsTimeline() {
			gpuCompleted = ct.Graphics[latency.GPUCompletedTime]
			present = ct.Graphics[latency.PresentTime]
		}
		if _, err := tx.Exec(
			`INSERT INTO connection_timelines (timeline_id, token, delivery_time, consume_time, finish_time, gpu_completed, present)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			timelineID, token.String(), delivery, consume, finish, gpuCompleted, present,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ActionSummary is one row of the per-action latency summary.
type ActionSummary struct {
	Action string
	Count  int64
	Min    time.Duration
	Mean   time.Duration
	Max    time.Duration
}

// Summary aggregates end-to-end latency (event time to present, falling
// back to finish) per action over everything in the store.
func (s *Store) Summary(ctx context.Context) ([]ActionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.action,
		       COUNT(*),
		       MIN(COALESCE(c.present, c.finish_time) - e.event_time),
		       AVG(COALESCE(c.present, c.finish_time) - e.event_time),
		       MAX(COALESCE(c.present, c.finish_time) - e.event_time)
		FROM event_timelines e
		JOIN connection_timelines c ON c.timeline_id = e.id
		WHERE COALESCE(c.present, c.finish_time) IS NOT NULL
		GROUP BY e.action
		ORDER BY e.action`)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline summary: %w", err)
	}
	defer rows.Close()

	var out []ActionSummary
	for rows.Next() {
		var row ActionSummary
		var minNs, maxNs int64
		var meanNs float64
		if err := rows.Scan(&row.Action, &row.Count, &minNs, &meanNs, &maxNs); err != nil {
			return nil, err
		}
		row.Min = time.Duration(minNs)
		row.Mean = time.Duration(meanNs)
		row.Max = time.Duration(maxNs)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
