package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/halo-scheduler/cuelist"
	"github.com/robmorgan/halo-scheduler/scheduler"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

// SQLiteStore persists cues and schedules in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an existing handle, migrating the schema first.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := Migrate(db); err != nil {
		return nil, errors.WithStackTrace(err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCues replaces the stored cue set in a single transaction.
func (s *SQLiteStore) SaveCues(cues []cuelist.Cue) error {
	return s.replace("cues", func(tx *sql.Tx) error {
		for _, c := range cues {
			var number interface{}
			if c.Number != nil {
				number = *c.Number
			}
			_, err := tx.Exec(`INSERT INTO cues (id, number, name, color) VALUES (?, ?, ?, ?)`, c.ID, number, c.Name, c.Color)
			if err != nil {
				return fmt.Errorf("save cues: insert %d: %w", c.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) LoadCues() ([]cuelist.Cue, error) {
	rows, err := s.db.Query(`SELECT id, number, name, color FROM cues ORDER BY id`)
	if err != nil {
		return nil, errors.WithStackTrace(fmt.Errorf("load cues: %w", err))
	}
	defer rows.Close()

	var cues []cuelist.Cue
	for rows.Next() {
		var (
			c      cuelist.Cue
			number sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &number, &c.Name, &c.Color); err != nil {
			return nil, errors.WithStackTrace(fmt.Errorf("load cues: scan: %w", err))
		}
		if number.Valid {
			c.Number = cuelist.IntPtr(int(number.Int64))
		}
		cues = append(cues, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStackTrace(err)
	}
	return cues, nil
}

// SaveSchedules replaces every stored event in a single transaction.
func (s *SQLiteStore) SaveSchedules(schedules map[int][]scheduler.Event) error {
	priorities := maps.Keys(schedules)
	slices.Sort(priorities)

	return s.replace("events", func(tx *sql.Tx) error {
		for _, priority := range priorities {
			for _, e := range schedules[priority] {
				var date interface{}
				if e.Date != nil {
					date = e.Date.String()
				}
				_, err := tx.Exec(
					`INSERT INTO events (id, priority, cue_id, date, start_time, end_time, repeat) VALUES (?, ?, ?, ?, ?, ?, ?)`,
					e.ID, priority, e.CueID, date, e.Start.String(), e.End.String(), formatWeekdays(e.Repeat),
				)
				if err != nil {
					return fmt.Errorf("save schedules: insert %d: %w", e.ID, err)
				}
			}
		}
		return nil
	})
}

func (s *SQLiteStore) LoadSchedules() (map[int][]scheduler.Event, error) {
	rows, err := s.db.Query(`SELECT priority, id, cue_id, date, start_time, end_time, repeat FROM events ORDER BY priority, id`)
	if err != nil {
		return nil, errors.WithStackTrace(fmt.Errorf("load schedules: %w", err))
	}
	defer rows.Close()

	schedules := map[int][]scheduler.Event{}
	for rows.Next() {
		var (
			priority         int
			e                scheduler.Event
			date             sql.NullString
			start, end, days string
		)
		if err := rows.Scan(&priority, &e.ID, &e.CueID, &date, &start, &end, &days); err != nil {
			return nil, errors.WithStackTrace(fmt.Errorf("load schedules: scan: %w", err))
		}
		if date.Valid {
			d, err := scheduler.ParseDate(date.String)
			if err != nil {
				return nil, errors.WithStackTrace(fmt.Errorf("event %d: %w", e.ID, err))
			}
			e.Date = &d
		}
		if e.Start, err = scheduler.ParseTimeOfDay(start); err != nil {
			return nil, errors.WithStackTrace(fmt.Errorf("event %d: %w", e.ID, err))
		}
		if e.End, err = scheduler.ParseTimeOfDay(end); err != nil {
			return nil, errors.WithStackTrace(fmt.Errorf("event %d: %w", e.ID, err))
		}
		if e.Repeat, err = parseWeekdays(days); err != nil {
			return nil, errors.WithStackTrace(fmt.Errorf("event %d: %w", e.ID, err))
		}
		schedules[priority] = append(schedules[priority], e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStackTrace(err)
	}
	return schedules, nil
}

func (s *SQLiteStore) replace(table string, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.WithStackTrace(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
		return errors.WithStackTrace(fmt.Errorf("clear %s: %w", table, err))
	}
	if err := insert(tx); err != nil {
		return errors.WithStackTrace(err)
	}
	return errors.WithStackTrace(tx.Commit())
}

// formatWeekdays encodes weekdays as a comma separated list of numbers, Sunday being 0.
func formatWeekdays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}
