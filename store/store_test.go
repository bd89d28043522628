package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/robmorgan/halo-scheduler/cuelist"
	"github.com/robmorgan/halo-scheduler/scheduler"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCues() []cuelist.Cue {
	return []cuelist.Cue{
		{ID: 1, Name: "Walk-in", Color: "#336699"},
		{ID: 2, Number: cuelist.IntPtr(12), Name: "Show"},
	}
}

func sampleSchedules(t *testing.T) map[int][]scheduler.Event {
	t.Helper()

	date := scheduler.NewDate(2024, time.March, 4)
	oneShot, err := scheduler.NewEvent(1, 2, &date, scheduler.NewTimeOfDay(19, 30, 0), scheduler.NewTimeOfDay(21, 0, 0))
	require.NoError(t, err)
	weekly, err := scheduler.NewEvent(2, 1, nil, scheduler.NewTimeOfDay(9, 0, 15), scheduler.EndOfDay, time.Monday, time.Saturday)
	require.NoError(t, err)

	return map[int][]scheduler.Event{
		1: {weekly},
		5: {oneShot},
	}
}

// roundTrip exercises any cue and schedule store the same way.
func roundTrip(t *testing.T, cues scheduler.CueStore, schedules scheduler.ScheduleStore) {
	t.Helper()

	loadedCues, err := cues.LoadCues()
	require.NoError(t, err)
	assert.Empty(t, loadedCues)
	loadedSchedules, err := schedules.LoadSchedules()
	require.NoError(t, err)
	assert.Empty(t, loadedSchedules)

	require.NoError(t, cues.SaveCues(sampleCues()))
	require.NoError(t, schedules.SaveSchedules(sampleSchedules(t)))

	loadedCues, err = cues.LoadCues()
	require.NoError(t, err)
	assert.Equal(t, sampleCues(), loadedCues)

	loadedSchedules, err = schedules.LoadSchedules()
	require.NoError(t, err)
	assert.Equal(t, sampleSchedules(t), loadedSchedules)

	// saving replaces rather than appends
	require.NoError(t, cues.SaveCues(sampleCues()[:1]))
	require.NoError(t, schedules.SaveSchedules(map[int][]scheduler.Event{}))

	loadedCues, err = cues.LoadCues()
	require.NoError(t, err)
	assert.Len(t, loadedCues, 1)
	loadedSchedules, err = schedules.LoadSchedules()
	require.NoError(t, err)
	assert.Empty(t, loadedSchedules)
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewFileStore(afero.NewMemMapFs(), "/var/lib/halo")
	roundTrip(t, s, s)
}

func TestFileStoreWritesPrivateFiles(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/data")
	require.NoError(t, s.SaveCues(sampleCues()))

	info, err := fs.Stat("/data/" + CuesFile)
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())

	// no temp files are left behind
	entries, err := afero.ReadDir(fs, "/data")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, CuesFile, entries[0].Name())

	data, err := afero.ReadFile(fs, "/data/"+CuesFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: Walk-in")
}

func TestFileStoreReadsHandWrittenSchedules(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	doc := `
3:
  - id: 7
    cue_id: 1
    start: "18:00"
    end: "24:00"
    repeat: [5, 6]
`
	require.NoError(t, afero.WriteFile(fs, "/data/"+SchedulesFile, []byte(doc), 0o600))

	schedules, err := NewFileStore(fs, "/data").LoadSchedules()
	require.NoError(t, err)
	require.Len(t, schedules[3], 1)

	e := schedules[3][0]
	assert.Equal(t, int64(7), e.ID)
	assert.Equal(t, scheduler.NewTimeOfDay(18, 0, 0), e.Start)
	assert.Equal(t, scheduler.EndOfDay, e.End)
	assert.Equal(t, []time.Weekday{time.Friday, time.Saturday}, e.Repeat)
	assert.NoError(t, e.Validate())
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/"+CuesFile, []byte("{not yaml"), 0o600))

	_, err := NewFileStore(fs, "/data").LoadCues()
	assert.Error(t, err)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := OpenSQLite(filepath.Join(t.TempDir(), "halo.db"))
	require.NoError(t, err)
	defer s.Close()

	roundTrip(t, s, s)
}

func TestSQLiteStoreMigratesOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "halo.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveCues(sampleCues()))
	require.NoError(t, s.Close())

	// reopening keeps existing data
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, Migrate(s.db))
	var versions int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&versions))
	assert.Equal(t, 1, versions)

	cues, err := s.LoadCues()
	require.NoError(t, err)
	assert.Len(t, cues, 2)
}

func TestWeekdayEncoding(t *testing.T) {
	t.Parallel()

	days := []time.Weekday{time.Sunday, time.Wednesday}
	assert.Equal(t, "0,3", formatWeekdays(days))

	parsed, err := parseWeekdays("0,3")
	require.NoError(t, err)
	assert.Equal(t, days, parsed)

	parsed, err = parseWeekdays("")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	_, err = parseWeekdays("mon")
	assert.Error(t, err)
}
