// Package store persists cues and schedules between runs of the scheduler.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gruntwork-io/go-commons/errors"
	"github.com/robmorgan/halo-scheduler/cuelist"
	"github.com/robmorgan/halo-scheduler/scheduler"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	CuesFile      = "cues.yaml"
	SchedulesFile = "schedules.yaml"
)

// FileStore keeps cues and schedules as YAML documents in a directory.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore returns a store rooted at dir. Pass afero.NewOsFs() for the real filesystem.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, dir: dir}
}

func (f *FileStore) SaveCues(cues []cuelist.Cue) error {
	if cues == nil {
		cues = []cuelist.Cue{}
	}
	return f.write(CuesFile, cues)
}

// LoadCues returns no cues when nothing has been saved yet.
func (f *FileStore) LoadCues() ([]cuelist.Cue, error) {
	var cues []cuelist.Cue
	if err := f.read(CuesFile, &cues); err != nil {
		return nil, err
	}
	return cues, nil
}

func (f *FileStore) SaveSchedules(schedules map[int][]scheduler.Event) error {
	if schedules == nil {
		schedules = map[int][]scheduler.Event{}
	}
	return f.write(SchedulesFile, schedules)
}

func (f *FileStore) LoadSchedules() (map[int][]scheduler.Event, error) {
	schedules := map[int][]scheduler.Event{}
	if err := f.read(SchedulesFile, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (f *FileStore) read(name string, out interface{}) error {
	path := filepath.Join(f.dir, name)
	data, err := afero.ReadFile(f.fs, path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.WithStackTrace(err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.WithStackTrace(fmt.Errorf("parsing %s: %w", path, err))
	}
	return nil
}

// write replaces the file atomically: the document goes to a temp file in the same
// directory which is then renamed over the target.
func (f *FileStore) write(name string, in interface{}) error {
	if err := f.fs.MkdirAll(f.dir, 0o700); err != nil {
		return errors.WithStackTrace(err)
	}

	data, err := yaml.Marshal(in)
	if err != nil {
		return errors.WithStackTrace(err)
	}

	tmp, err := afero.TempFile(f.fs, f.dir, "."+name+"-*.tmp")
	if err != nil {
		return errors.WithStackTrace(err)
	}
	tmpName := tmp.Name()
	defer f.fs.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.WithStackTrace(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.WithStackTrace(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WithStackTrace(err)
	}

	if err := f.fs.Chmod(tmpName, 0o600); err != nil {
		return errors.WithStackTrace(err)
	}
	if err := f.fs.Rename(tmpName, filepath.Join(f.dir, name)); err != nil {
		return errors.WithStackTrace(err)
	}
	return nil
}
