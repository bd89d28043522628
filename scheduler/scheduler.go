package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robmorgan/halo-scheduler/cuelist"
	"github.com/robmorgan/halo-scheduler/device"
	"github.com/robmorgan/halo-scheduler/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"k8s.io/utils/clock"
)

const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 1

	DefaultTickInterval = time.Second
)

// CueStore persists the cue set. The scheduler saves after every cue mutation.
type CueStore interface {
	SaveCues(cues []cuelist.Cue) error
	LoadCues() ([]cuelist.Cue, error)
}

// ScheduleStore persists events keyed by priority.
type ScheduleStore interface {
	SaveSchedules(schedules map[int][]Event) error
	LoadSchedules() (map[int][]Event, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithScheduleStore persists events as well as cues.
func WithScheduleStore(store ScheduleStore) Option {
	return func(s *Scheduler) {
		s.scheduleStore = store
	}
}

// WithLocation sets the zone used to read wall-clock time. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTickInterval overrides the period of the background check.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

func WithLogger(entry *logrus.Entry) Option {
	return func(s *Scheduler) {
		if entry != nil {
			s.logger = entry
		}
	}
}

// Scheduler owns every cue and priority tier and decides which cue the device should
// be playing. State is guarded by mu; device calls are serialized by dispatchMu and
// made without holding mu.
type Scheduler struct {
	clock         clock.WithTicker
	driver        device.Driver
	cueStore      CueStore
	scheduleStore ScheduleStore
	location      *time.Location
	tickInterval  time.Duration
	logger        *logrus.Entry

	mu          sync.Mutex
	cues        *cuelist.CueList
	schedules   map[int]*Schedule
	nextCueID   int64
	nextEventID int64
	paused      bool
	loaded      bool
	cancel      context.CancelFunc

	dispatchMu sync.Mutex
	wg         sync.WaitGroup
}

// New creates a scheduler. cues may be nil, in which case nothing is persisted.
func New(clk clock.WithTicker, driver device.Driver, cues CueStore, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:        clk,
		driver:       driver,
		cueStore:     cues,
		location:     time.Local,
		tickInterval: DefaultTickInterval,
		logger:       logger.GetProjectLogger().WithField("component", "scheduler"),
		cues:         cuelist.NewCueList(),
		schedules:    make(map[int]*Schedule),
		nextCueID:    1,
		nextEventID:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCue adds a cue and returns its ID, assigning the next free one when c.ID is zero.
func (s *Scheduler) AddCue(c cuelist.Cue) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID != 0 && s.cues.Has(c.ID) {
		return 0, DuplicateCueError{CueID: c.ID}
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}

	if c.ID == 0 {
		c.ID = s.nextCueID
	}
	s.cues.Put(c)
	if err := s.saveCuesLocked(); err != nil {
		s.cues.Remove(c.ID)
		return 0, err
	}
	if c.ID >= s.nextCueID {
		s.nextCueID = c.ID + 1
	}
	return c.ID, nil
}

// UpdateCue replaces the metadata of an existing cue. A playing cue whose number or
// colour changed is restarted.
func (s *Scheduler) UpdateCue(c cuelist.Cue) error {
	s.mu.Lock()
	old, found := s.cues.Get(c.ID)
	if !found {
		s.mu.Unlock()
		return CueNotFoundError{CueID: c.ID}
	}
	if err := c.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cues.Put(c)
	if err := s.saveCuesLocked(); err != nil {
		s.cues.Put(old)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.CheckSchedule()
	return nil
}

// RemoveCue deletes a cue that no event references.
func (s *Scheduler) RemoveCue(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, found := s.cues.Get(id)
	if !found {
		return CueNotFoundError{CueID: id}
	}
	if events := s.eventsByCueLocked(id); len(events) > 0 {
		return CueInUseError{CueID: id, Events: len(events)}
	}

	s.cues.Remove(id)
	if err := s.saveCuesLocked(); err != nil {
		s.cues.Put(old)
		return err
	}
	return nil
}

func (s *Scheduler) GetCue(id int64) (cuelist.Cue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cues.Get(id)
}

// GetCues returns all cues ordered by ID.
func (s *Scheduler) GetCues() []cuelist.Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cues.All()
}

func (s *Scheduler) saveCuesLocked() error {
	if s.cueStore == nil {
		return nil
	}
	if err := s.cueStore.SaveCues(s.cues.All()); err != nil {
		return fmt.Errorf("saving cues: %w", err)
	}
	return nil
}

// AddEvent schedules an event at DefaultPriority.
func (s *Scheduler) AddEvent(e Event) (Event, error) {
	return s.AddPriorityEvent(DefaultPriority, e)
}

// AddPriorityEvent schedules an event in the given priority tier. When e.ID is zero
// the next free event ID is assigned. The returned event carries the final ID.
func (s *Scheduler) AddPriorityEvent(priority int, e Event) (Event, error) {
	s.mu.Lock()
	added, err := s.addEventLocked(priority, e)
	if err == nil {
		if err = s.saveSchedulesLocked(); err != nil {
			s.removeEventLocked(added.ID)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return Event{}, err
	}

	s.CheckSchedule()
	return added, nil
}

func (s *Scheduler) addEventLocked(priority int, e Event) (Event, error) {
	if !s.cues.Has(e.CueID) {
		return Event{}, CueNotFoundError{CueID: e.CueID}
	}
	if err := validatePriority(priority); err != nil {
		return Event{}, err
	}
	e = e.clone()
	e.Repeat = normalizeWeekdays(e.Repeat)
	if err := e.Validate(); err != nil {
		return Event{}, err
	}

	if e.ID == 0 {
		e.ID = s.nextEventID
	} else if _, _, found := s.findEventLocked(e.ID); found {
		return Event{}, DuplicateEventError{EventID: e.ID}
	}

	schedule, found := s.schedules[priority]
	if !found {
		schedule = NewSchedule()
	}
	if err := schedule.AddEvent(e); err != nil {
		return Event{}, err
	}
	s.schedules[priority] = schedule

	if e.ID >= s.nextEventID {
		s.nextEventID = e.ID + 1
	}
	return e.clone(), nil
}

// RemoveEvent removes the event from whichever tier holds it.
func (s *Scheduler) RemoveEvent(id int64) bool {
	s.mu.Lock()
	removed := s.removeEventLocked(id)
	if removed {
		if err := s.saveSchedulesLocked(); err != nil {
			s.logger.WithError(err).WithField("event_id", id).Error("Failed to persist schedules after removing event")
		}
	}
	s.mu.Unlock()

	s.CheckSchedule()
	return removed
}

func (s *Scheduler) removeEventLocked(id int64) bool {
	removed := false
	for priority, schedule := range s.schedules {
		if schedule.RemoveEvent(id) {
			removed = true
			if schedule.Len() == 0 {
				delete(s.schedules, priority)
			}
		}
	}
	return removed
}

// SwitchPriority moves an event to another tier. The move is validated against the
// target tier before anything changes, so on error the event stays where it was.
func (s *Scheduler) SwitchPriority(id int64, priority int) (Event, error) {
	s.mu.Lock()
	moved, err := s.switchPriorityLocked(id, priority)
	s.mu.Unlock()
	if err != nil {
		return Event{}, err
	}

	s.CheckSchedule()
	return moved, nil
}

func (s *Scheduler) switchPriorityLocked(id int64, priority int) (Event, error) {
	e, oldPriority, found := s.findEventLocked(id)
	if !found {
		return Event{}, EventNotFoundError{EventID: id}
	}
	if err := validatePriority(priority); err != nil {
		return Event{}, err
	}
	if priority == oldPriority {
		return e, nil
	}

	target, found := s.schedules[priority]
	if found {
		if err := target.checkConflict(e, e.ID); err != nil {
			return Event{}, err
		}
	} else {
		target = NewSchedule()
	}

	s.moveEventLocked(e, oldPriority, priority, target)
	if err := s.saveSchedulesLocked(); err != nil {
		s.moveEventLocked(e, priority, oldPriority, s.scheduleFor(oldPriority))
		return Event{}, err
	}
	return e, nil
}

// moveEventLocked commits a validated move of e between tiers.
func (s *Scheduler) moveEventLocked(e Event, from, to int, target *Schedule) {
	if source, found := s.schedules[from]; found {
		source.RemoveEvent(e.ID)
		if source.Len() == 0 {
			delete(s.schedules, from)
		}
	}
	target.insert(e)
	s.schedules[to] = target
}

func (s *Scheduler) scheduleFor(priority int) *Schedule {
	if schedule, found := s.schedules[priority]; found {
		return schedule
	}
	return NewSchedule()
}

// GetEventByID returns the event and the priority of the tier holding it.
func (s *Scheduler) GetEventByID(id int64) (Event, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findEventLocked(id)
}

func (s *Scheduler) findEventLocked(id int64) (Event, int, bool) {
	for priority, schedule := range s.schedules {
		if e, found := schedule.GetEventByID(id); found {
			return e, priority, true
		}
	}
	return Event{}, 0, false
}

// GetEventsByCue returns every event referencing the cue, highest priority first.
func (s *Scheduler) GetEventsByCue(cueID int64) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventsByCueLocked(cueID)
}

func (s *Scheduler) eventsByCueLocked(cueID int64) []Event {
	out := make([]Event, 0)
	for _, priority := range s.prioritiesLocked() {
		out = append(out, s.schedules[priority].GetEventsByCue(cueID)...)
	}
	return out
}

// GetEvents returns the events occurring on d, keyed by priority.
func (s *Scheduler) GetEvents(d Date) map[int][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int][]Event)
	for priority, schedule := range s.schedules {
		if events := schedule.GetEvents(d); len(events) > 0 {
			out[priority] = events
		}
	}
	return out
}

// GetEventsBetween expands every tier over the inclusive range [from, to].
func (s *Scheduler) GetEventsBetween(from, to Date) map[int]map[Date][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]map[Date][]Event)
	for priority, schedule := range s.schedules {
		if days := schedule.GetEventsBetween(from, to); len(days) > 0 {
			out[priority] = days
		}
	}
	return out
}

// GetSchedules returns a copy of every tier's events.
func (s *Scheduler) GetSchedules() map[int][]Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedulesLocked()
}

func (s *Scheduler) schedulesLocked() map[int][]Event {
	out := make(map[int][]Event, len(s.schedules))
	for priority, schedule := range s.schedules {
		out[priority] = schedule.GetAllEvents()
	}
	return out
}

// prioritiesLocked returns the populated tiers, highest first.
func (s *Scheduler) prioritiesLocked() []int {
	priorities := make([]int, 0, len(s.schedules))
	for priority := MaxPriority; priority >= MinPriority; priority-- {
		if _, found := s.schedules[priority]; found {
			priorities = append(priorities, priority)
		}
	}
	return priorities
}

func (s *Scheduler) saveSchedulesLocked() error {
	if s.scheduleStore == nil {
		return nil
	}
	if err := s.scheduleStore.SaveSchedules(s.schedulesLocked()); err != nil {
		return fmt.Errorf("saving schedules: %w", err)
	}
	return nil
}

func validatePriority(priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return PriorityOutOfBoundsError{Priority: priority}
	}
	return nil
}

// Now returns the scheduler's clock reading in its configured location.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now().In(s.location)
}

// Today returns the current calendar day in the scheduler's location.
func (s *Scheduler) Today() Date {
	return DateOf(s.Now())
}

// GetCurrentEvent returns the active event of the highest tier that has one.
func (s *Scheduler) GetCurrentEvent() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentEventLocked(s.Now())
}

func (s *Scheduler) currentEventLocked(now time.Time) (Event, bool) {
	for priority := MaxPriority; priority >= MinPriority; priority-- {
		schedule, found := s.schedules[priority]
		if !found {
			continue
		}
		if e, active := schedule.GetEvent(now); active {
			return e, true
		}
	}
	return Event{}, false
}

// targetCue snapshots the cue that should be playing right now.
func (s *Scheduler) targetCue() (cuelist.Cue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.currentEventLocked(s.Now())
	if !found {
		return cuelist.Cue{}, false
	}
	return s.cues.Get(e.CueID)
}

// CheckSchedule brings the device in line with the current event. It issues no device
// command when the device already plays the right cue with the same number and colour. Device errors are logged and
// retried on the next tick.
func (s *Scheduler) CheckSchedule() {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	target, hasTarget := s.targetCue()
	current, playing := s.driver.GetCurrentCue()

	switch {
	case !hasTarget && playing:
		s.logger.WithField("cue", current.String()).Info("Stopping cue")
		if err := s.driver.StopAll(); err != nil {
			s.logger.WithError(err).Error("Failed to stop device")
		}
	case hasTarget && (!playing || !target.SameOutput(current)):
		s.logger.WithFields(logrus.Fields{"cue_id": target.ID, "cue": target.String()}).Info("Starting cue")
		if err := s.driver.StartCue(target); err != nil {
			s.logger.WithError(err).WithField("cue_id", target.ID).Error("Failed to start cue")
		}
	}
}

// Pause suppresses the background check. Direct mutations still re-evaluate.
func (s *Scheduler) Pause(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Start loads persisted state, starts the device and runs the periodic check until
// ctx is cancelled or Shutdown is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Load(); err != nil {
		return err
	}
	if err := s.driver.Startup(); err != nil {
		return fmt.Errorf("starting device: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.processForever(ctx)
	return nil
}

// Shutdown stops the periodic check and the device.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
	if err := s.driver.Shutdown(); err != nil {
		return fmt.Errorf("shutting down device: %w", err)
	}
	return nil
}

func (s *Scheduler) processForever(ctx context.Context) {
	defer s.wg.Done()

	s.logger.WithField("interval", s.tickInterval).Info("Scheduler loop started")
	ticker := s.clock.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler loop shutdown")
			return
		case <-ticker.C():
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	if s.Paused() {
		return
	}
	s.CheckSchedule()
}

// Load restores cues and, when a schedule store is configured, events. Events that no
// longer validate are skipped with a warning. Only the first call reads the stores; Start
// calls it too.
func (s *Scheduler) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	if s.cueStore != nil {
		cues, err := s.cueStore.LoadCues()
		if err != nil {
			return fmt.Errorf("loading cues: %w", err)
		}
		for _, c := range cues {
			s.cues.Put(c)
		}
		if max := s.cues.MaxID(); max >= s.nextCueID {
			s.nextCueID = max + 1
		}
		s.logger.WithField("count", len(cues)).Info("Loaded cues")
	}

	if s.scheduleStore != nil {
		schedules, err := s.scheduleStore.LoadSchedules()
		if err != nil {
			return fmt.Errorf("loading schedules: %w", err)
		}
		priorities := maps.Keys(schedules)
		slices.Sort(priorities)

		count := 0
		for _, priority := range priorities {
			for _, e := range schedules[priority] {
				if _, err := s.addEventLocked(priority, e); err != nil {
					s.logger.WithError(err).WithFields(logrus.Fields{"event_id": e.ID, "priority": priority}).Warn("Skipping stored event")
					continue
				}
				count++
			}
		}
		s.logger.WithField("count", count).Info("Loaded events")
	}
	s.loaded = true
	return nil
}
