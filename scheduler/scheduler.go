package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	log "github.com/sirupsen/logrus"
)

var ErrDuplicateTask = errors.New("task already registered")

// Task is run every Interval from the scheduler goroutine.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(now time.Time)
}

// TaskInfo is what Tasks reports about a registered task.
type TaskInfo struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Runs     int           `json:"runs"`
	LastRun  time.Time     `json:"lastRun"`
	NextRun  time.Time     `json:"nextRun"`
}

type entry struct {
	task    Task
	runs    int
	lastRun time.Time
	nextRun time.Time
}

// Scheduler runs named periodic tasks. A task runs at most once per Step, a
// scheduler that fell behind reschedules from now instead of catching up.
type Scheduler struct {
	clock      Clock
	resolution time.Duration

	mu      deadlock.Mutex
	entries []*entry
}

func New(clock Clock, resolution time.Duration) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Scheduler{clock: clock, resolution: resolution}
}

// Add registers a task, first due one interval from now.
func (s *Scheduler) Add(t Task) error {
	if t.Interval <= 0 {
		return errors.Errorf("task '%s' has a non positive interval %s", t.Name, t.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.task.Name == t.Name {
			return errors.Wrap(ErrDuplicateTask, t.Name)
		}
	}
	s.entries = append(s.entries, &entry{task: t, nextRun: s.clock.Now().Add(t.Interval)})
	return nil
}

// Step runs every task due at now, in registration order, and returns how
// many ran.
func (s *Scheduler) Step(now time.Time) int {
	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if now.Before(e.nextRun) {
			continue
		}
		e.nextRun = e.nextRun.Add(e.task.Interval)
		if !e.nextRun.After(now) {
			log.WithFields(log.Fields{
				"task":   e.task.Name,
				"behind": now.Sub(e.nextRun),
			}).Debug("Task fell behind")
			e.nextRun = now.Add(e.task.Interval)
		}
		e.runs++
		e.lastRun = now
		due = append(due, e)
	}
	s.mu.Unlock()

	for _, e := range due {
		e.task.Run(now)
	}
	return len(due)
}

// Run steps the scheduler every resolution until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Step(s.clock.Now())
		}
	}
}

func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]TaskInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, TaskInfo{
			Name:     e.task.Name,
			Interval: e.task.Interval,
			Runs:     e.runs,
			LastRun:  e.lastRun,
			NextRun:  e.nextRun,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
