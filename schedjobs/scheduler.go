package schedjobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/zeptools/certgw/svc"
)

// ErrStillRunning is reported when a job comes due while its previous run has not finished.
// The due run is skipped.
var ErrStillRunning = errors.New("previous run still in progress")

// Scheduler runs one-time and cron jobs at minute resolution as a managed service.
// Runs of the same job id never overlap.
type Scheduler struct {
	*svc.Lifecycle // Ctx is passed to every task

	now     func() time.Time
	mu      sync.Mutex
	wg      sync.WaitGroup
	once    map[int64][]*OneTimeJob // minute (unix/60) -> jobs
	cron    []*CronJob
	running map[string]struct{}

	// OnFinished is told about every finished or skipped run, after the job's own callback
	OnFinished func(jobID string, err error)
}

var _ svc.Service = (*Scheduler)(nil)

func NewScheduler(parentCtx context.Context) *Scheduler {
	return &Scheduler{
		Lifecycle: svc.NewLifecycle(parentCtx, "JobScheduler"),
		now:       time.Now,
		once:      make(map[int64][]*OneTimeJob),
		running:   make(map[string]struct{}),
	}
}

func (s *Scheduler) Start() error {
	if err := s.Begin(); err != nil {
		return err
	}
	go s.loop()
	log.Println("[INFO][SCHEDULER] started")
	return nil
}

func (s *Scheduler) loop() {
	// first tick on the next minute boundary, then every minute
	now := s.now()
	timer := time.NewTimer(now.Truncate(time.Minute).Add(time.Minute).Sub(now))
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			s.Tick(s.now())
			now = s.now()
			timer.Reset(now.Truncate(time.Minute).Add(time.Minute).Sub(now))
		case <-s.Ctx.Done():
			s.wg.Wait()
			log.Println("[INFO][SCHEDULER] stopped")
			s.Finish(nil)
			return
		}
	}
}

// Tick starts every job due at the minute of now
func (s *Scheduler) Tick(now time.Time) {
	minute := now.Unix() / 60
	s.mu.Lock()
	once := s.once[minute]
	delete(s.once, minute)
	cron := slices.Clone(s.cron)
	s.mu.Unlock()

	for _, job := range once {
		s.start(job.ID, job.Task, job.OnFinished)
	}
	for _, job := range cron {
		if job.Matches(now) {
			s.start(job.ID, job.Task, job.OnFinished)
		}
	}
}

func (s *Scheduler) start(id string, task func(ctx context.Context) error, onFinished func(error)) {
	s.mu.Lock()
	_, busy := s.running[id]
	if !busy {
		s.running[id] = struct{}{}
	}
	s.mu.Unlock()
	if busy {
		s.finish(id, ErrStillRunning, onFinished)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.call(id, task)
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
		s.finish(id, err, onFinished)
	}()
}

func (s *Scheduler) call(id string, task func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC][SCHEDULER] job %s: %v", id, r)
			err = fmt.Errorf("job %s panicked: %v", id, r)
		}
	}()
	if task == nil {
		return fmt.Errorf("job %s has no task", id)
	}
	return task(s.Ctx)
}

func (s *Scheduler) finish(id string, err error, onFinished func(error)) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PANIC][SCHEDULER] job %s finish callback: %v", id, r)
		}
	}()
	if onFinished != nil {
		onFinished(err)
	}
	if s.OnFinished != nil {
		s.OnFinished(id, err)
	}
}

// AddOneTimeJob schedules job at the minute of its ExecTime, rounded up.
// ExecTime must be at least 30s ahead.
func (s *Scheduler) AddOneTimeJob(job *OneTimeJob) error {
	now := s.now()
	if job.ExecTime.Before(now.Add(30 * time.Second)) {
		return fmt.Errorf("job %s: exec time %s is too close or in the past (now %s)", job.ID, job.ExecTime, now)
	}
	at := job.ExecTime
	if !at.Equal(at.Truncate(time.Minute)) {
		at = at.Truncate(time.Minute).Add(time.Minute)
	}
	minute := at.Unix() / 60
	s.mu.Lock()
	s.once[minute] = append(s.once[minute], job)
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) AddCronJob(job *CronJob) {
	s.mu.Lock()
	s.cron = append(s.cron, job)
	s.mu.Unlock()
}

// GetOneTimeJobs returns the pending one-time jobs by scheduled minute (unix/60)
func (s *Scheduler) GetOneTimeJobs() map[int64][]*OneTimeJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := maps.Clone(s.once)
	for k, jobs := range out {
		out[k] = slices.Clone(jobs)
	}
	return out
}

func (s *Scheduler) GetCronJobs() []*CronJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cron)
}

func (s *Scheduler) DeleteOneTimeJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, jobs := range s.once {
		jobs = slices.DeleteFunc(jobs, func(j *OneTimeJob) bool { return j.ID == jobID })
		if len(jobs) == 0 {
			delete(s.once, k)
		} else {
			s.once[k] = jobs
		}
	}
}

func (s *Scheduler) DeleteCronJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron = slices.DeleteFunc(s.cron, func(j *CronJob) bool { return j.ID == jobID })
}
