package schedjobs

import (
	"context"
	"fmt"
	"time"
)

// CronSpec is the config form of a cron condition. An empty list matches every value.
type CronSpec struct {
	Minutes     []int `json:"minutes,omitempty"`
	Hours       []int `json:"hours,omitempty"`
	DaysOfMonth []int `json:"days_of_month,omitempty"`
	Weekdays    []int `json:"weekdays,omitempty"` // 0 = sunday
}

type cronField struct {
	name   string
	lo, hi int
}

var (
	minuteField  = cronField{"minute", 0, 59}
	hourField    = cronField{"hour", 0, 23}
	dayField     = cronField{"day of month", 1, 31}
	weekdayField = cronField{"weekday", 0, 6}
)

func (f cronField) all() uint64 {
	return 1<<(f.hi-f.lo+1) - 1
}

// mask sets bit v-lo for every listed v
func (f cronField) mask(values []int) (uint64, error) {
	if len(values) == 0 {
		return f.all(), nil
	}
	var m uint64
	for _, v := range values {
		if v < f.lo || v > f.hi {
			return 0, fmt.Errorf("%s %d not in %d..%d", f.name, v, f.lo, f.hi)
		}
		m |= 1 << (v - f.lo)
	}
	return m, nil
}

func (f cronField) has(m uint64, v int) bool {
	return m&(1<<(v-f.lo)) != 0
}

// CronJob fires in every minute matching all four of its fields
type CronJob struct {
	ID         string
	Task       func(ctx context.Context) error
	OnFinished func(error)

	minutes, hours, days, weekdays uint64
}

// EveryMinute returns a job matching every minute. Set Task before adding it
func EveryMinute(jobID string) *CronJob {
	return &CronJob{
		ID:       jobID,
		minutes:  minuteField.all(),
		hours:    hourField.all(),
		days:     dayField.all(),
		weekdays: weekdayField.all(),
	}
}

// NewCronJob builds a job from spec. Any out-of-range value is an error
func NewCronJob(jobID string, spec CronSpec, task func(ctx context.Context) error) (*CronJob, error) {
	job := &CronJob{ID: jobID, Task: task}
	for _, part := range []struct {
		dst    *uint64
		field  cronField
		values []int
	}{
		{&job.minutes, minuteField, spec.Minutes},
		{&job.hours, hourField, spec.Hours},
		{&job.days, dayField, spec.DaysOfMonth},
		{&job.weekdays, weekdayField, spec.Weekdays},
	} {
		m, err := part.field.mask(part.values)
		if err != nil {
			return nil, fmt.Errorf("cron %s: %w", jobID, err)
		}
		*part.dst = m
	}
	return job, nil
}

func (job *CronJob) Matches(t time.Time) bool {
	return minuteField.has(job.minutes, t.Minute()) &&
		hourField.has(job.hours, t.Hour()) &&
		dayField.has(job.days, t.Day()) &&
		weekdayField.has(job.weekdays, int(t.Weekday()))
}
