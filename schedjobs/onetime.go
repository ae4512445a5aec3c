package schedjobs

import (
	"context"
	"time"
)

// OneTimeJob runs once in the minute containing ExecTime, rounded up
type OneTimeJob struct {
	ID         string
	ExecTime   time.Time
	Task       func(ctx context.Context) error
	OnFinished func(error)
}
