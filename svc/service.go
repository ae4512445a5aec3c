// Package svc is the lifecycle contract of long-running parts: the web server, the operator socket,
// the job scheduler and the throttle janitor. conf.Core starts them and waits on Done.
package svc

import (
	"context"
	"fmt"
	"log"
	"sync"
)

type Service interface {
	Start() error // startup errors only. later failures arrive on Done
	Stop()
	// Done yields exactly one value when the service ends. It is never closed
	Done() <-chan error
	Name() string
}

type State int

const (
	StateREADY State = iota
	StateRUNNING
	StateSTOPPED
)

func (s State) String() string {
	switch s {
	case StateREADY:
		return "ready"
	case StateRUNNING:
		return "running"
	case StateSTOPPED:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Lifecycle implements the bookkeeping half of Service. Embed it and add Start.
type Lifecycle struct {
	Ctx    context.Context // canceled by Stop or by the parent
	cancel context.CancelFunc
	name   string
	mu     sync.Mutex
	state  State
	done   chan error
}

func NewLifecycle(parent context.Context, name string) *Lifecycle {
	ctx, cancel := context.WithCancel(parent)
	return &Lifecycle{Ctx: ctx, cancel: cancel, name: name, done: make(chan error, 1)}
}

func (l *Lifecycle) Name() string {
	return l.name
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Begin moves a ready service to running. Start calls it before spawning anything
func (l *Lifecycle) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateREADY {
		return fmt.Errorf("%s: cannot start when %s", l.name, l.state)
	}
	l.state = StateRUNNING
	return nil
}

func (l *Lifecycle) Stop() {
	l.cancel()
	l.mu.Lock()
	prev := l.state
	l.state = StateSTOPPED
	l.mu.Unlock()
	if prev == StateRUNNING {
		log.Printf("[INFO][SVC] %s stopping", l.name)
	}
}

func (l *Lifecycle) Done() <-chan error {
	return l.done
}

// Finish publishes the end result. Call it once from the service goroutine
func (l *Lifecycle) Finish(err error) {
	l.done <- err
}
