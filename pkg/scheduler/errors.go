package scheduler

import "errors"

var (
	ErrInvalidTask            = errors.New("scheduler: task needs a name, a schedule and a function")
	ErrTaskAlreadyRegistered  = errors.New("scheduler: task already registered")
	ErrTaskNotFound           = errors.New("scheduler: task not found")
	ErrTaskRunning            = errors.New("scheduler: task is already running")
	ErrTaskPanicked           = errors.New("scheduler: task panicked")
	ErrSchedulerNotConfigured = errors.New("scheduler: no tasks registered")
)
