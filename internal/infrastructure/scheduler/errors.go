package scheduler

import "errors"

var (
	// ErrInvalidConfig wraps every reason a job list cannot be scheduled
	ErrInvalidConfig = errors.New("scheduler: invalid job configuration")
	// ErrJobNotFound is returned by Trigger for an unknown job name
	ErrJobNotFound = errors.New("scheduler: no such job")
)
