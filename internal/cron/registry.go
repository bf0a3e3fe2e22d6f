package cron

import (
	"context"
	"time"
)

// Job is one periodic task. Run must be safe to invoke concurrently across
// processes; the service serializes runs with a distributed lock.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

type Registry struct {
	jobs []Job
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

func (r *Registry) Jobs() []Job {
	return r.jobs
}
