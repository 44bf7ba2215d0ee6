package jobs

import (
	"context"
	"time"

	"github.com/opsportal/portal/src/logging"
	"github.com/rs/zerolog"
)

/*
Background tasks that run alongside the server. A Job owns a cancelable
context and a done channel, so the server can ask every job to stop on
shutdown and wait (with a deadline) for them to wrap up.
*/

type Job struct {
	Name   string
	Ctx    context.Context
	Logger *zerolog.Logger
	cancel func()
	done   chan struct{}
}

func New(name string) *Job {
	logger := logging.With().Str("job", name).Logger()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.AttachLoggerToContext(&logger, ctx)
	return &Job{
		Name:   name,
		Ctx:    ctx,
		Logger: &logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start runs fn in its own goroutine and finishes the job when fn returns.
// Panics are logged rather than taking the process down.
func Start(name string, fn func(j *Job)) *Job {
	job := New(name)
	go func() {
		defer job.Finish()
		defer logging.LogPanics(job.Logger)
		fn(job)
	}()
	return job
}

// Noop returns a job that is already finished, for features that are
// disabled by configuration.
func Noop() *Job {
	return New("noop").Finish()
}

// Cancel asks the job to stop by canceling its context.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Canceled() <-chan struct{} {
	return j.Ctx.Done()
}

// Finish marks the job's work as complete. Called by the job itself.
func (j *Job) Finish() *Job {
	close(j.done)
	return j
}

func (j *Job) Finished() <-chan struct{} {
	return j.done
}

type Jobs []*Job

// CancelAndWait cancels every job and waits until they all finish or the
// timeout expires. Returns the names of jobs that did not finish in time.
func (jobs Jobs) CancelAndWait(timeout time.Duration) []string {
	allDoneChan := make(chan struct{})
	for _, job := range jobs {
		job.Cancel()
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	go func() {
		for _, job := range jobs {
			<-job.Finished()
		}
		close(allDoneChan)
	}()

	select {
	case <-timer.C:
		return jobs.ListUnfinished()
	case <-allDoneChan:
		return nil
	}
}

func (jobs Jobs) ListUnfinished() []string {
	unfinished := []string{}
	for _, job := range jobs {
		select {
		case <-job.Finished():
			continue
		default:
			unfinished = append(unfinished, job.Name)
		}
	}
	return unfinished
}
