package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancelAndWait(t *testing.T) {
	t.Run("finishes fast enough", func(t *testing.T) {
		testJobs := Jobs{
			FakeJob("Job A", time.Millisecond*100),
			FakeJob("Job B", time.Millisecond*200),
			Noop(),
		}

		before := time.Now()
		unfinished := testJobs.CancelAndWait(time.Second * 1)
		after := time.Now()
		assert.WithinDuration(t, after, before, time.Millisecond*500, "jobs did not finish fast enough")
		assert.Len(t, unfinished, 0)
	})
	t.Run("reports unfinished jobs", func(t *testing.T) {
		testJobs := Jobs{
			FakeJob("Job A", time.Millisecond*100),
			FakeJob("Job B", time.Second*10),
		}

		unfinished := testJobs.CancelAndWait(time.Second * 1)
		assert.Equal(t, []string{"Job B"}, unfinished)
	})
}

func TestStartRecoversPanics(t *testing.T) {
	job := Start("panicky", func(j *Job) {
		panic("oh no")
	})

	select {
	case <-job.Finished():
	case <-time.After(time.Second):
		t.Fatal("job did not finish after panicking")
	}
}

func FakeJob(name string, timeout time.Duration) *Job {
	return Start(name, func(j *Job) {
		<-j.Canceled()
		time.Sleep(timeout)
	})
}
