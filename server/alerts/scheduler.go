package alerts

import (
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/mattermost/mattermost/server/public/pluginapi/cluster"
)

// Job represents a scheduled job that can be closed
type Job interface {
	Close() error
}

// JobScheduler is an interface for scheduling recurring poll jobs
type JobScheduler interface {
	Schedule(
		jobID string,
		nextWaitInterval cluster.NextWaitInterval,
		callback func(),
	) (Job, error)
}

// ClusterJobScheduler uses Mattermost's cluster job system, so only one
// server in a cluster polls a given watch.
type ClusterJobScheduler struct {
	api plugin.API
}

// NewClusterJobScheduler creates a new cluster job scheduler
func NewClusterJobScheduler(api plugin.API) *ClusterJobScheduler {
	return &ClusterJobScheduler{
		api: api,
	}
}

// Schedule creates a new cluster-aware scheduled job
func (s *ClusterJobScheduler) Schedule(
	jobID string,
	nextWaitInterval cluster.NextWaitInterval,
	callback func(),
) (Job, error) {
	return cluster.Schedule(s.api, jobID, nextWaitInterval, callback)
}

// LocalScheduler runs jobs on an in-process timer. It is used outside a
// Mattermost server, e.g. by the probe CLI.
type LocalScheduler struct{}

// Schedule starts the job loop. The first wait is computed with zero metadata.
func (LocalScheduler) Schedule(
	_ string,
	nextWaitInterval cluster.NextWaitInterval,
	callback func(),
) (Job, error) {
	job := &localJob{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go job.loop(nextWaitInterval, callback)
	return job, nil
}

type localJob struct {
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func (j *localJob) loop(nextWaitInterval cluster.NextWaitInterval, callback func()) {
	defer close(j.done)

	var metadata cluster.JobMetadata
	for {
		timer := time.NewTimer(nextWaitInterval(time.Now(), metadata))
		select {
		case <-j.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		callback()
		metadata.LastFinished = time.Now()
	}
}

// Close stops the loop and waits for a running callback to return
func (j *localJob) Close() error {
	j.closeOnce.Do(func() {
		close(j.stop)
	})
	<-j.done
	return nil
}
