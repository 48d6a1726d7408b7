package worker

import (
	"context"
	"sync"
)

// task is one unit of work executed by a pool worker.
type task struct {
	name string
	// job tasks count against the queue's job limit
	job bool
	run func(ctx context.Context)
}

// queue is an unbounded task queue with two lanes. Light tasks are handed
// out first. Job tasks are handed out only while fewer than jobLimit of them
// are running, so workers beyond that limit stay free for light tasks. Push
// never blocks, so submitting a whole admission batch cannot stall the
// orchestrator.
type queue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	light      []task
	jobs       []task
	jobLimit   int
	activeJobs int
	done       bool
}

func newQueue(jobLimit int) *queue {
	if jobLimit < 1 {
		jobLimit = 1
	}
	q := &queue{jobLimit: jobLimit}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(t task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.done {
		return false
	}
	if t.job {
		q.jobs = append(q.jobs, t)
	} else {
		q.light = append(q.light, t)
	}
	q.cond.Broadcast()
	return true
}

// pop blocks until a task may run. After close it keeps returning the
// remaining tasks, then reports false. Every job task returned must be
// followed by a call to jobDone.
func (q *queue) pop() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.light) > 0 {
			return shift(&q.light), true
		}
		if len(q.jobs) > 0 && q.activeJobs < q.jobLimit {
			q.activeJobs++
			return shift(&q.jobs), true
		}
		if q.done && len(q.jobs) == 0 {
			return task{}, false
		}
		q.cond.Wait()
	}
}

func (q *queue) jobDone() {
	q.mu.Lock()
	q.activeJobs--
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *queue) close() {
	q.mu.Lock()
	q.done = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.light) + len(q.jobs)
}

func shift(items *[]task) task {
	t := (*items)[0]
	(*items)[0] = task{}
	*items = (*items)[1:]
	return t
}
