package worker

import "fmt"

// loop pulls tasks until the queue is closed and drained. Tasks run under
// the pool context; popping does not, so an aborted pool still resolves
// every queued job.
func (p *Pool) loop(id int) {
	for {
		t, ok := p.queue.pop()
		if !ok {
			return
		}
		p.runTask(id, t)
		if t.job {
			p.queue.jobDone()
		}
	}
}

func (p *Pool) runTask(id int, t task) {
	defer func() {
		if r := recover(); r != nil {
			p.run.Log.Error("task panic", "worker", id, "task", t.name, "panic", fmt.Sprint(r))
		}
	}()
	t.run(p.ctx)
}
