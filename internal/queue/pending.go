package queue

import "fmt"

// Pending is the FIFO of jobs awaiting processing. Insertion order is
// processing order and positions are 1-based.
type Pending struct {
	jobs []Job
	ids  map[string]struct{}
}

// NewPending returns an empty queue.
func NewPending() *Pending {
	return &Pending{ids: make(map[string]struct{})}
}

// Push appends job to the tail and returns its position.
func (p *Pending) Push(job Job) (int, error) {
	if _, dup := p.ids[job.ID]; dup {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
	}
	p.jobs = append(p.jobs, job)
	p.ids[job.ID] = struct{}{}
	return len(p.jobs), nil
}

// Pop removes and returns the head job.
func (p *Pending) Pop() (Job, bool) {
	if len(p.jobs) == 0 {
		return Job{}, false
	}
	head := p.jobs[0]
	p.jobs[0] = Job{}
	p.jobs = p.jobs[1:]
	delete(p.ids, head.ID)
	return head, true
}

// Len reports the number of waiting jobs.
func (p *Pending) Len() int {
	return len(p.jobs)
}

// Contains reports whether id is waiting.
func (p *Pending) Contains(id string) bool {
	_, ok := p.ids[id]
	return ok
}

// Snapshot copies the waiting jobs in order; index i has position i+1.
func (p *Pending) Snapshot() []Job {
	return append([]Job(nil), p.jobs...)
}
