package store

import (
	"time"

	"github.com/nhle/studytrack/internal/model"
)

type opKind int

const (
	opAdd opKind = iota
	opToggle
	opEdit
	opDelete
)

// taskOp is a task action whose effect a refresh must not undo. It is held
// while its request is in flight and, once it succeeds, until every refresh
// that started before then has been applied.
type taskOp struct {
	kind      opKind
	id        string
	task      model.Task // opAdd: the provisional task, then the confirmed one
	completed bool
	title     string
	stamp     time.Time
	settled   bool
	settledAt uint64
}

// pendingOps orders actions and refreshes on a single sequence so a fetched
// list can be brought up to date with everything the server may not have
// reflected yet.
type pendingOps struct {
	seq       uint64
	ops       []*taskOp
	refreshes map[uint64]struct{}
}

func (p *pendingOps) reset() {
	p.ops = nil
	p.refreshes = nil
}

func (p *pendingOps) begin(op *taskOp) {
	p.seq++
	p.ops = append(p.ops, op)
}

// settle marks op as confirmed by the server.
func (p *pendingOps) settle(op *taskOp) {
	p.seq++
	op.settled = true
	op.settledAt = p.seq
	p.prune()
}

// drop forgets op after its request failed and it was rolled back.
func (p *pendingOps) drop(op *taskOp) {
	for i, o := range p.ops {
		if o == op {
			p.ops = append(p.ops[:i:i], p.ops[i+1:]...)
			return
		}
	}
}

func (p *pendingOps) startRefresh() uint64 {
	p.seq++
	if p.refreshes == nil {
		p.refreshes = make(map[uint64]struct{})
	}
	p.refreshes[p.seq] = struct{}{}
	return p.seq
}

func (p *pendingOps) finishRefresh(start uint64) {
	delete(p.refreshes, start)
	p.prune()
}

// prune drops settled ops that no outstanding refresh can predate.
func (p *pendingOps) prune() {
	var oldest uint64
	for start := range p.refreshes {
		if oldest == 0 || start < oldest {
			oldest = start
		}
	}
	kept := p.ops[:0]
	for _, op := range p.ops {
		if !op.settled || (oldest != 0 && op.settledAt > oldest) {
			kept = append(kept, op)
		}
	}
	clear(p.ops[len(kept):])
	p.ops = kept
}

// replay applies to tasks, fetched by the refresh started at start, every
// action still in flight and every action confirmed after that refresh began.
func (p *pendingOps) replay(tasks []model.Task, start uint64) []model.Task {
	for _, op := range p.ops {
		if op.settled && op.settledAt < start {
			continue
		}
		switch op.kind {
		case opAdd:
			if indexOf(tasks, op.task.ID) < 0 {
				tasks = append([]model.Task{op.task.Clone()}, tasks...)
			}
		case opDelete:
			if i := indexOf(tasks, op.id); i >= 0 {
				tasks = append(tasks[:i:i], tasks[i+1:]...)
			}
		case opToggle:
			if i := indexOf(tasks, op.id); i >= 0 {
				tasks[i].Completed = op.completed
				tasks[i].UpdatedAt = op.stamp
			}
		case opEdit:
			if i := indexOf(tasks, op.id); i >= 0 {
				tasks[i].Title = op.title
				tasks[i].UpdatedAt = op.stamp
			}
		}
	}
	return tasks
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
