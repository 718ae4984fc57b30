package scheduler

import (
	"encoding/binary"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/callstore"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/log"
	"github.com/pkg/errors"
)

const pallet = "Scheduler"

var (
	ErrAgendaFull = errors.New("agenda is full")
)

// Executor runs a decoded call under an origin.
type Executor interface {
	Dispatch(origin types.Origin, call []byte) error
	CallWeight(call []byte) (types.Weight, error)
}

type Task struct {
	Origin  types.Origin
	Call    types.BoundedCall
	Retries uint32
}

type Scheduler struct {
	state       *state.StateDB
	calls       *callstore.Store
	maxPerBlock uint32
	maxRetries  uint32
	agenda      state.Map[[]Task]
	log         log.Logger
}

func New(s *state.StateDB, calls *callstore.Store, cfg *config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		state:       s,
		calls:       calls,
		maxPerBlock: cfg.MaxScheduledPerBlock,
		maxRetries:  cfg.MaxRetries,
		agenda:      state.NewMap[[]Task](pallet, "Agenda", state.Twox64Concat),
		log:         log.New("module", "scheduler"),
	}
}

func heightKey(h uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, h)
	return b
}

func (s *Scheduler) Agenda(when uint64) []Task {
	tasks, _ := s.agenda.Get(s.state, heightKey(when))
	return tasks
}

// Schedule appends a task to the agenda of block when. The bound call is owned by the task from now on.
func (s *Scheduler) Schedule(when uint64, origin types.Origin, call types.BoundedCall) (uint32, error) {
	return s.schedule(when, Task{Origin: origin, Call: call})
}

func (s *Scheduler) schedule(when uint64, task Task) (uint32, error) {
	tasks := s.Agenda(when)
	if uint32(len(tasks)) >= s.maxPerBlock {
		return 0, ErrAgendaFull
	}
	index := uint32(len(tasks))
	if err := s.agenda.Put(s.state, heightKey(when), append(tasks, task)); err != nil {
		return 0, err
	}
	s.state.AddEvent(&events.TaskScheduledEvent{When: when, Index: index, Origin: task.Origin})
	return index, nil
}

// ServiceAgenda runs the tasks due at now within budget and returns the weight consumed.
// Each task runs in its own storage transaction; a failing call is rolled back and reported.
func (s *Scheduler) ServiceAgenda(now uint64, budget types.Weight, executor Executor) types.Weight {
	tasks := s.Agenda(now)
	if len(tasks) == 0 {
		return 0
	}
	s.agenda.Remove(s.state, heightKey(now))

	var used types.Weight
	for i, task := range tasks {
		index := uint32(i)
		data, err := s.calls.Peek(task.Call)
		if err != nil {
			s.fail(now, index, task, err)
			continue
		}
		weight, err := executor.CallWeight(data)
		if err != nil {
			s.calls.Drop(task.Call)
			s.fail(now, index, task, err)
			continue
		}
		if used+weight > budget {
			s.postpone(now, index, task)
			continue
		}
		used += weight

		s.state.BeginTx()
		err = executor.Dispatch(task.Origin, data)
		if err == nil {
			err = s.state.CommitTx()
		} else if rbErr := s.state.RollbackTx(); rbErr != nil {
			s.log.Error("failed to rollback scheduled call", "err", rbErr)
		}
		s.calls.Drop(task.Call)
		if err != nil {
			s.fail(now, index, task, err)
			continue
		}
		s.log.Debug("Scheduled call dispatched", "height", now, "index", index, "origin", task.Origin.String())
		s.state.AddEvent(&events.DispatchedEvent{When: now, Index: index, Origin: task.Origin})
	}
	return used
}

func (s *Scheduler) fail(now uint64, index uint32, task Task, err error) {
	s.log.Warn("Scheduled call failed", "height", now, "index", index, "origin", task.Origin.String(), "err", err)
	s.state.AddEvent(&events.DispatchFailedEvent{When: now, Index: index, Origin: task.Origin, Error: err.Error()})
}

func (s *Scheduler) postpone(now uint64, index uint32, task Task) {
	task.Retries++
	if task.Retries > s.maxRetries {
		s.calls.Drop(task.Call)
		s.fail(now, index, task, errors.New("weight budget exhausted"))
		return
	}
	when := calculateRetryBlock(now, task.Retries)
	for ; when <= now+uint64(s.maxRetries)*8+8; when++ {
		if _, err := s.schedule(when, task); err == nil {
			s.state.AddEvent(&events.TaskPostponedEvent{From: now, To: when, Index: index})
			return
		}
	}
	s.calls.Drop(task.Call)
	s.fail(now, index, task, ErrAgendaFull)
}

func calculateRetryBlock(prevBlock uint64, try uint32) uint64 {
	add := uint64(1)
	switch try {
	case 1:
		add = 1
	case 2:
		add = 2
	case 3:
		add = 4
	default:
		add = 8
	}
	return prevBlock + add
}
