package essay

import "go.uber.org/atomic"

type Operation string

const (
	OpEvaluate Operation = "evaluate"
	OpHistory  Operation = "history"
	OpCorrect  Operation = "correct"
	OpImprove  Operation = "improve"
	OpAnalyze  Operation = "analyze"
)

type counters struct {
	calls     atomic.Int64
	upstream  atomic.Int64
	fallbacks atomic.Int64
}

// Counts is a point-in-time copy of one operation's counters.
type Counts struct {
	Calls            int64 `json:"calls"`
	UpstreamFailures int64 `json:"upstream_failures"`
	Fallbacks        int64 `json:"fallbacks"`
}

type Stats struct {
	ops map[Operation]*counters
}

func newStats() *Stats {
	s := &Stats{ops: make(map[Operation]*counters)}
	for _, op := range []Operation{OpEvaluate, OpHistory, OpCorrect, OpImprove, OpAnalyze} {
		s.ops[op] = &counters{}
	}
	return s
}

func (s *Stats) op(op Operation) *counters {
	return s.ops[op]
}

func (s *Stats) Snapshot() map[Operation]Counts {
	res := make(map[Operation]Counts, len(s.ops))
	for op, c := range s.ops {
		res[op] = Counts{
			Calls:            c.calls.Load(),
			UpstreamFailures: c.upstream.Load(),
			Fallbacks:        c.fallbacks.Load(),
		}
	}
	return res
}
