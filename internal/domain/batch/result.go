package batch

import (
	"fmt"
	"sort"
)

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	index  int
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result for the item at index.
func NewOK(index int, id string) Result {
	return Result{index: index, id: id, status: StatusOK}
}

// NewError creates a failed batch result for the item at index.
func NewError(index int, id string, err error) Result {
	return Result{index: index, id: id, status: StatusError, err: err}
}

// Index returns the item position in the request.
func (r Result) Index() int { return r.index }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Message renders a failure as "<id>: <reason>". Items without an id use their position.
func (r Result) Message() string {
	if r.err == nil {
		return ""
	}
	if r.id == "" {
		return fmt.Sprintf("record %d: %v", r.index, r.err)
	}
	return fmt.Sprintf("%s: %v", r.id, r.err)
}

// Summary aggregates batch results.
type Summary struct {
	SuccessCount int
	ErrorCount   int
	Errors       []string
}

// Summarize counts results and lists failures in request order.
func Summarize(results []Result) Summary {
	ordered := make([]Result, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].index < ordered[j].index })

	s := Summary{Errors: []string{}}
	for _, r := range ordered {
		if r.status == StatusOK {
			s.SuccessCount++
			continue
		}
		s.ErrorCount++
		s.Errors = append(s.Errors, r.Message())
	}
	return s
}
