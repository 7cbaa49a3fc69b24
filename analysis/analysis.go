// Package analysis exposes the host-facing analysis surface:
// each analysis has a name, a parameter struct, and a Run(comm) that
// returns a column bundle the caller merges into the map's attribute
// table. Analyses never mutate their input map; per-origin kernels run in
// parallel with per-worker scratch and the result rows are merged after
// the barrier.
//
// Each worker emits owned rows that are merged after the barrier, which
// is what keeps the attribute table single-writer.
package analysis

import (
	"errors"
	"runtime"
	"sync"

	"github.com/salanous/spacesyntax/attrtable"
	"github.com/salanous/spacesyntax/comm"
)

// ErrCancelled indicates the Communicator requested cancellation; the
// analysis unwound without producing any columns.
var ErrCancelled = errors.New("analysis: cancelled")

// Column is one named output column, keyed like the destination table.
type Column[K comparable] struct {
	Name   string
	Values map[K]float64
}

// Result is an analysis outcome: the columns produced and whether the run
// completed (false only on cancellation, in which case Columns is empty).
type Result[K comparable] struct {
	Columns   []Column[K]
	Completed bool
}

// MergeInto writes every column of r into t, resetting each destination
// column first. This is the single-threaded merge step
func (r Result[K]) MergeInto(t *attrtable.Table[K]) {
	for _, col := range r.Columns {
		t.InsertOrResetColumn(col.Name)
		for key, v := range col.Values {
			t.Set(key, col.Name, v)
		}
	}
}

// Analysis is the host-facing surface: a human-readable name and a run
// method reporting to a Communicator.
type Analysis[K comparable] interface {
	Name() string
	Run(c comm.Communicator) (Result[K], error)
}

// workers resolves a worker-count parameter, defaulting to GOMAXPROCS.
func workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// originRow is one origin's finished values, in column order.
type originRow[K comparable] struct {
	key    K
	values []float64
}

// runPerOrigin fans origins across workers, each producing an owned
// originRow via kernel; rows are merged into named columns after all
// workers finish. Worker 0 polls cancellation; a cancelled run returns
// ErrCancelled and no columns.
func runPerOrigin[K comparable](c comm.Communicator, origins []K, colNames []string, nWorkers int, kernel func(K) ([]float64, error)) (Result[K], error) {
	if c == nil {
		c = comm.Noop{}
	}
	c.PostMessage(comm.NumSteps, int64(len(origins)))

	jobs := make(chan K)
	rowsCh := make(chan originRow[K], len(origins))
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex
	cancelled := false

	n := workers(nWorkers)
	wg.Add(n)
	for w := 0; w < n; w++ {
		isPoller := w == 0
		go func() {
			defer wg.Done()
			for origin := range jobs {
				if isPoller && c.IsCancelled() {
					errMu.Lock()
					cancelled = true
					errMu.Unlock()
				}
				errMu.Lock()
				stop := cancelled || firstErr != nil
				errMu.Unlock()
				if stop {
					continue
				}
				values, err := kernel(origin)
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					continue
				}
				rowsCh <- originRow[K]{key: origin, values: values}
			}
		}()
	}
	done := 0
	for _, o := range origins {
		jobs <- o
		done++
		c.PostMessage(comm.CurrentStep, int64(done))
	}
	close(jobs)
	wg.Wait()
	close(rowsCh)

	if cancelled {
		return Result[K]{}, ErrCancelled
	}
	if firstErr != nil {
		return Result[K]{}, firstErr
	}

	cols := make([]Column[K], len(colNames))
	for i, name := range colNames {
		cols[i] = Column[K]{Name: name, Values: make(map[K]float64, len(origins))}
	}
	for row := range rowsCh {
		for i, v := range row.values {
			cols[i].Values[row.key] = v
		}
	}
	return Result[K]{Columns: cols, Completed: true}, nil
}
