// Package pipeline structures many functions in parallel.
// Each function is structured on one goroutine; graphs share nothing.
package pipeline

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"unweave/internal/structure"
)

// Job is one function to structure.
type Job struct {
	Name string
	Func *structure.Func
}

// Result is the outcome of one Job. Graph is nil when Err is set.
type Result struct {
	Name  string
	Graph *structure.Graph
	Err   error
}

// Options controls a Run.
type Options struct {
	Workers   int // 0 means GOMAXPROCS
	MaxRounds int // passed to Graph.SetMaxRounds
}

// Stats counts outcomes while workers run.
type Stats struct {
	Funcs      atomic.Int64
	Structured atomic.Int64
	Residue    atomic.Int64
	Failed     atomic.Int64
	Loops      atomic.Int64
	Gotos      atomic.Int64
}

// Run structures every job. Results are in job order. The returned error
// combines the failures of all jobs; the other results stay usable.
func Run(ctx context.Context, jobs []Job, opts Options) (res []Result, st *Stats, err error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	workers = min(workers, len(jobs))

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "pipeline", "jobs", len(jobs), "workers", workers)
	defer tr.Finish("err", &err)

	res = make([]Result, len(jobs))
	st = &Stats{}

	next := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range next {
				res[i] = runJob(ctx, jobs[i], opts, st)
			}
		}()
	}

	for i, job := range jobs {
		if ctx.Err() == nil {
			select {
			case next <- i:
				continue
			case <-ctx.Done():
			}
		}

		res[i] = Result{Name: job.Name, Err: errors.Wrap(ctx.Err(), "func %v", job.Name)}
		st.Failed.Inc()
	}

	close(next)
	wg.Wait()

	for _, r := range res {
		err = multierr.Append(err, r.Err)
	}

	tr.Printw("done", "funcs", st.Funcs.Load(), "structured", st.Structured.Load(), "residue", st.Residue.Load(), "failed", st.Failed.Load())

	return res, st, err
}

func runJob(ctx context.Context, job Job, opts Options, st *Stats) Result {
	st.Funcs.Inc()

	g, err := structure.NewGraph(job.Func)
	if err != nil {
		st.Failed.Inc()
		return Result{Name: job.Name, Err: err}
	}

	g.SetMaxRounds(opts.MaxRounds)
	g.Run(ctx)

	switch g.State() {
	case structure.FullyStructured:
		st.Structured.Inc()
	case structure.IrreducibleResidue:
		st.Residue.Inc()
	}

	st.Loops.Add(int64(len(g.Loops())))
	st.Gotos.Add(int64(Gotos(g)))

	return Result{Name: job.Name, Graph: g}
}

// Gotos counts the out-edges of g that escape the structure.
func Gotos(g *structure.Graph) int {
	var n int

	for _, x := range g.Order() {
		for i := range x.Succs() {
			if x.Escape(i).Kind != structure.Structured {
				n++
			}
		}
	}

	return n
}
