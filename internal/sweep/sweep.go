// Package sweep runs many independent simulation configurations over
// one bar series in parallel and ranks the outcomes by an objective.
// Runs share nothing: each job builds its own generator, cost model,
// and simulator, so the sweep is an embarrassingly parallel map.
package sweep

import (
	"context"
	"log"
	"math"
	"runtime"
	"sort"
	"sync"

	"prop-trading-lab/internal/challenge"
	"prop-trading-lab/internal/costs"
	"prop-trading-lab/internal/domain"
	"prop-trading-lab/internal/feed"
	"prop-trading-lab/internal/signal"
	"prop-trading-lab/internal/simulator"
)

// Job is one parameter combination to simulate.
type Job struct {
	// Name labels the combination in ranked output.
	Name string

	Config domain.SimulatorConfig
	Signal domain.SignalConfig

	// Costs enables the transaction cost model when non-nil.
	Costs *domain.CostConfig

	// Challenge enables challenge evaluation when non-nil.
	Challenge *domain.ChallengeConfig
}

// Outcome pairs a job with its run result and objective score.
// Err is set when the job could not run; failed jobs rank last.
type Outcome struct {
	Job    Job
	Result *domain.RunResult
	Score  float64
	Err    error
}

// Objective scores a completed run; higher is better.
type Objective func(*domain.RunResult) float64

// ObjectiveNetProfit ranks by absolute net profit.
func ObjectiveNetProfit(r *domain.RunResult) float64 {
	return r.Report.NetProfit
}

// ObjectiveProfitFactor ranks by profit factor. A run with wins and no
// losses scores +Inf and sorts first.
func ObjectiveProfitFactor(r *domain.RunResult) float64 {
	return r.Report.ProfitFactor
}

// ObjectiveChallengePass ranks passed challenges first, then by net
// profit within each group. Runs without challenge rules score as
// non-passes.
func ObjectiveChallengePass(r *domain.RunResult) float64 {
	score := r.Report.NetProfit
	if r.Challenge != nil && r.Challenge.Status == domain.ChallengePassed {
		score += math.MaxFloat64 / 2
	}
	return score
}

// Options configures a Runner.
type Options struct {
	// Workers is the number of concurrent simulations. Zero or negative
	// means runtime.NumCPU().
	Workers int

	// Objective ranks outcomes; nil means ObjectiveNetProfit.
	Objective Objective

	// Logger is optional; nil discards diagnostics.
	Logger *log.Logger
}

// Runner executes sweeps. A Runner is stateless and safe for reuse.
type Runner struct {
	workers   int
	objective Objective
	logger    *log.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	objective := opts.Objective
	if objective == nil {
		objective = ObjectiveNetProfit
	}
	return &Runner{
		workers:   workers,
		objective: objective,
		logger:    opts.Logger,
	}
}

// Run simulates every job over the feed and returns outcomes sorted
// best-first. Cancelling the context stops submission of further jobs;
// in-flight runs finish and their outcomes are included. The returned
// error is the context error when the sweep was cut short, nil
// otherwise.
func (r *Runner) Run(ctx context.Context, f *feed.Feed, jobs []Job) ([]Outcome, error) {
	jobCh := make(chan Job)
	outCh := make(chan Outcome, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				outCh <- r.runOne(f, job)
			}
		}()
	}

	submitted := 0
submit:
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobCh <- job:
			submitted++
		case <-ctx.Done():
			break submit
		}
	}
	close(jobCh)
	wg.Wait()
	close(outCh)

	outcomes := make([]Outcome, 0, submitted)
	for out := range outCh {
		outcomes = append(outcomes, out)
	}
	r.rank(outcomes)

	if err := ctx.Err(); err != nil {
		r.logf("sweep cancelled after %d/%d jobs", submitted, len(jobs))
		return outcomes, err
	}
	return outcomes, nil
}

// runOne builds and executes a single job.
func (r *Runner) runOne(f *feed.Feed, job Job) Outcome {
	gen, err := signal.FromConfig(job.Signal, signal.LevelsFromConfig(job.Config))
	if err != nil {
		return Outcome{Job: job, Err: err}
	}

	opts := simulator.Options{
		Config:    job.Config,
		Generator: gen,
		Logger:    r.logger,
	}
	if job.Costs != nil {
		opts.Costs = costs.NewModel(*job.Costs)
	}
	if job.Challenge != nil {
		opts.Hook = challenge.NewEvaluator(*job.Challenge, job.Config.InitialCapital)
	}

	result, err := simulator.New(opts).Run(f)
	if err != nil {
		return Outcome{Job: job, Err: err}
	}
	return Outcome{Job: job, Result: result, Score: r.objective(result)}
}

// rank sorts outcomes best-first: errored jobs last, ties broken by
// job name so output order is reproducible.
func (r *Runner) rank(outcomes []Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i], outcomes[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Job.Name < b.Job.Name
	})
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}
