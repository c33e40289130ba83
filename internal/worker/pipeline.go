// Package worker is the write path: consume a queued job, clone the project,
// run contribution analysis, and cache the outcome while reporting progress.
// After the prepare stage every failure is recorded into a cached error
// appraisal instead of aborting, so a polling client always ends up with a
// definitive answer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gitworth/internal/analyzer"
	"gitworth/internal/appraisal"
	"gitworth/internal/cache"
	"gitworth/internal/gitlocal"
	"gitworth/internal/progress"
	"gitworth/internal/store"
)

// finishedAnnounceSeconds is how long the terminal phase is re-announced for
// subscribers that attach after the job completed.
const finishedAnnounceSeconds = 5

// Checkouts is the slice of gitlocal.Workspace the pipeline needs.
type Checkouts interface {
	Path(ref appraisal.ProjectRef) string
	Exists(ref appraisal.ProjectRef) bool
	Clone(ctx context.Context, ref appraisal.ProjectRef, cloneURL string, prog io.Writer) error
}

type Pipeline struct {
	projects  store.Repository
	checkouts Checkouts
	analyzer  analyzer.Analyzer
	cache     cache.Store
	publisher progress.Publisher
	ttl       appraisal.TTLPolicy

	// announceInterval paces the terminal re-announce loop; zero keeps the
	// reporter default of one second.
	announceInterval time.Duration
}

func NewPipeline(
	projects store.Repository,
	checkouts Checkouts,
	contribAnalyzer analyzer.Analyzer,
	cacheStore cache.Store,
	publisher progress.Publisher,
	ttl appraisal.TTLPolicy,
) *Pipeline {
	return &Pipeline{
		projects:  projects,
		checkouts: checkouts,
		analyzer:  contribAnalyzer,
		cache:     cacheStore,
		publisher: publisher,
		ttl:       ttl,
	}
}

// jobRun is the mutable context threaded through the pipeline stages. Once
// result is set, later stages only persist and announce it.
type jobRun struct {
	job      appraisal.Job
	project  store.Project
	reporter *progress.Reporter
	result   *appraisal.Appraisal
}

// Run executes the four pipeline stages. A returned error means the run
// produced no cached result and the delivery should stay un-acked for
// redelivery; everything else converges on a cache write and a terminal
// progress report.
func (p *Pipeline) Run(ctx context.Context, job appraisal.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("reject job: %w", err)
	}
	run := &jobRun{
		job:      job,
		reporter: progress.NewReporter(p.publisher, job.ID),
	}
	run.reporter.SetInterval(p.announceInterval)

	stages := []struct {
		name string
		fn   func(context.Context, *jobRun) error
	}{
		{"prepare", p.prepare},
		{"clone", p.clone},
		{"appraise", p.appraise},
		{"cache", p.cacheResult},
	}
	for _, stage := range stages {
		if err := stage.fn(ctx, run); err != nil {
			return fmt.Errorf("%s job %s: %w", stage.name, job.ID, err)
		}
	}

	run.reporter.ReportEachSecond(ctx, finishedAnnounceSeconds, progress.PhaseFinished)
	return nil
}

// prepare materializes the project from the job payload. This is the only
// stage where failure is fatal: without a resolved project there is nothing
// meaningful to cache.
func (p *Pipeline) prepare(ctx context.Context, run *jobRun) error {
	project, err := p.projects.Get(ctx, run.job.Project.Owner, run.job.Project.Name)
	if err != nil {
		return fmt.Errorf("resolve project %s: %w", run.job.Project.Slug(), err)
	}
	run.project = project
	return nil
}

// clone materializes the local checkout. An already-present checkout is
// reused, not re-cloned, which is what makes job redelivery safe. A clone
// failure is recorded as an error appraisal and the pipeline continues to the
// cache stage. The one exception is a checkout that appeared between the
// existence check and the clone: overwriting it could corrupt state another
// worker owns, so that run is abandoned.
func (p *Pipeline) clone(ctx context.Context, run *jobRun) error {
	report(ctx, run.reporter, progress.PhaseStarted)

	ref := run.job.Project
	if p.checkouts.Exists(ref) {
		report(ctx, run.reporter, progress.PhaseCloningDone)
		return nil
	}

	writer := progress.NewCloneWriter(ctx, run.reporter)
	err := p.checkouts.Clone(ctx, ref, run.project.CloneURL, writer)
	writer.Flush()
	if errors.Is(err, gitlocal.ErrCheckoutExists) {
		return err
	}
	if err != nil {
		log.Printf("worker: clone %s: %v", ref.Slug(), err)
		run.result = appraisal.NewFailure(ref, appraisal.ErrorCloneFailed, err.Error())
		return nil
	}

	donePercent, _ := progress.Map(progress.PhaseCloningDone)
	if writer.LastPercent() < donePercent {
		report(ctx, run.reporter, progress.PhaseCloningDone)
	}
	return nil
}

// appraise runs the contribution analyzer over the checkout. Skipped when the
// clone stage already recorded a failure. Analyzer failures are data, not
// process faults: they become a cached error appraisal.
func (p *Pipeline) appraise(ctx context.Context, run *jobRun) error {
	if run.result != nil {
		return nil
	}
	ref := run.job.Project
	report(ctx, run.reporter, progress.PhaseAppraisingStarted)

	tree, err := p.analyzer.Analyze(ctx, ref, p.checkouts.Path(ref))
	if err != nil {
		log.Printf("worker: appraise %s: %v", ref.Slug(), err)
		run.result = appraisal.NewFailure(ref, appraisal.ErrorAppraisalFailed, err.Error())
		return nil
	}
	report(ctx, run.reporter, progress.PhaseAppraisingDone)
	run.result = appraisal.NewSuccess(ref, tree)
	return nil
}

// cacheResult persists whichever appraisal the run produced, with the TTL its
// status selects, and reports completion regardless of the write outcome. The
// client's only recovery from a lost cache write is retrying, and reporting
// 100% is what unblocks that retry.
func (p *Pipeline) cacheResult(ctx context.Context, run *jobRun) error {
	report(ctx, run.reporter, progress.PhaseCachingStarted)

	key := appraisal.CacheKey(run.job.Project)
	raw, err := run.result.Encode()
	if err != nil {
		log.Printf("worker: encode result for %s: %v", key, err)
	} else if err := p.cache.Set(ctx, key, raw, p.ttl.For(run.result.Status)); err != nil {
		log.Printf("worker: cache set %s: %v", key, err)
	}

	report(ctx, run.reporter, progress.PhaseFinished)
	return nil
}

func report(ctx context.Context, r *progress.Reporter, phase progress.Phase) {
	if err := r.Report(ctx, phase); err != nil {
		log.Printf("worker: report %s: %v", phase, err)
	}
}
