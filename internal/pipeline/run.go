// Package pipeline orchestrates a tailoring run: extraction, evidence mapping, generation,
// verification and the optional cover letter.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cv-tailor/internal/coverletter"
	"github.com/jonathan/cv-tailor/internal/db"
	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/matching"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/parsing"
	"github.com/jonathan/cv-tailor/internal/rewriting"
	"github.com/jonathan/cv-tailor/internal/scoring"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Input is one tailoring request
type Input struct {
	JobDescription string
	OriginalCV     string
	CVFacts        *types.CVFacts // previously extracted facts; OriginalCV is not extracted when set
	Options        types.TailorOptions
}

// Store persists runs and their stage artifacts. *db.DB satisfies it.
type Store interface {
	CreateRun(ctx context.Context, runID uuid.UUID, jobTitle, company, strictness string) error
	SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status, errMsg string) error
}

var _ Store = (*db.DB)(nil)

// Options holds configuration for running the pipeline
type Options struct {
	Logger      logrus.FieldLogger
	OnProgress  ProgressCallback
	Judge       scoring.Judge // heuristic when nil
	Store       Store         // optional
	Concurrency int           // bullet rewrite calls in flight
}

type outcome struct {
	result *types.TailorResult
	err    error
}

// Run tailors in.OriginalCV to in.JobDescription. The work runs on a context detached from
// ctx so in-flight LLM calls are not abandoned; when ctx is done first, the result is
// discarded, no further progress is reported and ctx.Err() is returned. The detached work
// starts no new stage once ctx is done and records the run as cancelled.
func Run(ctx context.Context, client llm.Client, in Input, opts Options) (*types.TailorResult, error) {
	in.Options = in.Options.WithDefaults()
	if !in.Options.Strictness.IsValid() {
		return nil, fmt.Errorf("invalid strictness level %q", in.Options.Strictness)
	}

	stepper := NewStepper(TotalSteps(in.Options), opts.OnProgress)
	r := &run{
		id:      uuid.New(),
		caller:  ctx,
		client:  client,
		in:      in,
		opts:    opts,
		log:     observability.OrNop(opts.Logger),
		stepper: stepper,
	}
	r.log = r.log.WithField("run_id", r.id.String())

	done := make(chan outcome, 1)
	go func() {
		result, err := r.execute(context.WithoutCancel(ctx))
		done <- outcome{result, err}
	}()

	select {
	case <-ctx.Done():
		stepper.Stop()
		r.log.WithError(ctx.Err()).Warn("Caller went away, discarding run")
		return nil, ctx.Err()
	case out := <-done:
		return out.result, out.err
	}
}

type run struct {
	id      uuid.UUID
	caller  context.Context
	client  llm.Client
	in      Input
	opts    Options
	log     logrus.FieldLogger
	stepper *Stepper
	stored  bool
}

func (r *run) execute(ctx context.Context) (*types.TailorResult, error) {
	start := time.Now()
	result, err := r.stages(ctx)
	if err != nil && r.caller.Err() != nil {
		r.log.WithError(err).Info("Stopped run, caller went away")
		r.complete(ctx, db.StatusCancelled, err.Error())
		return nil, err
	}
	if err != nil {
		r.log.WithError(err).Error("Tailoring run failed")
		r.complete(ctx, db.StatusFailed, err.Error())
		r.stepper.Fail(err)
		return nil, err
	}

	r.save(ctx, db.StepResult, result)
	r.complete(ctx, db.StatusCompleted, "")
	r.log.WithFields(logrus.Fields{
		"score":      result.MatchScore.Score,
		"borderline": len(result.BorderlineItems),
		"warnings":   len(result.Warnings),
		"duration":   time.Since(start).Round(time.Millisecond).String(),
	}).Info("Tailoring run finished")
	r.stepper.Complete(result)
	return result, nil
}

func (r *run) stages(ctx context.Context) (*types.TailorResult, error) {
	reqs, facts, err := r.extract(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.caller.Err(); err != nil {
		return nil, err
	}
	r.stepper.Advance(fmt.Sprintf("Parsed job description: %s at %s", reqs.JobTitle, reqs.Company))
	r.stepper.Advance(fmt.Sprintf("Extracted CV facts: %d experiences", len(facts.Experience)))

	r.begin(ctx, reqs)
	r.save(ctx, db.StepJobRequirements, reqs)
	r.save(ctx, db.StepCVFacts, facts)

	mapping := matching.Map(reqs, facts, r.opts.Judge)
	r.stepper.Advance(fmt.Sprintf("Mapped evidence to %d requirements", len(mapping.Entries)))
	r.save(ctx, db.StepMapping, mapping)
	if err := r.caller.Err(); err != nil {
		return nil, err
	}

	output, letter, err := r.generate(ctx, facts, reqs, mapping)
	if err != nil {
		return nil, err
	}
	if err := r.caller.Err(); err != nil {
		return nil, err
	}
	r.stepper.Advance(fmt.Sprintf("Generated tailored CV with %d changes", len(output.ChangesLog)))
	r.stepper.Advance(fmt.Sprintf("Verified against CV facts: %d items for review", len(output.BorderlineItems)))
	if letter != nil {
		r.stepper.Advance("Wrote cover letter")
	}

	output.MatchScore = matching.ScoreMatch(mapping, output)
	output.Warnings = append(output.Warnings, matching.ScoreWarnings(output.MatchScore, len(output.BorderlineItems))...)
	output.Warnings = append(output.Warnings, validation.StyleWarnings(output.CV, facts)...)
	r.save(ctx, db.StepTailoredOutput, output)
	if letter != nil {
		r.save(ctx, db.StepCoverLetter, letter)
	}
	if err := r.caller.Err(); err != nil {
		return nil, err
	}

	return &types.TailorResult{
		RunID:           r.id.String(),
		TailoredCV:      output.CV,
		CoverLetter:     letter,
		ChangesLog:      output.ChangesLog,
		BorderlineItems: output.BorderlineItems,
		MatchScore:      output.MatchScore,
		MappingSummary:  mapping.Summary,
		Warnings:        output.Warnings,
	}, nil
}

// extract runs both extractors concurrently; the first failure cancels the other
func (r *run) extract(ctx context.Context) (*types.JobRequirements, *types.CVFacts, error) {
	var reqs *types.JobRequirements
	var facts *types.CVFacts

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reqs, err = parsing.ExtractJobRequirements(gCtx, r.client, r.in.JobDescription, r.log.WithField("stage", StageJobExtraction))
		if err != nil {
			return &StageError{Stage: StageJobExtraction, Cause: err}
		}
		return nil
	})
	if r.in.CVFacts != nil {
		facts = r.in.CVFacts
	} else {
		g.Go(func() error {
			var err error
			facts, err = experience.ExtractCVFacts(gCtx, r.client, r.in.OriginalCV, r.log.WithField("stage", StageCVExtraction))
			if err != nil {
				return &StageError{Stage: StageCVExtraction, Cause: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return reqs, facts, nil
}

// generate builds and verifies the CV alongside the cover letter
func (r *run) generate(ctx context.Context, facts *types.CVFacts, reqs *types.JobRequirements, mapping *types.Mapping) (*types.TailoredOutput, *types.CoverLetter, error) {
	guardOpts := []validation.Option{validation.WithLogger(r.log.WithField("stage", StageValidation))}
	if r.opts.Judge != nil {
		guardOpts = append(guardOpts, validation.WithJudge(r.opts.Judge))
	}
	guard := validation.NewGuardrail(facts, reqs, r.in.Options.Strictness, guardOpts...)

	var output *types.TailoredOutput
	var letter *types.CoverLetter

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		draft, err := rewriting.Generate(gCtx, r.client, rewriting.Input{
			Facts:        facts,
			Requirements: reqs,
			Mapping:      mapping,
			Options:      r.in.Options,
			Concurrency:  r.opts.Concurrency,
			Logger:       r.log.WithField("stage", StageGeneration),
		})
		if err != nil {
			return &StageError{Stage: StageGeneration, Cause: err}
		}
		checked, err := guard.Check(draft)
		if err != nil {
			return &StageError{Stage: StageValidation, Cause: err}
		}
		output = checked
		return nil
	})
	if r.in.Options.GenerateCoverLetter {
		g.Go(func() error {
			var err error
			letter, err = coverletter.Generate(gCtx, r.client, coverletter.Input{
				Facts:        facts,
				Requirements: reqs,
				Mapping:      mapping,
				Grounded:     guard.Grounded(),
				Vocabulary:   guard.Vocabulary(),
				Options:      r.in.Options,
				Logger:       r.log.WithField("stage", StageCoverLetter),
			})
			if err != nil {
				return &StageError{Stage: StageCoverLetter, Cause: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return output, letter, nil
}

// Persistence is best effort: a storage failure is logged and the run continues.

func (r *run) begin(ctx context.Context, reqs *types.JobRequirements) {
	if r.opts.Store == nil {
		return
	}
	if err := r.opts.Store.CreateRun(ctx, r.id, reqs.JobTitle, reqs.Company, string(r.in.Options.Strictness)); err != nil {
		r.log.WithError(err).Warn("Failed to record run")
		return
	}
	r.stored = true
}

func (r *run) save(ctx context.Context, step string, content any) {
	if !r.stored || r.caller.Err() != nil {
		return
	}
	if err := r.opts.Store.SaveArtifact(ctx, r.id, step, content); err != nil {
		r.log.WithError(err).WithField("step", step).Warn("Failed to save artifact")
	}
}

func (r *run) complete(ctx context.Context, status, errMsg string) {
	if !r.stored {
		return
	}
	if err := r.opts.Store.CompleteRun(ctx, r.id, status, errMsg); err != nil {
		r.log.WithError(err).Warn("Failed to complete run record")
	}
}
