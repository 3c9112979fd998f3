// Package scheduler summarizes a directory tree bottom-up, one depth level at a time.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/babar-dev/babar/internal/artifact"
	babarerrors "github.com/babar-dev/babar/internal/errors"
	"github.com/babar-dev/babar/internal/llm"
	"github.com/babar-dev/babar/internal/prompt"
	"github.com/babar-dev/babar/internal/state"
	"github.com/babar-dev/babar/internal/tree"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const phaseAnalyzing = "analyzing"

// Options wires a Scheduler.
type Options struct {
	Summarizer llm.Summarizer
	Store      *artifact.Store
	Oracle     *state.Oracle
	Assembler  *prompt.Assembler
	Logger     *zap.Logger
	// Concurrency bounds the nodes summarized at once within a depth; 0 means no bound.
	Concurrency int
	// Provenance adds a generated-by comment to every artifact.
	Provenance bool
	OnProgress func(Event)
	Now        func() time.Time
}

// Scheduler runs one summarization pass per call to Run.
type Scheduler struct {
	opts      Options
	logger    *zap.Logger
	processed atomic.Int64
}

func New(opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{opts: opts, logger: opts.Logger}
}

// Run visits every node of root, deepest level first. All nodes of a level
// finish before the next shallower level starts, so a parent always sees the
// artifacts its children produced in this run. Per-node failures are recorded
// in the report; only cancellation of ctx ends the run early.
func (s *Scheduler) Run(ctx context.Context, root *tree.Node, total int) (Report, error) {
	start := s.opts.Now()
	s.processed.Store(0)
	report := Report{RunID: uuid.NewString(), Total: total}
	logger := s.logger.With(zap.String("run", report.RunID))

	buckets := tree.GroupByDepth(root)
	for depth := len(buckets) - 1; depth >= 0; depth-- {
		if err := ctx.Err(); err != nil {
			report.Processed = int(s.processed.Load())
			report.Duration = s.opts.Now().Sub(start)
			return report, err
		}

		bucket := buckets[depth]
		outcomes := make([]Outcome, len(bucket))
		var g errgroup.Group
		if s.opts.Concurrency > 0 {
			g.SetLimit(s.opts.Concurrency)
		}
		for i, node := range bucket {
			g.Go(func() error {
				outcomes[i] = s.visit(ctx, node, total, report.RunID)
				return nil
			})
		}
		_ = g.Wait()

		for _, o := range outcomes {
			s.log(logger, o)
		}
		report.Outcomes = append(report.Outcomes, outcomes...)
	}

	report.Processed = int(s.processed.Load())
	report.Duration = s.opts.Now().Sub(start)
	return report, ctx.Err()
}

func (s *Scheduler) visit(ctx context.Context, node *tree.Node, total int, runID string) Outcome {
	out := Outcome{Node: node, Started: s.opts.Now()}
	if node.IsPassThrough() {
		out.Status = PassThrough
		return out
	}
	if !s.opts.Oracle.NeedsAnalysis(node) {
		out.Status = Fresh
		return out
	}

	s.emit(node, total, StageStart)
	s.processed.Add(1)
	defer s.emit(node, total, StageEnd)

	if err := s.summarize(ctx, node, runID); err != nil {
		out.Err = err
		if ctx.Err() != nil {
			out.Status = Cancelled
		} else {
			out.Status = Failed
			out.Kind = babarerrors.KindOf(err)
		}
	} else {
		out.Status = Summarized
	}
	out.Finished = s.opts.Now()
	return out
}

func (s *Scheduler) summarize(ctx context.Context, node *tree.Node, runID string) error {
	req, err := s.opts.Assembler.Build(ctx, node)
	if err != nil {
		return err
	}
	s.logger.Debug("summarizing",
		zap.String("directory", req.Directory),
		zap.Int("system_bytes", len(req.System)),
		zap.Int("content_bytes", len(req.Content)),
	)

	completion, err := s.opts.Summarizer.Complete(ctx, req)
	if err != nil {
		return babarerrors.New(babarerrors.Provider, node.Path, err)
	}
	s.logger.Debug("summary received",
		zap.String("directory", req.Directory),
		zap.Int("response_bytes", len(completion.Text)),
		zap.Bool("sectioned", completion.Sections != nil),
	)

	doc := artifact.Document{Body: completion.Text, Sections: completion.Sections}
	if s.opts.Provenance {
		doc.Provenance = &artifact.Provenance{
			Provider:    s.opts.Summarizer.Name(),
			RunID:       runID,
			GeneratedAt: s.opts.Now(),
		}
	}
	if err := s.opts.Store.Write(node, doc); err != nil {
		return babarerrors.New(babarerrors.Write, s.opts.Store.Path(node), err)
	}
	return nil
}

func (s *Scheduler) emit(node *tree.Node, total int, stage Stage) {
	if s.opts.OnProgress == nil {
		return
	}
	s.opts.OnProgress(Event{
		Phase:     phaseAnalyzing,
		Directory: node.Rel(),
		Progress:  Progress{Current: int(s.processed.Load()), Total: total},
		Stage:     stage,
	})
}

func (s *Scheduler) log(logger *zap.Logger, o Outcome) {
	dir := o.Node.Rel()
	switch o.Status {
	case Summarized:
		logger.Info("summarized directory",
			zap.String("directory", dir),
			zap.Duration("elapsed", o.Finished.Sub(o.Started)),
		)
	case Fresh:
		logger.Debug("artifact up to date", zap.String("directory", dir))
	case Cancelled:
		logger.Info("directory cancelled", zap.String("directory", dir))
	case Failed:
		logger.Warn("directory not summarized",
			zap.String("directory", dir),
			zap.String("kind", string(o.Kind)),
			zap.Error(o.Err),
		)
	}
}

// String renders an outcome for human output.
func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s (%s): %v", o.Node.Rel(), o.Status, o.Err)
	}
	return fmt.Sprintf("%s (%s)", o.Node.Rel(), o.Status)
}
