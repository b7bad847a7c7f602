// Package compiler wires the six pipeline stages (parse, syntax,
// expand, resolve, wiring, assemble) into the single Compile entry
// point spec.md §6 exposes, adding the observability the core stages
// themselves stay free of: structured logging, OpenTelemetry spans,
// and Prometheus metrics.
package compiler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"odlc/internal/assemble"
	"odlc/internal/compileerr"
	"odlc/internal/expand"
	"odlc/internal/ir"
	"odlc/internal/logging"
	"odlc/internal/resolve"
	"odlc/internal/surface"
	"odlc/internal/syntax"
	"odlc/internal/wiring"
)

var tracer = otel.Tracer("odlc/compiler")

var (
	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odlc_compile_stage_duration_seconds",
		Help:    "Duration of each compile pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	compileErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odlc_compile_errors_total",
		Help: "Compile errors by kind.",
	}, []string{"kind"})
)

// Register adds the compiler's metrics to reg. Call once per registry;
// safe to skip in tests that don't care about metrics.
func Register(reg prometheus.Registerer) error {
	if err := reg.Register(stageDuration); err != nil {
		return err
	}
	return reg.Register(compileErrors)
}

// Compile runs a raw surface tree through all six stages and returns
// the frozen IR, or a batched compileerr.Report describing every
// violation found (spec.md §6's single pure `compile(source) -> IR |
// CompileError` operation, instrumented).
func Compile(ctx context.Context, source surface.Tree, obs StageObserver) (*assemble.IR, *compileerr.Report) {
	correlationID := uuid.New().String()
	logger := logging.New("compiler").With("correlation_id", correlationID)

	ctx, span := tracer.Start(ctx, "compile", trace.WithAttributes(attribute.String("correlation_id", correlationID)))
	defer span.End()

	node, report := runStage(ctx, obs, logger, "parse", func() (*ir.Node, *compileerr.Report) {
		n, err := surface.Normalize(source)
		if err != nil {
			return nil, compileerr.AsReport(err)
		}
		return n, nil
	})
	if report != nil {
		span.SetStatus(codes.Error, "parse failed")
		emitEvent(obs, StageEvent{Type: EventCompileFailed})
		return nil, report
	}

	if _, report := runStage(ctx, obs, logger, "syntax", func() (*ir.Node, *compileerr.Report) {
		r := syntax.Check(node)
		if r.HasErrors() {
			return nil, r
		}
		return node, nil
	}); report != nil {
		span.SetStatus(codes.Error, "syntax check failed")
		emitEvent(obs, StageEvent{Type: EventCompileFailed})
		return nil, report
	}

	expanded, report := runStage(ctx, obs, logger, "expand", func() (*ir.Node, *compileerr.Report) {
		n, err := expand.Expand(node)
		if err != nil {
			return nil, compileerr.AsReport(err)
		}
		return n, nil
	})
	if report != nil {
		span.SetStatus(codes.Error, "expand failed")
		emitEvent(obs, StageEvent{Type: EventCompileFailed})
		return nil, report
	}

	if _, report := runStage(ctx, obs, logger, "resolve", func() (*ir.Node, *compileerr.Report) {
		r := resolve.Resolve(expanded)
		if r.HasErrors() {
			return nil, r
		}
		return expanded, nil
	}); report != nil {
		span.SetStatus(codes.Error, "resolve failed")
		emitEvent(obs, StageEvent{Type: EventCompileFailed})
		return nil, report
	}

	if _, report := runStage(ctx, obs, logger, "wiring", func() (*ir.Node, *compileerr.Report) {
		g := wiring.Build(expanded)
		if err := g.ReconfirmReferences(); err != nil {
			return nil, compileerr.AsReport(err)
		}
		if err := g.Check(); err != nil {
			return nil, compileerr.AsReport(err)
		}
		for _, orphan := range g.Orphans() {
			logger.Info("terminal output with no internal consumer", "path", orphan)
		}
		return expanded, nil
	}); report != nil {
		span.SetStatus(codes.Error, "wiring check failed")
		emitEvent(obs, StageEvent{Type: EventCompileFailed})
		return nil, report
	}

	_, assembleSpan := tracer.Start(ctx, "assemble")
	start := time.Now()
	emitEvent(obs, StageEvent{Type: EventStageEnter, Stage: "assemble"})
	result, assembleErr := assemble.Assemble(expanded)
	elapsed := time.Since(start)
	stageDuration.WithLabelValues("assemble").Observe(elapsed.Seconds())
	if assembleErr != nil {
		compileErrors.WithLabelValues(string(assembleErr.Kind)).Inc()
		emitEvent(obs, StageEvent{Type: EventStageError, Stage: "assemble", Elapsed: elapsed, Error: assembleErr})
		assembleSpan.SetStatus(codes.Error, "assemble failed")
		assembleSpan.End()
		logger.Warn("stage failed", "stage", "assemble", "errors", 1)
		span.SetStatus(codes.Error, "assembly failed")
		emitEvent(obs, StageEvent{Type: EventCompileFailed})
		return nil, compileerr.AsReport(assembleErr)
	}
	emitEvent(obs, StageEvent{Type: EventStageExit, Stage: "assemble", Elapsed: elapsed})
	assembleSpan.End()
	logger.Info("stage complete", "stage", "assemble", "elapsed", elapsed)

	emitEvent(obs, StageEvent{Type: EventCompileDone})
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// runStage times one pipeline stage, logs and traces its outcome, and
// records Prometheus counters for any CompileError it surfaces.
func runStage(ctx context.Context, obs StageObserver, logger *slog.Logger, stage string, fn func() (*ir.Node, *compileerr.Report)) (*ir.Node, *compileerr.Report) {
	_, span := tracer.Start(ctx, stage)
	defer span.End()

	start := time.Now()
	emitEvent(obs, StageEvent{Type: EventStageEnter, Stage: stage})

	node, report := fn()
	elapsed := time.Since(start)
	stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())

	if report != nil {
		for _, e := range report.Errors {
			compileErrors.WithLabelValues(string(e.Kind)).Inc()
		}
		emitEvent(obs, StageEvent{Type: EventStageError, Stage: stage, Elapsed: elapsed, Error: report})
		span.SetStatus(codes.Error, stage+" failed")
		logger.Warn("stage failed", "stage", stage, "errors", len(report.Errors))
		return nil, report
	}

	emitEvent(obs, StageEvent{Type: EventStageExit, Stage: stage, Elapsed: elapsed})
	logger.Info("stage complete", "stage", stage, "elapsed", elapsed)
	return node, nil
}
