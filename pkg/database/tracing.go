package database

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/sarthakastic/storefront/pkg/database"

// Command results as recorded in metrics.
const (
	resultOK    = "ok"
	resultMiss  = "miss"
	resultError = "error"
)

var commandSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "redis",
		Name:      "command_seconds",
		Help:      "Redis command latency by command and result.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
	},
	[]string{"command", "result"},
)

// commandHook spans, times and, past slow, logs every redis command and
// pipeline.
type commandHook struct {
	slow   time.Duration
	logger *slog.Logger
}

var _ redis.Hook = commandHook{}

func (commandHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h commandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		return h.observe(ctx, cmd.Name(), statement(cmd), func(ctx context.Context) error {
			return next(ctx, cmd)
		})
	}
}

func (h commandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, len(cmds))
		for i, cmd := range cmds {
			names[i] = cmd.Name()
		}
		return h.observe(ctx, "pipeline", strings.Join(names, " "), func(ctx context.Context) error {
			return next(ctx, cmds)
		})
	}
}

func (h commandHook) observe(ctx context.Context, op, stmt string, run func(context.Context) error) error {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "redis."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemRedis,
			attribute.String("db.operation", op),
			attribute.String("db.statement", stmt),
		),
	)
	err := run(ctx)
	elapsed := time.Since(start)

	result := resultOK
	switch {
	case errors.Is(err, redis.Nil):
		result = resultMiss
	case err != nil:
		result = resultError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	commandSeconds.WithLabelValues(op, result).Observe(elapsed.Seconds())

	if h.slow > 0 && h.logger != nil && elapsed >= h.slow {
		h.logger.WarnContext(ctx, "slow redis command",
			slog.String("operation", op),
			slog.String("statement", stmt),
			slog.String("result", result),
			slog.Duration("duration", elapsed),
		)
	}
	return err
}

// statement is the command name plus its first key; values never appear.
func statement(cmd redis.Cmder) string {
	if args := cmd.Args(); len(args) > 1 {
		if key, ok := args[1].(string); ok {
			return cmd.Name() + " " + key
		}
	}
	return cmd.Name()
}
