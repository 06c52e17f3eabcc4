package stockcheck

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-catalog/internal/event"
)

// MessageReader is implemented by *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ResponderConfig holds non-dependency configuration for the Responder.
type ResponderConfig struct {
	// RetryDelay is the pause after a failed fetch, reply or commit.
	RetryDelay     time.Duration
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator
}

// Responder consumes stock check requests and publishes replies.
type Responder struct {
	reader     MessageReader
	replies    event.Publisher
	stock      StockReader
	lg         *zap.Logger
	retryDelay time.Duration
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewResponder creates a Responder.
func NewResponder(reader MessageReader, replies event.Publisher, stock StockReader, lg *zap.Logger, cfg ResponderConfig) *Responder {
	r := &Responder{
		reader:     reader,
		replies:    replies,
		stock:      stock,
		lg:         lg.Named("stockcheck"),
		retryDelay: cfg.RetryDelay,
		propagator: cfg.Propagator,
	}
	if r.retryDelay <= 0 {
		r.retryDelay = time.Second
	}
	if r.propagator == nil {
		r.propagator = propagation.TraceContext{}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	r.tracer = tp.Tracer("github.com/xenking/bookstore-catalog/internal/stockcheck")
	return r
}

// Run processes requests until ctx is done. A failed request is retried
// until it succeeds and is committed only after its reply was written.
// Malformed requests are logged and committed.
func (r *Responder) Run(ctx context.Context) error {
	r.lg.Info("Stock check responder started")
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.lg.Error("Fetch stock check request", zap.Error(err))
			if !r.sleep(ctx) {
				return nil
			}
			continue
		}

		for {
			err := r.handle(ctx, msg)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			r.lg.Error("Answer stock check request",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			if !r.sleep(ctx) {
				return nil
			}
		}

		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.lg.Error("Commit stock check request", zap.Error(err))
		}
	}
}

func (r *Responder) handle(ctx context.Context, msg kafka.Message) error {
	ctx = event.Extract(ctx, r.propagator, msg)
	ctx, span := r.tracer.Start(ctx, "process stock check",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	req, err := DecodeRequest(msg.Value)
	if err != nil {
		r.lg.Warn("Skip malformed stock check request",
			zap.ByteString("value", msg.Value),
			zap.Error(err),
		)
		return nil
	}

	reply, ok, err := Answer(ctx, r.stock, req)
	if err != nil {
		return err
	}
	if !ok {
		r.lg.Debug("No reply for unknown product", zap.String("product_id", req.ProductID))
		return nil
	}

	out := kafka.Message{Key: []byte(reply.ProductID), Value: reply.Encode()}
	event.Inject(ctx, r.propagator, &out)
	if err := r.replies.WriteMessages(ctx, out); err != nil {
		return errors.Wrap(err, "write reply")
	}
	return nil
}

func (r *Responder) sleep(ctx context.Context) bool {
	t := time.NewTimer(r.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
