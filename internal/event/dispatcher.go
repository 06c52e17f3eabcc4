// Package event publishes catalog events to Kafka.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
)

// TypeProductCreated is the event type of product-created messages.
const TypeProductCreated = "product.created"

// DefaultCurrency is used when DispatcherConfig.Currency is empty.
const DefaultCurrency = "eur"

// Publisher writes messages to a topic. *kafka.Writer implements it.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DispatcherConfig holds non-dependency configuration for the Dispatcher.
type DispatcherConfig struct {
	Currency       string
	PublishTimeout time.Duration
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator
}

// Dispatcher publishes a product.created event for every created product.
// Publishing happens in the background after the product is stored; a
// failure is logged and never reaches the caller of CreateProduct.
type Dispatcher struct {
	pub        Publisher
	lg         *zap.Logger
	currency   string
	timeout    time.Duration
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	now        func() time.Time

	wg sync.WaitGroup
}

var _ product.CreatedHook = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher publishing through pub.
func NewDispatcher(pub Publisher, lg *zap.Logger, cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		pub:        pub,
		lg:         lg.Named("event"),
		currency:   cfg.Currency,
		timeout:    cfg.PublishTimeout,
		propagator: cfg.Propagator,
		now:        time.Now,
	}
	if d.currency == "" {
		d.currency = DefaultCurrency
	}
	if d.timeout <= 0 {
		d.timeout = 10 * time.Second
	}
	if d.propagator == nil {
		d.propagator = propagation.TraceContext{}
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	d.tracer = tp.Tracer("github.com/xenking/bookstore-catalog/internal/event")
	return d
}

// ProductCreated schedules publication of the event and returns immediately.
// The request context is only used for its trace; cancellation of the
// request does not cancel publishing.
func (d *Dispatcher) ProductCreated(ctx context.Context, p product.Product) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.publish(ctx, p); err != nil {
			d.lg.Error("Publish product created event",
				zap.String("product_id", p.ID),
				zap.String("isbn13", p.ISBN13),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every scheduled event has been published or has failed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) publish(ctx context.Context, p product.Product) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "publish "+TypeProductCreated,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("catalog.product_id", p.ID),
		),
	)
	defer span.End()

	msg := kafka.Message{
		Key:   []byte(p.ID),
		Value: d.encode(p),
		Time:  d.now(),
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(TypeProductCreated)},
		},
	}
	Inject(ctx, d.propagator, &msg)

	if err := d.pub.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return err
	}
	d.lg.Debug("Published product created event", zap.String("product_id", p.ID))
	return nil
}

// MinorUnits converts a price to integer cents, rounding half away from zero.
func MinorUnits(price float64) int64 {
	return decimal.NewFromFloat(price).Shift(2).Round(0).IntPart()
}

func (d *Dispatcher) encode(p product.Product) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("eventId", func(e *jx.Encoder) { e.Str(uuid.NewString()) })
		e.Field("type", func(e *jx.Encoder) { e.Str(TypeProductCreated) })
		e.Field("occurredAt", func(e *jx.Encoder) { e.Str(d.now().UTC().Format(time.RFC3339Nano)) })
		e.Field("product", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
				e.Field("isbn13", func(e *jx.Encoder) { e.Str(p.ISBN13) })
				e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
				e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
				e.Field("priceMinor", func(e *jx.Encoder) { e.Int64(MinorUnits(p.Price)) })
				e.Field("currency", func(e *jx.Encoder) { e.Str(d.currency) })
			})
		})
	})
	return e.Bytes()
}
