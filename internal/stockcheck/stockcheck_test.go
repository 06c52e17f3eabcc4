package stockcheck

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
)

// --- Mock implementations ---

type stockMap struct {
	levels map[string]int
	err    error
}

func (s stockMap) GetStock(_ context.Context, id string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, ok := s.levels[id]
	if !ok {
		return 0, product.ErrNotFound
	}
	return n, nil
}

// queueReader serves queued messages and then blocks until ctx is done.
type queueReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	fetchErrs []error
	drained   chan struct{}
}

func newQueueReader(msgs ...kafka.Message) *queueReader {
	return &queueReader{queue: msgs, drained: make(chan struct{})}
}

func (q *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	q.mu.Lock()
	if len(q.fetchErrs) > 0 {
		err := q.fetchErrs[0]
		q.fetchErrs = q.fetchErrs[1:]
		q.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(q.queue) > 0 {
		msg := q.queue[0]
		q.queue = q.queue[1:]
		q.mu.Unlock()
		return msg, nil
	}
	q.mu.Unlock()

	select {
	case <-q.drained:
	default:
		close(q.drained)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (q *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.committed = append(q.committed, msgs...)
	return nil
}

type replySink struct {
	mu       sync.Mutex
	msgs     []kafka.Message
	failures int
}

func (s *replySink) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("leader not available")
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

// --- Helpers ---

func request(offset int64, value string) kafka.Message {
	return kafka.Message{Offset: offset, Value: []byte(value)}
}

func runUntilDrained(t *testing.T, r *Responder, reader *queueReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("responder did not drain the queue")
	}
	cancel()
	require.NoError(t, <-done)
}

// --- Tests ---

func TestAnswer(t *testing.T) {
	stock := stockMap{levels: map[string]int{"p1": 10}}

	tests := []struct {
		name    string
		req     Request
		wantOK  bool
		inStock bool
	}{
		{name: "plenty", req: Request{ProductID: "p1", Quantity: 3}, wantOK: true, inStock: true},
		{name: "exactly the stock", req: Request{ProductID: "p1", Quantity: 10}, wantOK: true, inStock: false},
		{name: "too many", req: Request{ProductID: "p1", Quantity: 11}, wantOK: true, inStock: false},
		{name: "unknown product", req: Request{ProductID: "nope", Quantity: 1}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, ok, err := Answer(context.Background(), stock, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, Reply{ProductID: tt.req.ProductID, Quantity: tt.req.Quantity, InStock: tt.inStock}, reply)
			}
		})
	}

	cause := errors.New("db down")
	_, _, err := Answer(context.Background(), stockMap{err: cause}, Request{ProductID: "p1"})
	require.ErrorIs(t, err, cause)
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"productId":"p1","quantity":4,"cartId":"c9"}`))
	require.NoError(t, err)
	assert.Equal(t, Request{ProductID: "p1", Quantity: 4}, req)

	for _, bad := range []string{`{}`, `{"productId":"p1"}`, `{"quantity":2}`, `{"productId":1,"quantity":2}`, `nope`} {
		_, err := DecodeRequest([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestReplyEncode(t *testing.T) {
	assert.JSONEq(t,
		`{"productId":"p1","quantity":2,"inStock":true}`,
		string(Reply{ProductID: "p1", Quantity: 2, InStock: true}.Encode()),
	)
}

func TestResponder_Run(t *testing.T) {
	reader := newQueueReader(
		request(1, `{"productId":"p1","quantity":2}`),
		request(2, `garbage`),
		request(3, `{"productId":"ghost","quantity":1}`),
		request(4, `{"productId":"p2","quantity":5}`),
	)
	reader.fetchErrs = []error{errors.New("rebalance in progress")}
	sink := &replySink{failures: 1}
	stock := stockMap{levels: map[string]int{"p1": 5, "p2": 5}}

	r := NewResponder(reader, sink, stock, zap.NewNop(), ResponderConfig{RetryDelay: time.Millisecond})
	runUntilDrained(t, r, reader)

	require.Len(t, sink.msgs, 2)
	assert.Equal(t, "p1", string(sink.msgs[0].Key))
	assert.JSONEq(t, `{"productId":"p1","quantity":2,"inStock":true}`, string(sink.msgs[0].Value))
	assert.Equal(t, "p2", string(sink.msgs[1].Key))
	assert.JSONEq(t, `{"productId":"p2","quantity":5,"inStock":false}`, string(sink.msgs[1].Value))

	offsets := make([]int64, 0, len(reader.committed))
	for _, m := range reader.committed {
		offsets = append(offsets, m.Offset)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, offsets)
}

func TestResponder_StopsOnCancel(t *testing.T) {
	reader := newQueueReader()
	r := NewResponder(reader, &replySink{}, stockMap{}, zap.NewNop(), ResponderConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
}
