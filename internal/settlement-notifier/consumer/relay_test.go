package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radieske/prediction-ledger/internal/shared/kafka"
	"github.com/radieske/prediction-ledger/pkg/contracts/events"
)

// fakeReader entrega as mensagens em ordem e bloqueia quando a fila acaba
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	failures int // falhas antes do primeiro sucesso
	payloads [][]byte
	channels []string
}

func (b *fakeBroadcaster) Publish(_ context.Context, channel string, payload []byte) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures > 0 {
		b.failures--
		return 0, errors.New("redis down")
	}
	b.channels = append(b.channels, channel)
	b.payloads = append(b.payloads, payload)
	return 1, nil
}

func (b *fakeBroadcaster) published() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.payloads...)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func settledMsg(t *testing.T, offset int64, e events.EventSettled) kafka.Message {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("k"), Value: b, Offset: offset}
}

// runUntil executa o relay até a condição valer e devolve o erro de Run
func runUntil(t *testing.T, r *Relay, cond func() bool) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
		return nil
	}
}

func TestRelayPublishesAndCommits(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		settledMsg(t, 10, events.EventSettled{EventID: 3, Title: "Final", WinnerOption: 1, WinnersPaid: 2}),
		settledMsg(t, 11, events.EventSettled{EventID: 4}),
	}}
	bc := &fakeBroadcaster{}
	var consumed, relayed int
	r := &Relay{
		Log:         zaptest.NewLogger(t),
		Reader:      reader,
		Broadcaster: bc,
		Channel:     "event_settled_broadcast",
		OnConsumed:  func() { consumed++ },
		OnRelayed:   func() { relayed++ },
	}

	err := runUntil(t, r, func() bool { return len(reader.commits()) == 2 })
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []int64{10, 11}, reader.commits())
	got := bc.published()
	require.Len(t, got, 2)
	var first events.EventSettled
	require.NoError(t, json.Unmarshal(got[0], &first))
	assert.Equal(t, int64(3), first.EventID)
	assert.Equal(t, "Final", first.Title)
	assert.Equal(t, []string{"event_settled_broadcast", "event_settled_broadcast"}, bc.channels)
	assert.Equal(t, 2, consumed)
	assert.Equal(t, 2, relayed)
}

func TestRelayRetriesPublish(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{settledMsg(t, 1, events.EventSettled{EventID: 9})}}
	bc := &fakeBroadcaster{failures: 2}
	stages := map[string]int{}
	var mu sync.Mutex
	r := &Relay{
		Log:         zaptest.NewLogger(t),
		Reader:      reader,
		Broadcaster: bc,
		Channel:     "c",
		Backoff:     time.Millisecond,
		OnError: func(s string) {
			mu.Lock()
			stages[s]++
			mu.Unlock()
		},
	}

	_ = runUntil(t, r, func() bool { return len(reader.commits()) == 1 })
	assert.Len(t, bc.published(), 1)
	mu.Lock()
	assert.Equal(t, 2, stages["publish"])
	mu.Unlock()
}

func TestRelaySendsUndeliverableToDLQ(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Key: []byte("bad"), Value: []byte("{"), Offset: 1},
		settledMsg(t, 2, events.EventSettled{EventID: 0}),
		settledMsg(t, 3, events.EventSettled{EventID: 5}),
	}}
	bc := &fakeBroadcaster{failures: 3}
	dlq := &fakeWriter{}
	var dead int
	r := &Relay{
		Log:         zaptest.NewLogger(t),
		Reader:      reader,
		Broadcaster: bc,
		DLQ:         dlq,
		Channel:     "c",
		Attempts:    3,
		Backoff:     time.Millisecond,
		OnDLQ:       func() { dead++ },
	}

	_ = runUntil(t, r, func() bool { return len(reader.commits()) == 3 })

	// malformada, sem event id e publish esgotado: as três vão para a DLQ
	msgs := dlq.written()
	require.Len(t, msgs, 3)
	assert.Equal(t, "bad", string(msgs[0].Key))
	assert.Equal(t, []byte("{"), msgs[0].Value)
	assert.Equal(t, 3, dead)
	assert.Empty(t, bc.published())
}

func TestRelayWithoutDLQ(t *testing.T) {
	t.Run("malformed is dropped and committed", func(t *testing.T) {
		reader := &fakeReader{queue: []kafka.Message{{Value: []byte("nope"), Offset: 7}}}
		r := &Relay{Log: zaptest.NewLogger(t), Reader: reader, Broadcaster: &fakeBroadcaster{}, Channel: "c"}

		_ = runUntil(t, r, func() bool { return len(reader.commits()) == 1 })
		assert.Equal(t, []int64{7}, reader.commits())
	})

	t.Run("failed message is retried before the next one", func(t *testing.T) {
		reader := &fakeReader{queue: []kafka.Message{
			settledMsg(t, 8, events.EventSettled{EventID: 2}),
			settledMsg(t, 9, events.EventSettled{EventID: 3}),
		}}
		bc := &fakeBroadcaster{failures: 2}
		r := &Relay{Log: zaptest.NewLogger(t), Reader: reader, Broadcaster: bc, Channel: "c", Attempts: 1, Backoff: time.Millisecond}

		_ = runUntil(t, r, func() bool { return len(reader.commits()) == 2 })

		assert.Equal(t, []int64{8, 9}, reader.commits())
		got := bc.published()
		require.Len(t, got, 2)
		var first, second events.EventSettled
		require.NoError(t, json.Unmarshal(got[0], &first))
		require.NoError(t, json.Unmarshal(got[1], &second))
		assert.Equal(t, int64(2), first.EventID)
		assert.Equal(t, int64(3), second.EventID)
	})

	t.Run("publish failure is not committed", func(t *testing.T) {
		reader := &fakeReader{queue: []kafka.Message{settledMsg(t, 8, events.EventSettled{EventID: 2})}}
		bc := &fakeBroadcaster{failures: 1000}
		r := &Relay{Log: zaptest.NewLogger(t), Reader: reader, Broadcaster: bc, Channel: "c", Attempts: 1, Backoff: time.Millisecond}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := r.Run(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Empty(t, reader.commits())
	})
}

func TestDecode(t *testing.T) {
	_, _, err := decode([]byte(`{"eventId":0}`))
	assert.ErrorIs(t, err, errMalformed)

	ev, payload, err := decode([]byte(`{"eventId":12,"winnerLabel":"Home","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, int64(12), ev.EventID)
	assert.NotContains(t, string(payload), "extra")
}
