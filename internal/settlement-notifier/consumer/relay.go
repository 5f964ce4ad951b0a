package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/prediction-ledger/internal/shared/kafka"
	"github.com/radieske/prediction-ledger/pkg/contracts/events"
)

var errMalformed = errors.New("malformed event_settled")

// Broadcaster publica o payload num canal Pub/Sub
type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// Relay consome event_settled do Kafka e repassa ao canal Redis lido pelo hub WebSocket.
// Mensagens que não podem ser entregues vão para a DLQ; o offset só é confirmado
// depois da entrega ou da DLQ
type Relay struct {
	Log         *zap.Logger
	Reader      kafka.MessageReader
	Broadcaster Broadcaster
	DLQ         kafka.MessageWriter // opcional
	Channel     string

	Attempts int           // tentativas de publish, default 3
	Backoff  time.Duration // espera entre tentativas, default 200ms

	OnConsumed func()       // métricas (counter++)
	OnRelayed  func()       // métricas
	OnDLQ      func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop de consumo até o contexto ser cancelado
func (r *Relay) Run(ctx context.Context) error {
	for {
		m, err := r.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Log.Warn("kafka fetch failed", zap.Error(err))
			r.fail("read")
			if !sleep(ctx, 500*time.Millisecond) {
				return ctx.Err()
			}
			continue
		}
		if r.OnConsumed != nil {
			r.OnConsumed()
		}

		// FetchMessage não devolve de novo uma mensagem não confirmada:
		// insiste na mesma até entregar, senão o próximo commit pularia o offset
		for {
			err := r.handle(ctx, m)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Log.Error("relay failed, retrying same message",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
			if !sleep(ctx, r.backoff()) {
				return ctx.Err()
			}
		}

		if err := r.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			r.fail("commit")
		}
	}
}

// handle entrega a mensagem ao Pub/Sub ou, se impossível, à DLQ
func (r *Relay) handle(ctx context.Context, m kafka.Message) error {
	ev, payload, err := decode(m.Value)
	if err != nil {
		r.Log.Warn("invalid message", zap.Int64("offset", m.Offset), zap.Error(err))
		r.fail("decode")
		return r.deadLetter(ctx, m, err)
	}

	var lastErr error
	for attempt := 1; attempt <= r.attempts(); attempt++ {
		n, err := r.Broadcaster.Publish(ctx, r.Channel, payload)
		if err == nil {
			r.Log.Info("settlement relayed",
				zap.Int64("event_id", ev.EventID),
				zap.String("message_id", ev.MessageID),
				zap.Int64("receivers", n),
			)
			if r.OnRelayed != nil {
				r.OnRelayed()
			}
			return nil
		}
		lastErr = err
		r.Log.Warn("redis publish failed", zap.Int64("event_id", ev.EventID), zap.Int("attempt", attempt), zap.Error(err))
		r.fail("publish")
		if attempt < r.attempts() && !sleep(ctx, r.backoff()) {
			return ctx.Err()
		}
	}
	return r.deadLetter(ctx, m, lastErr)
}

func (r *Relay) deadLetter(ctx context.Context, m kafka.Message, cause error) error {
	if r.DLQ == nil {
		if errors.Is(cause, errMalformed) {
			// mensagem ruim nunca será entregue, descartar libera a partição
			return nil
		}
		return cause
	}
	if err := kafka.WriteJSON(ctx, r.DLQ, string(m.Key), m.Value); err != nil {
		r.fail("dlq")
		return fmt.Errorf("dlq write: %w (cause: %v)", err, cause)
	}
	r.Log.Warn("message sent to dlq",
		zap.String("key", string(m.Key)),
		zap.Int64("offset", m.Offset),
		zap.String("cause", cause.Error()),
	)
	if r.OnDLQ != nil {
		r.OnDLQ()
	}
	return nil
}

// decode valida a mensagem e devolve o payload normalizado para o hub
func decode(raw []byte) (events.EventSettled, []byte, error) {
	var ev events.EventSettled
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if ev.EventID <= 0 {
		return ev, nil, fmt.Errorf("%w: event id %s", errMalformed, strconv.FormatInt(ev.EventID, 10))
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return ev, nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return ev, b, nil
}

func (r *Relay) fail(stage string) {
	if r.OnError != nil {
		r.OnError(stage)
	}
}

func (r *Relay) attempts() int {
	if r.Attempts <= 0 {
		return 3
	}
	return r.Attempts
}

func (r *Relay) backoff() time.Duration {
	if r.Backoff <= 0 {
		return 200 * time.Millisecond
	}
	return r.Backoff
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
