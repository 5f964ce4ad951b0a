package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/prediction-ledger/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal de encerramentos e repassa cada resultado ao Hub.
// Retorna depois que a inscrição está ativa; a goroutine termina com o contexto
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) error {
	sub := r.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e events.EventSettled
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					log.Warn("ws subscriber unmarshal", zap.String("channel", channel), zap.Error(err))
					continue
				}
				hub.Broadcast(e)
			}
		}
	}()
	return nil
}
