package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster publica no Pub/Sub lido pelo hub WebSocket do ledger-service
type RedisBroadcaster struct {
	r *redis.Client
}

func NewRedisBroadcaster(r *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{r: r}
}

// Publish devolve quantos assinantes receberam a mensagem
func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return b.r.Publish(ctx, channel, payload).Result()
}
