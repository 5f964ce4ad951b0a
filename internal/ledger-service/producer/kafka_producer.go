package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/radieske/prediction-ledger/internal/shared/kafka"
	"github.com/radieske/prediction-ledger/pkg/contracts/events"
)

type MessageWriter = kafka.MessageWriter

// KafkaPublisher publica os eventos de domínio do ledger, um writer por tópico
type KafkaPublisher struct {
	Stakes      MessageWriter
	Settlements MessageWriter
}

func NewKafkaPublisher(stakes, settlements MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Stakes: stakes, Settlements: settlements}
}

// PublishStakePlaced usa o user_id como key: palpites do mesmo usuário ficam ordenados na partição
func (p *KafkaPublisher) PublishStakePlaced(ctx context.Context, e events.StakePlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, p.Stakes, strconv.FormatInt(e.UserID, 10), b)
}

func (p *KafkaPublisher) PublishEventSettled(ctx context.Context, e events.EventSettled) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, p.Settlements, strconv.FormatInt(e.EventID, 10), b)
}
