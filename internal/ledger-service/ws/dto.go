package ws

import "github.com/radieske/prediction-ledger/pkg/contracts/events"

const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgPing        = "ping"
	MsgPong        = "pong"
	MsgSettled     = "settled"
)

// ClientMsg representa uma mensagem recebida do cliente WebSocket.
// EventID 0 em subscribe/unsubscribe significa todos os eventos
type ClientMsg struct {
	Type    string `json:"type"`
	EventID int64  `json:"eventId"`
}

// SettlementUpdate é o resultado de um evento enviado aos inscritos
type SettlementUpdate struct {
	Type    string              `json:"type"`
	EventID int64               `json:"eventId"`
	Payload events.EventSettled `json:"payload"`
}
