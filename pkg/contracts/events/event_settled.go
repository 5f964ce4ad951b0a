package events

import "time"

// Evento publicado no tópico "event_settled" quando um evento é encerrado
type EventSettled struct {
	MessageID    string    `json:"messageId"`
	EventID      int64     `json:"eventId"`
	Title        string    `json:"title"`
	WinnerOption int       `json:"winnerOption"`
	WinnerLabel  string    `json:"winnerLabel"`
	WinnersPaid  int       `json:"winnersPaid"`
	AccountsPaid int       `json:"accountsPaid"`
	PointsPaid   int64     `json:"pointsPaid"`
	Ts           time.Time `json:"ts"`
}
