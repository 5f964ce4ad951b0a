package dto

import "time"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse carrega o kind estável (máquina) e a mensagem (humano)
type ErrorResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type UserResponse struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

type PredictResponse struct {
	Status     string `json:"status"`
	StakeID    int64  `json:"stake_id"`
	NewBalance int64  `json:"new_balance"`
}

type HistoryItem struct {
	EventID      int64     `json:"event_id"`
	EventTitle   string    `json:"event_title"`
	OptionID     int       `json:"option_id"`
	ChosenOption string    `json:"chosen_option"`
	Result       string    `json:"result"` // pending | won | lost
	PlacedAt     time.Time `json:"placed_at"`
}

type LedgerEntry struct {
	ID            int64     `json:"id"`
	OperationType string    `json:"operation_type"`
	Amount        int64     `json:"amount"`
	PredictionID  *int64    `json:"prediction_id,omitempty"`
	EventID       *int64    `json:"event_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type SettleResponse struct {
	Status       string `json:"status"`
	EventID      int64  `json:"event_id"`
	WinnerOption int    `json:"winner_option"`
	WinnersPaid  int    `json:"winners_paid"`
	AccountsPaid int    `json:"accounts_paid"`
	PointsPaid   int64  `json:"points_paid"`
}
