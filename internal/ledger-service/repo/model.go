package repo

import "time"

// Regras fixas do ledger (pontos inteiros, sem pool)
const (
	StartingBalance int64 = 500
	StakeCost       int64 = 100
	WinPayout       int64 = 200
)

const (
	OptionOne = 1
	OptionTwo = 2
)

// ValidOption indica se o id de opção pertence a um evento binário
func ValidOption(optionID int) bool { return optionID == OptionOne || optionID == OptionTwo }

type EventStatus string

const (
	EventActive   EventStatus = "active"
	EventFinished EventStatus = "finished"
)

// Operações gravadas em balance_ledger
const (
	OpSignupBonus = "SIGNUP_BONUS"
	OpStake       = "STAKE"
	OpPayout      = "PAYOUT"
)

// Account é a conta do usuário, chaveada pelo id externo (ex.: id do Telegram)
type Account struct {
	UserID     int64  `db:"user_id"`
	Username   string `db:"username"`
	Balance    int64  `db:"balance"`
	ReferredBy *int64 `db:"referred_by"`
}

// Event é um evento binário; criado pela ferramenta de administração
type Event struct {
	ID           int64       `db:"id"`
	Title        string      `db:"title"`
	Option1      string      `db:"option_1"`
	Option2      string      `db:"option_2"`
	Status       EventStatus `db:"status"`
	WinnerOption *int        `db:"winner_option"`
}

// OptionLabel devolve o rótulo da opção 1 ou 2
func (e Event) OptionLabel(optionID int) string {
	switch optionID {
	case OptionOne:
		return e.Option1
	case OptionTwo:
		return e.Option2
	}
	return ""
}

// Stake é um palpite imutável
type Stake struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	EventID   int64     `db:"event_id"`
	OptionID  int       `db:"option_id"`
	CreatedAt time.Time `db:"created_at"`
}

// HistoryRow junta o palpite com o estado atual do evento
type HistoryRow struct {
	StakeID      int64       `db:"stake_id"`
	EventID      int64       `db:"event_id"`
	Title        string      `db:"title"`
	OptionID     int         `db:"option_id"`
	Option1      string      `db:"option_1"`
	Option2      string      `db:"option_2"`
	Status       EventStatus `db:"status"`
	WinnerOption *int        `db:"winner_option"`
	CreatedAt    time.Time   `db:"created_at"`
}

type LeaderboardRow struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
	Balance  int64  `db:"balance"`
}

// LedgerEntry é uma movimentação de saldo
type LedgerEntry struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	OperationType string    `db:"operation_type"`
	Amount        int64     `db:"amount"`
	PredictionID  *int64    `db:"prediction_id"`
	EventID       *int64    `db:"event_id"`
	CreatedAt     time.Time `db:"created_at"`
}

// Payout agrega os palpites vencedores de uma conta
type Payout struct {
	UserID int64 `db:"user_id"`
	Stakes int64 `db:"stakes"`
	Amount int64 `db:"-"`
}

// Settlement é o resultado de um encerramento
type Settlement struct {
	Event       Event
	WinnersPaid int // palpites vencedores pagos
	PointsPaid  int64
	Payouts     []Payout
}
