package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidOption     = errors.New("invalid option")
)

// EventAdmin é a capacidade usada pela ferramenta externa de administração de eventos
type EventAdmin interface {
	CreateEvent(ctx context.Context, title, option1, option2 string) (Event, error)
	GetEvent(ctx context.Context, eventID int64) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
}

var _ EventAdmin = (*Store)(nil)

// Store implementa o ledger (contas, eventos, palpites e extrato) sobre um pool sqlx
type Store struct {
	db  *sqlx.DB
	d   dialect
	now func() time.Time
}

// NewStore recebe o pool aberto no início do processo
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:  db,
		d:   dialectFor(db.DriverName()),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema cria tabelas, índices e triggers que ainda não existem
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ResolveAccount cria a conta no primeiro acesso (saldo inicial + referrer) ou atualiza o username
// Retorna a conta e se ela foi criada nesta chamada
func (s *Store) ResolveAccount(ctx context.Context, userID int64, username string, referrer *int64) (Account, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Account{}, false, err
	}
	defer tx.Rollback()

	// ON CONFLICT garante uma única linha mesmo com dois primeiros acessos concorrentes
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO users (user_id, username, balance, referred_by, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`),
		userID, username, StartingBalance, referrer, s.now())
	if err != nil {
		return Account{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Account{}, false, err
	}
	created := n == 1

	if created {
		if err = s.journal(ctx, tx, userID, OpSignupBonus, StartingBalance, nil, nil); err != nil {
			return Account{}, false, err
		}
	} else {
		// referred_by nunca é alterado depois da criação
		if _, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET username = ? WHERE user_id = ?`), username, userID); err != nil {
			return Account{}, false, err
		}
	}

	var acc Account
	if err = tx.GetContext(ctx, &acc, tx.Rebind(`
		SELECT user_id, username, balance, referred_by FROM users WHERE user_id = ?`), userID); err != nil {
		return Account{}, false, err
	}

	if err = tx.Commit(); err != nil {
		return Account{}, false, err
	}
	return acc, created, nil
}

// GetAccount retorna a conta ou ErrNotFound
func (s *Store) GetAccount(ctx context.Context, userID int64) (Account, error) {
	var acc Account
	err := s.db.GetContext(ctx, &acc, s.db.Rebind(`
		SELECT user_id, username, balance, referred_by FROM users WHERE user_id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %d: %w", userID, ErrNotFound)
	}
	return acc, err
}

// PlaceStake debita o custo fixo e registra o palpite na mesma transação
// O débito é condicional (balance >= custo), então checagem e débito são atômicos por conta
func (s *Store) PlaceStake(ctx context.Context, userID, eventID int64, optionID int) (Stake, int64, error) {
	if !ValidOption(optionID) {
		return Stake{}, 0, fmt.Errorf("option %d: %w", optionID, ErrInvalidOption)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Stake{}, 0, err
	}
	defer tx.Rollback()

	// lock compartilhado: um encerramento concorrente espera este palpite (e vice-versa)
	var status EventStatus
	err = tx.GetContext(ctx, &status, tx.Rebind(`SELECT status FROM events WHERE id = ?`+s.d.forShare), eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return Stake{}, 0, fmt.Errorf("event %d: %w", eventID, ErrNotFound)
	} else if err != nil {
		return Stake{}, 0, err
	}
	if status != EventActive {
		return Stake{}, 0, fmt.Errorf("event %d is %s: %w", eventID, status, ErrInvalidState)
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE users SET balance = balance - ? WHERE user_id = ? AND balance >= ?`),
		StakeCost, userID, StakeCost)
	if err != nil {
		return Stake{}, 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Stake{}, 0, err
	}
	if n == 0 {
		var exists int
		err = tx.GetContext(ctx, &exists, tx.Rebind(`SELECT 1 FROM users WHERE user_id = ?`), userID)
		if errors.Is(err, sql.ErrNoRows) {
			return Stake{}, 0, fmt.Errorf("account %d: %w", userID, ErrNotFound)
		} else if err != nil {
			return Stake{}, 0, err
		}
		return Stake{}, 0, ErrInsufficientFunds
	}

	var newBalance int64
	if err = tx.GetContext(ctx, &newBalance, tx.Rebind(`SELECT balance FROM users WHERE user_id = ?`), userID); err != nil {
		return Stake{}, 0, err
	}

	stake := Stake{UserID: userID, EventID: eventID, OptionID: optionID, CreatedAt: s.now()}
	if err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO predictions (user_id, event_id, option_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`),
		stake.UserID, stake.EventID, stake.OptionID, stake.CreatedAt).Scan(&stake.ID); err != nil {
		return Stake{}, 0, err
	}

	if err = s.journal(ctx, tx, userID, OpStake, -StakeCost, &stake.ID, &eventID); err != nil {
		return Stake{}, 0, err
	}

	if err = tx.Commit(); err != nil {
		return Stake{}, 0, err
	}
	return stake, newBalance, nil
}

// Settle encerra o evento e paga WinPayout por palpite vencedor, tudo em uma transação
// A transição active -> finished é condicional: um segundo encerramento falha com ErrInvalidState
func (s *Store) Settle(ctx context.Context, eventID int64, winnerOption int) (Settlement, error) {
	if !ValidOption(winnerOption) {
		return Settlement{}, fmt.Errorf("option %d: %w", winnerOption, ErrInvalidOption)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Settlement{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE events SET status = ?, winner_option = ? WHERE id = ? AND status = ?`),
		EventFinished, winnerOption, eventID, EventActive)
	if err != nil {
		return Settlement{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Settlement{}, err
	}
	if n == 0 {
		var status EventStatus
		err = tx.GetContext(ctx, &status, tx.Rebind(`SELECT status FROM events WHERE id = ?`), eventID)
		if errors.Is(err, sql.ErrNoRows) {
			return Settlement{}, fmt.Errorf("event %d: %w", eventID, ErrNotFound)
		} else if err != nil {
			return Settlement{}, err
		}
		return Settlement{}, fmt.Errorf("event %d is %s: %w", eventID, status, ErrInvalidState)
	}

	out := Settlement{}
	if err = tx.GetContext(ctx, &out.Event, tx.Rebind(`
		SELECT id, title, option_1, option_2, status, winner_option FROM events WHERE id = ?`), eventID); err != nil {
		return Settlement{}, err
	}

	// ordem crescente de user_id: encerramentos concorrentes travam contas na mesma ordem
	if err = tx.SelectContext(ctx, &out.Payouts, tx.Rebind(`
		SELECT user_id, COUNT(*) AS stakes
		FROM predictions
		WHERE event_id = ? AND option_id = ?
		GROUP BY user_id
		ORDER BY user_id`), eventID, winnerOption); err != nil {
		return Settlement{}, err
	}

	for i := range out.Payouts {
		p := &out.Payouts[i]
		p.Amount = p.Stakes * WinPayout
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET balance = balance + ? WHERE user_id = ?`), p.Amount, p.UserID)
		if err != nil {
			return Settlement{}, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return Settlement{}, err
		} else if n != 1 {
			return Settlement{}, fmt.Errorf("credit account %d: %w", p.UserID, ErrNotFound)
		}
		out.WinnersPaid += int(p.Stakes)
		out.PointsPaid += p.Amount
	}

	// uma linha PAYOUT por palpite vencedor
	if _, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO balance_ledger (user_id, operation_type, amount, prediction_id, event_id, created_at)
		SELECT user_id, ?, ?, id, event_id, ?
		FROM predictions
		WHERE event_id = ? AND option_id = ?`),
		OpPayout, WinPayout, s.now(), eventID, winnerOption); err != nil {
		return Settlement{}, err
	}

	if err = tx.Commit(); err != nil {
		return Settlement{}, err
	}
	return out, nil
}

// History lista os palpites do usuário, mais recentes primeiro
func (s *Store) History(ctx context.Context, userID int64) ([]HistoryRow, error) {
	var out []HistoryRow
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT p.id AS stake_id, e.id AS event_id, e.title, p.option_id,
		       e.option_1, e.option_2, e.status, e.winner_option, p.created_at
		FROM predictions p
		JOIN events e ON e.id = p.event_id
		WHERE p.user_id = ?
		ORDER BY p.created_at DESC, p.id DESC`), userID)
	return out, err
}

// Leaderboard retorna as contas de maior saldo; empate desempata por user_id crescente
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var out []LeaderboardRow
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT user_id, username, balance
		FROM users
		ORDER BY balance DESC, user_id ASC
		LIMIT ?`), limit)
	return out, err
}

// ActiveEvents lista eventos abertos para palpites, ordenados por id
func (s *Store) ActiveEvents(ctx context.Context) ([]Event, error) {
	var out []Event
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT id, title, option_1, option_2, status, winner_option
		FROM events
		WHERE status = ?
		ORDER BY id`), EventActive)
	return out, err
}

// Statement retorna o extrato da conta, mais recente primeiro
func (s *Store) Statement(ctx context.Context, userID int64, limit int) ([]LedgerEntry, error) {
	var out []LedgerEntry
	err := s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT id, user_id, operation_type, amount, prediction_id, event_id, created_at
		FROM balance_ledger
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?`), userID, limit)
	return out, err
}

// CreateEvent insere um evento ativo
func (s *Store) CreateEvent(ctx context.Context, title, option1, option2 string) (Event, error) {
	ev := Event{Title: title, Option1: option1, Option2: option2, Status: EventActive}
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO events (title, option_1, option_2, status)
		VALUES (?, ?, ?, ?)
		RETURNING id`), title, option1, option2, EventActive).Scan(&ev.ID)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (s *Store) GetEvent(ctx context.Context, eventID int64) (Event, error) {
	var ev Event
	err := s.db.GetContext(ctx, &ev, s.db.Rebind(`
		SELECT id, title, option_1, option_2, status, winner_option FROM events WHERE id = ?`), eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("event %d: %w", eventID, ErrNotFound)
	}
	return ev, err
}

func (s *Store) ListEvents(ctx context.Context) ([]Event, error) {
	var out []Event
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, title, option_1, option_2, status, winner_option FROM events ORDER BY id`)
	return out, err
}

func (s *Store) journal(ctx context.Context, tx *sqlx.Tx, userID int64, op string, amount int64, predictionID, eventID *int64) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO balance_ledger (user_id, operation_type, amount, prediction_id, event_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		userID, op, amount, predictionID, eventID, s.now())
	return err
}
