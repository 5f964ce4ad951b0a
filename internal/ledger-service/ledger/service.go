package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/prediction-ledger/internal/ledger-service/metrics"
	"github.com/radieske/prediction-ledger/internal/ledger-service/repo"
	"github.com/radieske/prediction-ledger/pkg/contracts/events"
)

const (
	LeaderboardSize = 10
	StatementSize   = 50
)

const (
	ResultPending = "pending"
	ResultWon     = "won"
	ResultLost    = "lost"
)

// Store define as operações de persistência usadas pelo serviço
type Store interface {
	ResolveAccount(ctx context.Context, userID int64, username string, referrer *int64) (repo.Account, bool, error)
	GetAccount(ctx context.Context, userID int64) (repo.Account, error)
	PlaceStake(ctx context.Context, userID, eventID int64, optionID int) (repo.Stake, int64, error)
	Settle(ctx context.Context, eventID int64, winnerOption int) (repo.Settlement, error)
	History(ctx context.Context, userID int64) ([]repo.HistoryRow, error)
	Leaderboard(ctx context.Context, limit int) ([]repo.LeaderboardRow, error)
	ActiveEvents(ctx context.Context) ([]repo.Event, error)
	Statement(ctx context.Context, userID int64, limit int) ([]repo.LedgerEntry, error)
}

// Cache guarda as projeções de leitura mais consultadas
type Cache interface {
	GetActiveEvents(ctx context.Context, dst any) (bool, error)
	SetActiveEvents(ctx context.Context, v any) error
	GetLeaderboard(ctx context.Context, dst any) (bool, error)
	SetLeaderboard(ctx context.Context, v any) error
	InvalidateActiveEvents(ctx context.Context) error
	InvalidateLeaderboard(ctx context.Context) error
}

// Publisher publica eventos de domínio depois do commit
type Publisher interface {
	PublishStakePlaced(ctx context.Context, e events.StakePlaced) error
	PublishEventSettled(ctx context.Context, e events.EventSettled) error
}

type Option struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type EventView struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Options []Option `json:"options"`
}

type HistoryEntry struct {
	StakeID      int64
	EventID      int64
	EventTitle   string
	OptionID     int
	ChosenOption string
	Result       string
	PlacedAt     time.Time
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}

type StakeReceipt struct {
	StakeID    int64
	EventID    int64
	OptionID   int
	NewBalance int64
}

type SettlementResult struct {
	EventID      int64
	WinnerOption int
	WinnersPaid  int
	AccountsPaid int
	PointsPaid   int64
}

// Service concentra as regras do ledger: contas, palpites, encerramento e relatórios
type Service struct {
	log   *zap.Logger
	store Store
	cache Cache
	pub   Publisher
}

// NewService instancia o serviço; cache e publisher são opcionais
func NewService(log *zap.Logger, store Store, cache Cache, pub Publisher) *Service {
	if cache == nil {
		cache = nopCache{}
	}
	if pub == nil {
		pub = nopPublisher{}
	}
	return &Service{log: log, store: store, cache: cache, pub: pub}
}

// Resolve cria a conta no primeiro acesso ou atualiza o username, devolvendo a conta
func (s *Service) Resolve(ctx context.Context, userID int64, username string, referrer *int64) (repo.Account, error) {
	start := time.Now()
	acc, created, err := s.store.ResolveAccount(ctx, userID, username, referrer)
	metrics.RecordOp("resolve", resultLabel(err), start)
	if err != nil {
		s.log.Error("resolve account", zap.Int64("user_id", userID), zap.Error(err))
		return repo.Account{}, fmt.Errorf("resolve account %d: %w", userID, err)
	}

	if created {
		metrics.RecordAccountCreated()
		s.log.Info("account created",
			zap.Int64("user_id", userID),
			zap.Int64("balance", acc.Balance),
			zap.Int64p("referred_by", acc.ReferredBy),
		)
		s.invalidateLeaderboard(ctx)
	}
	return acc, nil
}

// PlaceStake debita o custo fixo e grava o palpite
func (s *Service) PlaceStake(ctx context.Context, userID, eventID int64, optionID int) (StakeReceipt, error) {
	start := time.Now()
	stake, newBalance, err := s.store.PlaceStake(ctx, userID, eventID, optionID)
	metrics.RecordOp("place_stake", resultLabel(err), start)
	if err != nil {
		fields := []zap.Field{
			zap.Int64("user_id", userID),
			zap.Int64("event_id", eventID),
			zap.Int("option_id", optionID),
			zap.Error(err),
		}
		if KindOf(err) == KindStorage {
			s.log.Error("place stake", fields...)
		} else {
			s.log.Info("stake rejected", append(fields, zap.String("kind", string(KindOf(err))))...)
		}
		return StakeReceipt{}, fmt.Errorf("place stake: %w", err)
	}

	metrics.RecordStakeDebit(repo.StakeCost)
	s.log.Info("stake placed",
		zap.Int64("stake_id", stake.ID),
		zap.Int64("user_id", userID),
		zap.Int64("event_id", eventID),
		zap.Int("option_id", optionID),
		zap.Int64("new_balance", newBalance),
	)
	s.invalidateLeaderboard(ctx)

	if perr := s.pub.PublishStakePlaced(ctx, events.StakePlaced{
		MessageID:  uuid.NewString(),
		StakeID:    stake.ID,
		UserID:     userID,
		EventID:    eventID,
		OptionID:   optionID,
		Cost:       repo.StakeCost,
		NewBalance: newBalance,
	}); perr != nil {
		s.log.Warn("publish stake_placed failed", zap.Int64("stake_id", stake.ID), zap.Error(perr))
	}

	return StakeReceipt{StakeID: stake.ID, EventID: eventID, OptionID: optionID, NewBalance: newBalance}, nil
}

// Settle encerra o evento e paga os palpites vencedores
func (s *Service) Settle(ctx context.Context, eventID int64, winnerOption int) (SettlementResult, error) {
	start := time.Now()
	st, err := s.store.Settle(ctx, eventID, winnerOption)
	metrics.RecordOp("settle", resultLabel(err), start)
	if err != nil {
		s.log.Error("settle event",
			zap.Int64("event_id", eventID),
			zap.Int("winner_option", winnerOption),
			zap.String("kind", string(KindOf(err))),
			zap.Error(err),
		)
		return SettlementResult{}, fmt.Errorf("settle event %d: %w", eventID, err)
	}

	metrics.RecordPayout(st.PointsPaid)
	res := SettlementResult{
		EventID:      eventID,
		WinnerOption: winnerOption,
		WinnersPaid:  st.WinnersPaid,
		AccountsPaid: len(st.Payouts),
		PointsPaid:   st.PointsPaid,
	}
	s.log.Info("event settled",
		zap.Int64("event_id", eventID),
		zap.Int("winner_option", winnerOption),
		zap.Int("winners_paid", res.WinnersPaid),
		zap.Int("accounts_paid", res.AccountsPaid),
		zap.Int64("points_paid", res.PointsPaid),
	)

	s.invalidateActiveEvents(ctx)
	s.invalidateLeaderboard(ctx)

	if perr := s.pub.PublishEventSettled(ctx, events.EventSettled{
		MessageID:    uuid.NewString(),
		EventID:      eventID,
		Title:        st.Event.Title,
		WinnerOption: winnerOption,
		WinnerLabel:  st.Event.OptionLabel(winnerOption),
		WinnersPaid:  res.WinnersPaid,
		AccountsPaid: res.AccountsPaid,
		PointsPaid:   res.PointsPaid,
		Ts:           time.Now().UTC(),
	}); perr != nil {
		s.log.Warn("publish event_settled failed", zap.Int64("event_id", eventID), zap.Error(perr))
	}

	return res, nil
}

// History projeta os palpites do usuário com o resultado atual de cada evento
func (s *Service) History(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	rows, err := s.store.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("history %d: %w", userID, err)
	}

	out := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		ev := repo.Event{Option1: r.Option1, Option2: r.Option2}
		out = append(out, HistoryEntry{
			StakeID:      r.StakeID,
			EventID:      r.EventID,
			EventTitle:   r.Title,
			OptionID:     r.OptionID,
			ChosenOption: ev.OptionLabel(r.OptionID),
			Result:       stakeResult(r.Status, r.WinnerOption, r.OptionID),
			PlacedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

func stakeResult(status repo.EventStatus, winner *int, optionID int) string {
	if status != repo.EventFinished || winner == nil {
		return ResultPending
	}
	if *winner == optionID {
		return ResultWon
	}
	return ResultLost
}

// Leaderboard devolve o top 10 por saldo (cacheado)
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var cached []LeaderboardEntry
	if ok, err := s.cache.GetLeaderboard(ctx, &cached); err != nil {
		s.log.Warn("leaderboard cache get", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	rows, err := s.store.Leaderboard(ctx, LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	out := make([]LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, LeaderboardEntry{Username: r.Username, Balance: r.Balance})
	}

	if err := s.cache.SetLeaderboard(ctx, out); err != nil {
		s.log.Warn("leaderboard cache set", zap.Error(err))
	}
	return out, nil
}

// ActiveEvents lista os eventos abertos com os rótulos das duas opções (cacheado)
func (s *Service) ActiveEvents(ctx context.Context) ([]EventView, error) {
	var cached []EventView
	if ok, err := s.cache.GetActiveEvents(ctx, &cached); err != nil {
		s.log.Warn("events cache get", zap.Error(err))
	} else if ok {
		return cached, nil
	}

	evs, err := s.store.ActiveEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("active events: %w", err)
	}
	out := make([]EventView, 0, len(evs))
	for _, e := range evs {
		out = append(out, EventView{
			ID:    e.ID,
			Title: e.Title,
			Options: []Option{
				{ID: repo.OptionOne, Name: e.Option1},
				{ID: repo.OptionTwo, Name: e.Option2},
			},
		})
	}

	if err := s.cache.SetActiveEvents(ctx, out); err != nil {
		s.log.Warn("events cache set", zap.Error(err))
	}
	return out, nil
}

// Statement devolve o extrato de movimentações da conta
func (s *Service) Statement(ctx context.Context, userID int64) ([]repo.LedgerEntry, error) {
	if _, err := s.store.GetAccount(ctx, userID); err != nil {
		return nil, fmt.Errorf("statement %d: %w", userID, err)
	}
	entries, err := s.store.Statement(ctx, userID, StatementSize)
	if err != nil {
		return nil, fmt.Errorf("statement %d: %w", userID, err)
	}
	return entries, nil
}

func (s *Service) invalidateLeaderboard(ctx context.Context) {
	if err := s.cache.InvalidateLeaderboard(ctx); err != nil {
		s.log.Warn("leaderboard cache invalidate", zap.Error(err))
	}
}

func (s *Service) invalidateActiveEvents(ctx context.Context) {
	if err := s.cache.InvalidateActiveEvents(ctx); err != nil {
		s.log.Warn("events cache invalidate", zap.Error(err))
	}
}

type nopCache struct{}

func (nopCache) GetActiveEvents(context.Context, any) (bool, error) { return false, nil }
func (nopCache) SetActiveEvents(context.Context, any) error         { return nil }
func (nopCache) GetLeaderboard(context.Context, any) (bool, error)  { return false, nil }
func (nopCache) SetLeaderboard(context.Context, any) error          { return nil }
func (nopCache) InvalidateActiveEvents(context.Context) error       { return nil }
func (nopCache) InvalidateLeaderboard(context.Context) error        { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishStakePlaced(context.Context, events.StakePlaced) error   { return nil }
func (nopPublisher) PublishEventSettled(context.Context, events.EventSettled) error { return nil }
