package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/prediction-ledger/internal/ledger-service/dto"
	"github.com/radieske/prediction-ledger/internal/ledger-service/ledger"
	"github.com/radieske/prediction-ledger/internal/ledger-service/repo"
)

const defaultUsername = "User"

// Ledger define as operações do ledger usadas pelo handler HTTP
type Ledger interface {
	Resolve(ctx context.Context, userID int64, username string, referrer *int64) (repo.Account, error)
	PlaceStake(ctx context.Context, userID, eventID int64, optionID int) (ledger.StakeReceipt, error)
	Settle(ctx context.Context, eventID int64, winnerOption int) (ledger.SettlementResult, error)
	History(ctx context.Context, userID int64) ([]ledger.HistoryEntry, error)
	Leaderboard(ctx context.Context) ([]ledger.LeaderboardEntry, error)
	ActiveEvents(ctx context.Context) ([]ledger.EventView, error)
	Statement(ctx context.Context, userID int64) ([]repo.LedgerEntry, error)
}

// Server expõe o ledger via HTTP. O user_id recebido é confiável:
// autenticação é responsabilidade de quem chama (front-end/bot)
type Server struct {
	log            *zap.Logger
	ledger         Ledger
	allowedOrigins []string
	ws             http.Handler
}

// NewServer instancia o servidor HTTP do ledger; ws pode ser nil
func NewServer(log *zap.Logger, l Ledger, allowedOrigins []string, ws http.Handler) *Server {
	return &Server{log: log, ledger: l, allowedOrigins: allowedOrigins, ws: ws}
}

// Router retorna o roteador HTTP com as rotas do ledger
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.allowedOrigins))

	r.Get("/", s.home)
	r.Get("/events", s.listEvents)                           // eventos ativos
	r.Get("/user/{id}", s.getUser)                           // ?username=&ref_id=
	r.Get("/user/{id}/history", s.getHistory)                // palpites com resultado
	r.Get("/user/{id}/ledger", s.getStatement)               // extrato de saldo
	r.Post("/predict", s.predict)                            // novo palpite
	r.Post("/admin/settle/{event_id}/{winner_id}", s.settle) // encerramento
	r.Get("/leaderboard", s.leaderboard)                     // top 10
	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}
	return r
}

func (s *Server) home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok", Message: "Prediction Market API is running"})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := s.ledger.ActiveEvents(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

// getUser resolve (ou cria) a conta e devolve o saldo
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	username := q.Get("username")
	if username == "" {
		username = defaultUsername
	}
	var referrer *int64
	if raw := q.Get("ref_id"); raw != "" {
		ref, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "ref_id must be an integer")
			return
		}
		referrer = &ref
	}

	acc, err := s.ledger.Resolve(r.Context(), userID, username, referrer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserResponse{UserID: acc.UserID, Balance: acc.Balance})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	hist, err := s.ledger.History(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]dto.HistoryItem, 0, len(hist))
	for _, h := range hist {
		out = append(out, dto.HistoryItem{
			EventID:      h.EventID,
			EventTitle:   h.EventTitle,
			OptionID:     h.OptionID,
			ChosenOption: h.ChosenOption,
			Result:       h.Result,
			PlacedAt:     h.PlacedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	entries, err := s.ledger.Statement(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]dto.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntry{
			ID:            e.ID,
			OperationType: e.OperationType,
			Amount:        e.Amount,
			PredictionID:  e.PredictionID,
			EventID:       e.EventID,
			CreatedAt:     e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	var req dto.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "bad json")
		return
	}
	if req.UserID == 0 || req.EventID == 0 {
		writeBadRequest(w, "user_id and event_id required")
		return
	}

	receipt, err := s.ledger.PlaceStake(r.Context(), req.UserID, req.EventID, req.OptionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PredictResponse{
		Status:     dto.StatusSuccess,
		StakeID:    receipt.StakeID,
		NewBalance: receipt.NewBalance,
	})
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathInt64(w, r, "event_id")
	if !ok {
		return
	}
	winner, ok := pathInt64(w, r, "winner_id")
	if !ok {
		return
	}

	res, err := s.ledger.Settle(r.Context(), eventID, int(winner))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SettleResponse{
		Status:       dto.StatusSuccess,
		EventID:      res.EventID,
		WinnerOption: res.WinnerOption,
		WinnersPaid:  res.WinnersPaid,
		AccountsPaid: res.AccountsPaid,
		PointsPaid:   res.PointsPaid,
	})
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := s.ledger.Leaderboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// writeError converte o kind do erro em status HTTP; falhas de armazenamento não vazam detalhes
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ledger.KindOf(err)
	status, msg := http.StatusInternalServerError, "internal error"
	switch kind {
	case ledger.KindInsufficientFunds:
		status, msg = http.StatusConflict, "Insufficient balance"
	case ledger.KindInvalidState:
		status, msg = http.StatusConflict, err.Error()
	case ledger.KindNotFound:
		status, msg = http.StatusNotFound, err.Error()
	case ledger.KindInvalidOption:
		status, msg = http.StatusBadRequest, err.Error()
	default:
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, status, dto.ErrorResponse{Status: dto.StatusError, Kind: string(kind), Message: msg})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Status: dto.StatusError, Kind: "bad_request", Message: msg})
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeBadRequest(w, name+" must be an integer")
		return 0, false
	}
	return v, true
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
