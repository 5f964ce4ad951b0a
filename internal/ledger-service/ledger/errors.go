package ledger

import (
	"errors"

	"github.com/radieske/prediction-ledger/internal/ledger-service/repo"
)

// Kind é o código estável de erro devolvido aos chamadores
type Kind string

const (
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNotFound          Kind = "not_found"
	KindInvalidState      Kind = "invalid_state"
	KindInvalidOption     Kind = "invalid_option"
	KindStorage           Kind = "storage_failure"
)

// KindOf classifica um erro do ledger; qualquer erro não tipado é falha de armazenamento
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, repo.ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, repo.ErrNotFound):
		return KindNotFound
	case errors.Is(err, repo.ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, repo.ErrInvalidOption):
		return KindInvalidOption
	default:
		return KindStorage
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(KindOf(err))
}
