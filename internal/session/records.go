package session

import (
	"context"
	"sync"

	"resumeforensics/internal/errors"
	"resumeforensics/internal/store"
	"resumeforensics/internal/types"
)

// ledger serialises read-modify-write cycles on the single state blob.
type ledger struct {
	mu   sync.Mutex
	repo store.Repository
}

func (l *ledger) view(ctx context.Context) (types.State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo.Load(ctx)
}

// update loads the state, applies fn and saves the result. Nothing is saved when fn fails.
func (l *ledger) update(ctx context.Context, fn func(*types.State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.repo.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&state); err != nil {
		return err
	}
	return l.repo.Save(ctx, state)
}

// Records groups the views over persisted state.
type Records struct {
	Accounts *Accounts
	History  *History
	Admin    *Admin
}

// NewRecords wires accounts, history and admin over one repository.
func NewRecords(repo store.Repository, historyLimit int, passphraseHash string, logger *errors.Logger) *Records {
	l := &ledger{repo: repo}
	return &Records{
		Accounts: &Accounts{ledger: l, logger: logger},
		History:  &History{ledger: l, limit: historyLimit},
		Admin:    &Admin{ledger: l, passphraseHash: passphraseHash},
	}
}

func findUser(state *types.State, email string) int {
	for i := range state.Users {
		if state.Users[i].Email == email {
			return i
		}
	}
	return -1
}

func findPlan(state *types.State, id string) int {
	for i := range state.Plans {
		if state.Plans[i].ID == id {
			return i
		}
	}
	return -1
}

func userNotFound(email string) *errors.AppError {
	return errors.NewValidationError(errors.ErrCodeUserNotFound, "no account for "+email, nil).
		WithContext("email", email)
}
