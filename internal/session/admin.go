package session

import (
	"context"
	"strings"

	"resumeforensics/internal/errors"
	"resumeforensics/internal/types"

	"golang.org/x/crypto/bcrypt"
)

// Admin exposes the operator view: all users, token grants, plan edits and history wipes.
// Callers are expected to check VerifyPassphrase first.
type Admin struct {
	*ledger
	passphraseHash string
}

// HashPassphrase produces the bcrypt hash stored in admin.passphrase_hash.
func HashPassphrase(passphrase string) (string, error) {
	if strings.TrimSpace(passphrase) == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "passphrase must not be empty", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.NewInternalError(errors.ErrCodeInternal, "failed to hash passphrase", err)
	}
	return string(hash), nil
}

// VerifyPassphrase reports whether passphrase matches the configured hash.
// With no hash configured the admin view stays closed.
func (a *Admin) VerifyPassphrase(passphrase string) bool {
	if a.passphraseHash == "" || passphrase == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(a.passphraseHash), []byte(passphrase)) == nil
}

// Authorize returns UNAUTHORIZED unless passphrase verifies.
func (a *Admin) Authorize(passphrase string) error {
	if !a.VerifyPassphrase(passphrase) {
		return errors.NewValidationError(errors.ErrCodeUnauthorized, "admin passphrase rejected", nil)
	}
	return nil
}

func (a *Admin) Users(ctx context.Context) ([]types.User, error) {
	state, err := a.view(ctx)
	if err != nil {
		return nil, err
	}
	return state.Users, nil
}

// AdjustTokens adds delta to a user's balance. The balance never drops below zero.
func (a *Admin) AdjustTokens(ctx context.Context, email string, delta int) (types.User, error) {
	email = NormalizeEmail(email)
	var user types.User
	err := a.update(ctx, func(s *types.State) error {
		i := findUser(s, email)
		if i < 0 {
			return userNotFound(email)
		}
		s.Users[i].Tokens += delta
		if s.Users[i].Tokens < 0 {
			s.Users[i].Tokens = 0
		}
		user = s.Users[i]
		return nil
	})
	return user, err
}

// UpsertPlan adds a plan or replaces the one with the same id.
func (a *Admin) UpsertPlan(ctx context.Context, plan types.PricingPlan) error {
	plan.ID = strings.TrimSpace(plan.ID)
	if plan.ID == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "plan id is required", nil)
	}
	if plan.Credits <= 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "plan credits must be positive", nil).
			WithContext("plan_id", plan.ID)
	}
	return a.update(ctx, func(s *types.State) error {
		if i := findPlan(s, plan.ID); i >= 0 {
			s.Plans[i] = plan
			return nil
		}
		s.Plans = append(s.Plans, plan)
		return nil
	})
}

func (a *Admin) DeletePlan(ctx context.Context, id string) error {
	return a.update(ctx, func(s *types.State) error {
		i := findPlan(s, id)
		if i < 0 {
			return errors.NewValidationError(errors.ErrCodeNotFound, "unknown pricing plan "+id, nil).
				WithContext("plan_id", id)
		}
		s.Plans = append(s.Plans[:i], s.Plans[i+1:]...)
		return nil
	})
}

// ClearHistory drops every history entry.
func (a *Admin) ClearHistory(ctx context.Context) error {
	return a.update(ctx, func(s *types.State) error {
		s.History = []types.HistoryEntry{}
		return nil
	})
}
