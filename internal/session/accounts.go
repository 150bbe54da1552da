package session

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"resumeforensics/internal/errors"
	"resumeforensics/internal/types"

	"github.com/google/uuid"
)

// Gamification tasks. Each is awarded at most once per user.
const (
	TaskFirstAnalysis = "first_analysis"
	TaskUnlockReport  = "unlock_report"
	TaskExportDOCX    = "export_docx"
	TaskExportPDF     = "export_pdf"
	TaskPrepDeck      = "prep_deck"
)

// TaskXP is the experience awarded per task.
var TaskXP = map[string]int{
	TaskFirstAnalysis: 100,
	TaskUnlockReport:  150,
	TaskExportDOCX:    50,
	TaskExportPDF:     50,
	TaskPrepDeck:      200,
}

const xpPerLevel = 500

// LevelFor derives the level from accumulated XP.
func LevelFor(xp int) int {
	return xp/xpPerLevel + 1
}

// Accounts manages local user records: credits and XP. It is not an identity system.
type Accounts struct {
	*ledger
	logger *errors.Logger
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register returns the account for email, creating it on first use.
func (a *Accounts) Register(ctx context.Context, name, email string) (types.User, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return types.User{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"a valid email address is required", err)
	}
	name = strings.TrimSpace(name)

	var user types.User
	err := a.update(ctx, func(s *types.State) error {
		if i := findUser(s, email); i >= 0 {
			if name != "" && s.Users[i].Name != name {
				s.Users[i].Name = name
			}
			user = s.Users[i]
			return nil
		}
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user = types.User{
			ID:             uuid.NewString(),
			Name:           name,
			Email:          email,
			Level:          1,
			CompletedTasks: []string{},
			CreatedAt:      time.Now().UTC(),
		}
		s.Users = append(s.Users, user)
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	if a.logger != nil {
		a.logger.Debug("Account ready", "email", email, "user_id", user.ID)
	}
	return user, nil
}

// User looks up an account by email.
func (a *Accounts) User(ctx context.Context, email string) (types.User, error) {
	email = NormalizeEmail(email)
	state, err := a.view(ctx)
	if err != nil {
		return types.User{}, err
	}
	if i := findUser(&state, email); i >= 0 {
		return state.Users[i], nil
	}
	return types.User{}, userNotFound(email)
}

// SpendCredit takes exactly one credit. With no credits left the balance is
// untouched and INSUFFICIENT_CREDITS is returned.
func (a *Accounts) SpendCredit(ctx context.Context, email string) (types.User, error) {
	email = NormalizeEmail(email)
	var user types.User
	err := a.update(ctx, func(s *types.State) error {
		i := findUser(s, email)
		if i < 0 {
			return userNotFound(email)
		}
		if s.Users[i].Tokens < 1 {
			return errors.NewStateError(errors.ErrCodeInsufficientCredits,
				"no credits left", nil).WithContext("email", email)
		}
		s.Users[i].Tokens--
		user = s.Users[i]
		return nil
	})
	return user, err
}

// RefundCredit returns one credit taken by an unlock that did not complete.
func (a *Accounts) RefundCredit(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	return a.update(ctx, func(s *types.State) error {
		i := findUser(s, email)
		if i < 0 {
			return userNotFound(email)
		}
		s.Users[i].Tokens++
		return nil
	})
}

// PurchasePlan credits the plan's tokens to the account. No payment is taken.
func (a *Accounts) PurchasePlan(ctx context.Context, email, planID string) (types.User, error) {
	email = NormalizeEmail(email)
	var user types.User
	err := a.update(ctx, func(s *types.State) error {
		i := findUser(s, email)
		if i < 0 {
			return userNotFound(email)
		}
		p := findPlan(s, planID)
		if p < 0 {
			return errors.NewValidationError(errors.ErrCodeNotFound,
				"unknown pricing plan "+planID, nil).WithContext("plan_id", planID)
		}
		s.Users[i].Tokens += s.Plans[p].Credits
		user = s.Users[i]
		return nil
	})
	return user, err
}

// CompleteTask awards the task's XP once. awarded is false when the task was
// already completed.
func (a *Accounts) CompleteTask(ctx context.Context, email, taskID string) (user types.User, awarded bool, err error) {
	xp, ok := TaskXP[taskID]
	if !ok {
		return types.User{}, false, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"unknown task "+taskID, nil)
	}
	email = NormalizeEmail(email)
	err = a.update(ctx, func(s *types.State) error {
		i := findUser(s, email)
		if i < 0 {
			return userNotFound(email)
		}
		u := &s.Users[i]
		if u.HasCompleted(taskID) {
			user = *u
			return nil
		}
		u.CompletedTasks = append(u.CompletedTasks, taskID)
		u.XP += xp
		u.Level = LevelFor(u.XP)
		user = *u
		awarded = true
		return nil
	})
	return user, awarded, err
}

// Plans lists the pricing plans.
func (a *Accounts) Plans(ctx context.Context) ([]types.PricingPlan, error) {
	state, err := a.view(ctx)
	if err != nil {
		return nil, err
	}
	return state.Plans, nil
}
