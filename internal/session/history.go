package session

import (
	"context"

	"resumeforensics/internal/errors"
	"resumeforensics/internal/types"
)

// History keeps completed analyses, newest first.
type History struct {
	*ledger
	limit int
}

// Append stores entry at the front and trims the list to the configured limit.
func (h *History) Append(ctx context.Context, entry types.HistoryEntry) error {
	return h.update(ctx, func(s *types.State) error {
		s.History = append([]types.HistoryEntry{entry}, s.History...)
		if h.limit > 0 && len(s.History) > h.limit {
			s.History = s.History[:h.limit]
		}
		return nil
	})
}

// List returns entries for email, or every entry when email is empty.
func (h *History) List(ctx context.Context, email string) ([]types.HistoryEntry, error) {
	state, err := h.view(ctx)
	if err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if email == "" {
		return state.History, nil
	}
	entries := make([]types.HistoryEntry, 0, len(state.History))
	for _, e := range state.History {
		if e.UserEmail == email {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Get returns one entry by id.
func (h *History) Get(ctx context.Context, id string) (types.HistoryEntry, error) {
	state, err := h.view(ctx)
	if err != nil {
		return types.HistoryEntry{}, err
	}
	for _, e := range state.History {
		if e.ID == id {
			return e, nil
		}
	}
	return types.HistoryEntry{}, historyNotFound(id)
}

// Delete removes one entry by id.
func (h *History) Delete(ctx context.Context, id string) error {
	return h.update(ctx, func(s *types.State) error {
		for i, e := range s.History {
			if e.ID == id {
				s.History = append(s.History[:i], s.History[i+1:]...)
				return nil
			}
		}
		return historyNotFound(id)
	})
}

// MarkUnlocked records that the entry's report was unlocked.
func (h *History) MarkUnlocked(ctx context.Context, id string) error {
	return h.update(ctx, func(s *types.State) error {
		for i := range s.History {
			if s.History[i].ID == id {
				s.History[i].Unlocked = true
				return nil
			}
		}
		return historyNotFound(id)
	})
}

func historyNotFound(id string) *errors.AppError {
	return errors.NewValidationError(errors.ErrCodeNotFound, "no history entry "+id, nil).
		WithContext("history_id", id)
}
