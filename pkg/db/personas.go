package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/serenique/serenique-server/pkg/persona"
)

// PutPersona stores the static personality profile for a user. The
// profile is written once at onboarding; overwriting replaces it whole.
func (s *Store) PutPersona(ctx context.Context, userID string, profile persona.PersonalityProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, "marshaling profile")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO personas (user_id, profile, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile`,
		userID, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	return errors.Wrap(err, "storing persona")
}

// GetPersona retrieves the personality profile, or ErrNotFound when the
// user never completed the quiz.
func (s *Store) GetPersona(ctx context.Context, userID string) (persona.PersonalityProfile, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT profile FROM personas WHERE user_id = ?`, userID)
	if err != nil {
		return persona.PersonalityProfile{}, mapNoRows(err)
	}

	var profile persona.PersonalityProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return persona.PersonalityProfile{}, errors.Wrap(err, "unmarshaling profile")
	}
	return profile, nil
}

// PutLiveState overwrites the user's live state with the supplied
// snapshot. Full-overwrite semantics: the caller supplies the complete
// next state.
func (s *Store) PutLiveState(ctx context.Context, userID string, state persona.LiveUserState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshaling live state")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO live_states (user_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		userID, string(raw), time.Now().UTC().Format(time.RFC3339Nano))
	return errors.Wrap(err, "storing live state")
}

// GetLiveState retrieves the live state, or ErrNotFound when none has
// been written yet.
func (s *Store) GetLiveState(ctx context.Context, userID string) (persona.LiveUserState, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT state FROM live_states WHERE user_id = ?`, userID)
	if err != nil {
		return persona.LiveUserState{}, mapNoRows(err)
	}

	var state persona.LiveUserState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return persona.LiveUserState{}, errors.Wrap(err, "unmarshaling live state")
	}
	return state, nil
}
