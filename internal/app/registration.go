package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

type regStage int

const (
	regFirstName regStage = iota
	regLastName
	regPhone
	regSchool
	regStudyCenter
	regRegion
	regDistrict
)

type regState struct {
	stage regStage
	user  domain.User
}

// Registration walks an unregistered user through the sign-up questions
// and upserts the user row at the end. Like authoring, state is
// process-local and keyed by sender.
type Registration struct {
	store Store
	now   func() time.Time

	mu     sync.Mutex
	states map[int64]*regState
}

func NewRegistration(store Store) *Registration {
	return &Registration{store: store, now: time.Now, states: make(map[int64]*regState)}
}

func (r *Registration) Active(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.states[userID]
	return ok
}

// Start opens a registration flow and returns the first prompt.
func (r *Registration) Start(userID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[userID] = &regState{user: domain.User{TelegramID: userID}}
	return msgRegistrationIntro + "\n\n" + msgAskFirstName
}

// HandleText consumes one answer. done is true once the user row has been
// written, at which point the returned reply is the final confirmation.
func (r *Registration) HandleText(ctx context.Context, userID int64, text string) (reply string, done bool, err error) {
	r.mu.Lock()
	state, ok := r.states[userID]
	r.mu.Unlock()
	if !ok {
		return "", false, domain.ErrNoSession
	}

	value := strings.TrimSpace(text)
	if value == "" {
		return r.prompt(state.stage), false, nil
	}

	switch state.stage {
	case regFirstName:
		state.user.FirstName = value
		state.stage = regLastName
	case regLastName:
		state.user.LastName = value
		state.stage = regPhone
	case regPhone:
		if !strings.HasPrefix(value, "+") {
			value = "+" + value
		}
		state.user.Phone = value
		state.stage = regSchool
	case regSchool:
		state.user.School = value
		state.stage = regStudyCenter
	case regStudyCenter:
		state.user.StudyCenter = value
		state.stage = regRegion
	case regRegion:
		state.user.Region = value
		state.stage = regDistrict
	case regDistrict:
		state.user.District = value
		state.user.RegisteredAt = r.now()
		if err := r.store.UpsertUser(ctx, &state.user); err != nil {
			return "", false, err
		}
		r.mu.Lock()
		delete(r.states, userID)
		r.mu.Unlock()
		return msgRegistrationDone(&state.user), true, nil
	}

	return r.prompt(state.stage), false, nil
}

func (r *Registration) prompt(stage regStage) string {
	switch stage {
	case regFirstName:
		return msgAskFirstName
	case regLastName:
		return msgAskLastName
	case regPhone:
		return msgAskPhone
	case regSchool:
		return msgAskSchool
	case regStudyCenter:
		return msgAskStudyCenter
	case regRegion:
		return msgAskRegion
	case regDistrict:
		return msgAskDistrict
	}
	return msgAskFirstName
}
