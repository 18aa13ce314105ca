package app

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
	"github.com/rs/zerolog/log"
)

// Publisher announces a finalized test to the broadcast channel.
type Publisher interface {
	Publish(ctx context.Context, testID int64) error
}

type authoringStage int

const (
	stageAwaitKey authoringStage = iota // fast path: test key
	stageAwaitAnswerKey
	stageAwaitName // full path: test name
	stageAwaitCount
	stageAwaitPrompt
	stageAwaitOptions
	stageAwaitCorrect
	stageEditPrompt // question edit: re-enter prompt, options, correct label
	stageEditOptions
	stageEditCorrect
)

// authoringState carries exactly the fields its stage needs. Invalid input
// re-prompts without touching the stage or the fields.
type authoringState struct {
	stage authoringStage

	// fast path
	testKey string

	// full path
	name    string
	count   int
	testID  int64
	created int
	prompt  string
	options map[string]string

	// question edit
	editQuestionID int64
}

// Authoring is the per-administrator test creation state machine. State is
// process-local and discarded on completion or abandonment; partial
// authoring does not survive a restart. Callers authorize before invoking.
type Authoring struct {
	store     Store
	publisher Publisher
	cache     Invalidator

	mu     sync.Mutex
	states map[int64]*authoringState
}

func NewAuthoring(store Store, publisher Publisher, cache Invalidator) *Authoring {
	return &Authoring{
		store:     store,
		publisher: publisher,
		cache:     cache,
		states:    make(map[int64]*authoringState),
	}
}

// Active reports whether the administrator is mid-authoring.
func (a *Authoring) Active(adminID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.states[adminID]
	return ok
}

// StartFast begins the two-field shortcut: key then answer key. The
// resulting test has zero questions and is completed through the edit flow.
func (a *Authoring) StartFast(adminID int64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states[adminID] = &authoringState{stage: stageAwaitKey}
	return msgAskTestKey
}

// StartFull begins the question-by-question flow.
func (a *Authoring) StartFull(adminID int64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states[adminID] = &authoringState{stage: stageAwaitName}
	return msgAskTestName
}

// StartEdit begins re-entering one existing question: the prompt, options
// and correct label are asked again and replace the stored row.
func (a *Authoring) StartEdit(adminID int64, q *domain.Question) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states[adminID] = &authoringState{
		stage:          stageEditPrompt,
		testID:         q.TestID,
		editQuestionID: q.ID,
	}
	return msgEditQuestionIntro(q)
}

// Abandon drops any in-progress authoring state.
func (a *Authoring) Abandon(adminID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.states, adminID)
}

// HandleText feeds one admin message into the state machine and returns the
// reply to send back. Malformed input never transitions state.
func (a *Authoring) HandleText(ctx context.Context, adminID int64, text string) (string, error) {
	a.mu.Lock()
	state, ok := a.states[adminID]
	a.mu.Unlock()
	if !ok {
		return "", domain.ErrNoSession
	}

	switch state.stage {
	case stageAwaitKey:
		return a.handleKey(state, text)
	case stageAwaitAnswerKey:
		return a.handleAnswerKey(ctx, adminID, state, text)
	case stageAwaitName:
		return a.handleName(state, text)
	case stageAwaitCount:
		return a.handleCount(ctx, state, text)
	case stageAwaitPrompt:
		return a.handlePrompt(state, text)
	case stageAwaitOptions:
		return a.handleOptions(state, text)
	case stageAwaitCorrect:
		return a.handleCorrect(ctx, adminID, state, text)
	case stageEditPrompt:
		return a.handleEditPrompt(state, text)
	case stageEditOptions:
		return a.handleEditOptions(state, text)
	case stageEditCorrect:
		return a.handleEditCorrect(ctx, adminID, state, text)
	}
	return "", domain.ErrInvalidInput
}

func (a *Authoring) handleKey(state *authoringState, text string) (string, error) {
	state.testKey = strings.ToUpper(strings.TrimSpace(text))
	if state.testKey == "" {
		return msgAskTestKey, nil
	}
	state.stage = stageAwaitAnswerKey
	return msgAskAnswerKey, nil
}

// handleAnswerKey records the fast-path test. The answer key is echoed but
// deliberately unused: questions are added through the edit flow, and no
// parsing scheme for the key exists yet.
func (a *Authoring) handleAnswerKey(ctx context.Context, adminID int64, state *authoringState, text string) (string, error) {
	answerKey := strings.TrimSpace(text)

	test, err := a.store.CreateTest(ctx, state.testKey, 0)
	if err != nil {
		a.Abandon(adminID)
		return msgTestCreateFailed(state.testKey), err
	}
	a.Abandon(adminID)
	return msgFastTestCreated(test, answerKey), nil
}

func (a *Authoring) handleName(state *authoringState, text string) (string, error) {
	state.name = strings.TrimSpace(text)
	if state.name == "" {
		return msgAskTestName, nil
	}
	state.stage = stageAwaitCount
	return msgAskQuestionCount, nil
}

// handleCount creates the test row once a valid count arrives. Out-of-range
// or non-numeric input re-prompts without creating anything.
func (a *Authoring) handleCount(ctx context.Context, state *authoringState, text string) (string, error) {
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return msgCountNotNumber, nil
	}
	if count < 1 || count > 50 {
		return msgCountOutOfRange, nil
	}

	test, createErr := a.store.CreateTest(ctx, state.name, count)
	if createErr != nil {
		return "", createErr
	}
	state.count = count
	state.testID = test.ID
	state.stage = stageAwaitPrompt
	return msgTestStarted(test.ID), nil
}

func (a *Authoring) handlePrompt(state *authoringState, text string) (string, error) {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return msgAskQuestionPrompt(state.created + 1), nil
	}
	state.prompt = prompt
	state.stage = stageAwaitOptions
	return msgAskOptions, nil
}

// handleOptions expects exactly four "X) text" lines covering A-D.
func (a *Authoring) handleOptions(state *authoringState, text string) (string, error) {
	options, ok := ParseOptions(text)
	if !ok {
		return msgOptionsMalformed, nil
	}
	state.options = options
	state.stage = stageAwaitCorrect
	return msgAskCorrectLabel, nil
}

func (a *Authoring) handleCorrect(ctx context.Context, adminID int64, state *authoringState, text string) (string, error) {
	label := NormalizeLabel(text)
	if label == "" {
		return msgCorrectLabelInvalid, nil
	}

	question := &domain.Question{
		TestID:        state.testID,
		Prompt:        state.prompt,
		OptionA:       state.options["A"],
		OptionB:       state.options["B"],
		OptionC:       state.options["C"],
		OptionD:       state.options["D"],
		CorrectOption: label,
	}
	if err := a.store.AddQuestion(ctx, question); err != nil {
		return "", err
	}

	a.invalidate(state.testID)
	state.created++
	state.prompt = ""
	state.options = nil

	if state.created < state.count {
		state.stage = stageAwaitPrompt
		return msgQuestionSaved(state.created), nil
	}

	// All questions in: finalize and announce. A failed broadcast never
	// invalidates the finished test.
	if err := a.publisher.Publish(ctx, state.testID); err != nil {
		log.Warn().Err(err).Int64("test_id", state.testID).Msg("test broadcast failed")
	}
	reply := msgTestFinalized(state.name, state.count, state.testID)
	a.Abandon(adminID)
	return reply, nil
}

func (a *Authoring) handleEditPrompt(state *authoringState, text string) (string, error) {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return msgAskNewPrompt, nil
	}
	state.prompt = prompt
	state.stage = stageEditOptions
	return msgAskOptions, nil
}

func (a *Authoring) handleEditOptions(state *authoringState, text string) (string, error) {
	options, ok := ParseOptions(text)
	if !ok {
		return msgOptionsMalformed, nil
	}
	state.options = options
	state.stage = stageEditCorrect
	return msgAskCorrectLabel, nil
}

// handleEditCorrect replaces the stored question wholesale and drops the
// cached question list so open attempts do not keep grading stale rows.
func (a *Authoring) handleEditCorrect(ctx context.Context, adminID int64, state *authoringState, text string) (string, error) {
	label := NormalizeLabel(text)
	if label == "" {
		return msgCorrectLabelInvalid, nil
	}

	question := &domain.Question{
		ID:            state.editQuestionID,
		TestID:        state.testID,
		Prompt:        state.prompt,
		OptionA:       state.options["A"],
		OptionB:       state.options["B"],
		OptionC:       state.options["C"],
		OptionD:       state.options["D"],
		CorrectOption: label,
	}
	if err := a.store.UpdateQuestion(ctx, question); err != nil {
		a.Abandon(adminID)
		return "", err
	}
	a.invalidate(state.testID)
	a.Abandon(adminID)
	return msgQuestionUpdated, nil
}

func (a *Authoring) invalidate(testID int64) {
	if a.cache != nil {
		a.cache.Invalidate(testID)
	}
}

// ParseOptions splits option lines of the form "A) text". All four labels
// must be present exactly once.
func ParseOptions(text string) (map[string]string, bool) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	options := make(map[string]string)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, value, found := strings.Cut(line, ") ")
		if !found {
			continue
		}
		options[strings.ToUpper(strings.TrimSpace(label))] = strings.TrimSpace(value)
	}
	if len(options) != 4 {
		return nil, false
	}
	for _, label := range []string{"A", "B", "C", "D"} {
		if _, ok := options[label]; !ok {
			return nil, false
		}
	}
	return options, true
}
