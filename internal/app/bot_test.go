package app_test

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
	"github.com/fakhriyor21/Quizbot-final/internal/domain"
	"github.com/fakhriyor21/Quizbot-final/internal/infra/memory"
)

type sentMessage struct {
	To      int64
	Text    string
	Choices []domain.Choice
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []sentMessage
}

func (s *recordingSender) Send(recipientID int64, text string, choices ...domain.Choice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, sentMessage{To: recipientID, Text: text, Choices: choices})
}

func (s *recordingSender) sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.msgs...)
}

func (s *recordingSender) lastTo(t *testing.T, recipientID int64) sentMessage {
	t.Helper()
	msgs := s.sent()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].To == recipientID {
			return msgs[i]
		}
	}
	t.Fatalf("no message sent to %d; all: %+v", recipientID, msgs)
	return sentMessage{}
}

func newBot(store *memory.Store, sender *recordingSender, admins ...int64) *app.Bot {
	publisher := &countingPublisher{}
	cache := memory.NewQuestionCache(store, time.Minute)
	engine := app.NewEngine(store, memory.NewSessionStore(), cache)
	return app.NewBot(app.BotOptions{
		Store:        store,
		Engine:       engine,
		Authoring:    app.NewAuthoring(store, publisher, cache),
		Registration: app.NewRegistration(store),
		Sender:       sender,
		Publisher:    publisher,
		Cache:        cache,
		AdminIDs:     admins,
	})
}

func command(userID int64, name, argument string) domain.Inbound {
	return domain.Inbound{SenderID: userID, Kind: domain.KindCommand, Payload: name, Argument: argument}
}

func text(userID int64, payload string) domain.Inbound {
	return domain.Inbound{SenderID: userID, Kind: domain.KindText, Payload: payload}
}

func menu(userID int64, data string) domain.Inbound {
	return domain.Inbound{SenderID: userID, Kind: domain.KindMenuSelection, Payload: data}
}

func TestBotDeniesAuthoringToNonAdmins(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender, 99)

	bot.Handle(context.Background(), command(42, "create_test", ""))

	if msg := sender.lastTo(t, 42); !strings.Contains(msg.Text, "admin emassiz") {
		t.Fatalf("expected the denial, got %q", msg.Text)
	}
}

func TestBotStartUnregisteredOpensRegistration(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender)

	bot.Handle(context.Background(), command(42, "start", ""))

	if msg := sender.lastTo(t, 42); !strings.Contains(msg.Text, "ro'yxatdan o'tishingiz") {
		t.Fatalf("expected the registration intro, got %q", msg.Text)
	}
}

func TestBotStartDeepLinkLaunchesTest(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender)
	seedUser(t, store, 42)
	test := seedTest(t, store, "Matematika", "A")

	bot.Handle(context.Background(), command(42, "start", "test_"+strconv.FormatInt(test.ID, 10)))

	msg := sender.lastTo(t, 42)
	if !strings.Contains(msg.Text, "Savol #1") {
		t.Fatalf("expected the first question, got %q", msg.Text)
	}
	if len(msg.Choices) != 1 || msg.Choices[0].Data != "cancel_quiz" {
		t.Fatalf("expected the cancel choice, got %+v", msg.Choices)
	}
}

func TestBotAnswerFlowDeliversSummaryAndAdminNotice(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender, 99)
	seedUser(t, store, 42)
	test := seedTest(t, store, "Matematika", "A")

	ctx := context.Background()
	bot.Handle(ctx, menu(42, "test_"+strconv.FormatInt(test.ID, 10)))
	bot.Handle(ctx, text(42, "a"))

	var feedbackSeen, summarySeen bool
	for _, msg := range sender.sent() {
		if msg.To != 42 {
			continue
		}
		if strings.Contains(msg.Text, "To'g'ri!") {
			feedbackSeen = true
		}
		if strings.Contains(msg.Text, "Test yakunlandi") {
			summarySeen = true
		}
	}
	if !feedbackSeen || !summarySeen {
		t.Fatalf("expected feedback and summary, got %+v", sender.sent())
	}

	if notice := sender.lastTo(t, 99); !strings.Contains(notice.Text, "Yangi test natijasi") {
		t.Fatalf("expected the admin notice, got %q", notice.Text)
	}

	if results, _ := store.ListUserResults(ctx, 42); len(results) != 1 {
		t.Fatalf("expected one stored result, got %d", len(results))
	}
}

func TestBotInvalidAnswerReprompts(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender)
	seedUser(t, store, 42)
	test := seedTest(t, store, "t", "A")

	ctx := context.Background()
	bot.Handle(ctx, menu(42, "test_"+strconv.FormatInt(test.ID, 10)))
	bot.Handle(ctx, text(42, "qalesan"))

	if msg := sender.lastTo(t, 42); !strings.Contains(msg.Text, "faqat A, B, C, D") {
		t.Fatalf("expected the re-prompt, got %q", msg.Text)
	}
}

func TestBotMenuCancelQuiz(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender)
	seedUser(t, store, 42)
	test := seedTest(t, store, "t", "A")

	ctx := context.Background()
	bot.Handle(ctx, menu(42, "test_"+strconv.FormatInt(test.ID, 10)))
	bot.Handle(ctx, menu(42, "cancel_quiz"))

	if msg := sender.lastTo(t, 42); !strings.Contains(msg.Text, "bekor qilindi") {
		t.Fatalf("expected the cancellation, got %q", msg.Text)
	}
	if results, _ := store.ListUserResults(ctx, 42); len(results) != 0 {
		t.Fatalf("cancelled attempt must not store a result")
	}
}

func TestBotTextOutsideAnyFlowHints(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender)
	seedUser(t, store, 42)

	bot.Handle(context.Background(), text(42, "salom"))

	if msg := sender.lastTo(t, 42); !strings.Contains(msg.Text, "/menu") {
		t.Fatalf("expected the menu hint, got %q", msg.Text)
	}
}

func TestBotRegistrationFlowEndsWithWelcome(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender)

	ctx := context.Background()
	bot.Handle(ctx, command(42, "register", ""))
	for _, answer := range []string{"Ali", "Valiyev", "+998901234567", "1-maktab", "Yo'q", "Toshkent", "Chilonzor"} {
		bot.Handle(ctx, text(42, answer))
	}

	var welcomeSeen bool
	for _, msg := range sender.sent() {
		if msg.To == 42 && strings.Contains(msg.Text, "Xush kelibsiz") {
			welcomeSeen = true
		}
	}
	if !welcomeSeen {
		t.Fatalf("expected the welcome after registration, got %+v", sender.sent())
	}
}

func TestBotAdminExportUsersCSV(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender, 99)
	seedUser(t, store, 42)

	bot.Handle(context.Background(), menu(99, "admin_export_users"))

	msg := sender.lastTo(t, 99)
	if !strings.Contains(msg.Text, "Telegram ID") || !strings.Contains(msg.Text, "Ali") {
		t.Fatalf("expected the users CSV, got %q", msg.Text)
	}
}

func TestBotExportDeniedToUsers(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender, 99)
	seedUser(t, store, 42)

	bot.Handle(context.Background(), menu(42, "admin_export_users"))

	if msg := sender.lastTo(t, 42); !strings.Contains(msg.Text, "admin emassiz") {
		t.Fatalf("expected the denial, got %q", msg.Text)
	}
}

func TestBotDeleteQuestionFromDetails(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender, 99)
	test := seedTest(t, store, "t", "A", "B")

	ctx := context.Background()
	bot.Handle(ctx, menu(99, "view_test_"+strconv.FormatInt(test.ID, 10)))
	details := sender.lastTo(t, 99)
	if len(details.Choices) != 4 {
		t.Fatalf("expected an edit and a delete choice per question, got %+v", details.Choices)
	}
	if !strings.HasPrefix(details.Choices[1].Data, "delete_question_") {
		t.Fatalf("expected the delete choice second, got %+v", details.Choices[1])
	}

	bot.Handle(ctx, menu(99, details.Choices[1].Data))
	if questions, _ := store.ListQuestions(ctx, test.ID); len(questions) != 1 {
		t.Fatalf("expected one question left, got %d", len(questions))
	}
}

func TestBotEditQuestionFromDetails(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender, 99)
	test := seedTest(t, store, "t", "A")

	ctx := context.Background()
	bot.Handle(ctx, menu(99, "view_test_"+strconv.FormatInt(test.ID, 10)))
	details := sender.lastTo(t, 99)
	if !strings.HasPrefix(details.Choices[0].Data, "edit_question_") {
		t.Fatalf("expected the edit choice first, got %+v", details.Choices)
	}

	bot.Handle(ctx, menu(99, details.Choices[0].Data))
	if msg := sender.lastTo(t, 99); !strings.Contains(msg.Text, "Savolni tahrirlash") {
		t.Fatalf("expected the edit intro, got %q", msg.Text)
	}

	bot.Handle(ctx, text(99, "Fe'l nimani bildiradi?"))
	bot.Handle(ctx, text(99, "A) Harakatni\nB) Predmetni\nC) Belgini\nD) Miqdorni"))
	bot.Handle(ctx, text(99, "c"))

	if msg := sender.lastTo(t, 99); !strings.Contains(msg.Text, "yangilandi") {
		t.Fatalf("expected the updated confirmation, got %q", msg.Text)
	}
	questions, _ := store.ListQuestions(ctx, test.ID)
	if len(questions) != 1 || questions[0].Prompt != "Fe'l nimani bildiradi?" || questions[0].CorrectOption != "C" {
		t.Fatalf("question not replaced: %+v", questions)
	}
}

func TestBotAnswerAfterQuestionDeletedDeliversSummary(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender, 99)
	seedUser(t, store, 42)
	test := seedTest(t, store, "t", "A", "B")

	ctx := context.Background()
	bot.Handle(ctx, menu(42, "test_"+strconv.FormatInt(test.ID, 10)))
	bot.Handle(ctx, text(42, "A"))

	// The admin deletes the remaining question while the attempt is open.
	questions, _ := store.ListQuestions(ctx, test.ID)
	bot.Handle(ctx, menu(99, "delete_question_"+strconv.FormatInt(questions[1].ID, 10)))

	bot.Handle(ctx, text(42, "B"))
	msg := sender.lastTo(t, 42)
	if !strings.Contains(msg.Text, "Test yakunlandi") {
		t.Fatalf("expected the completion summary, not a re-prompt: %q", msg.Text)
	}
	if results, _ := store.ListUserResults(ctx, 42); len(results) != 1 || results[0].TotalCount != 1 {
		t.Fatalf("expected one result over the remaining question, got %+v", results)
	}
}

func TestBotAdminRecentUsersAndResults(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender, 99)
	seedUser(t, store, 42)
	test := seedTest(t, store, "Matematika", "A")

	ctx := context.Background()
	result := &domain.Result{
		UserID:       42,
		TestID:       test.ID,
		CorrectCount: 1,
		TotalCount:   1,
		Percentage:   100,
		CompletedAt:  time.Now(),
	}
	if err := store.SaveResult(ctx, result); err != nil {
		t.Fatalf("save result: %v", err)
	}

	bot.Handle(ctx, menu(99, "admin_users"))
	msg := sender.lastTo(t, 99)
	if !strings.Contains(msg.Text, "Ali Valiyev") || !strings.Contains(msg.Text, "+998901234567") {
		t.Fatalf("expected the recent users summary, got %q", msg.Text)
	}

	bot.Handle(ctx, menu(99, "admin_results"))
	msg = sender.lastTo(t, 99)
	if !strings.Contains(msg.Text, "Matematika") || !strings.Contains(msg.Text, "1/1") {
		t.Fatalf("expected the recent results summary, got %q", msg.Text)
	}

	bot.Handle(ctx, menu(42, "admin_results"))
	if msg := sender.lastTo(t, 42); !strings.Contains(msg.Text, "admin emassiz") {
		t.Fatalf("expected the denial, got %q", msg.Text)
	}
}

func TestBotDeleteTestConfirmFlow(t *testing.T) {
	store := memory.NewStore()
	sender := &recordingSender{}
	bot := newBot(store, sender, 99)
	test := seedTest(t, store, "eski", "A")

	ctx := context.Background()
	id := strconv.FormatInt(test.ID, 10)

	bot.Handle(ctx, menu(99, "delete_test_"+id))
	confirm := sender.lastTo(t, 99)
	if !strings.Contains(confirm.Text, "tasdiqlaysizmi") {
		t.Fatalf("expected the confirmation question, got %q", confirm.Text)
	}
	if tests, _ := store.ListTests(ctx); len(tests) != 1 {
		t.Fatalf("nothing may be deleted before confirmation")
	}

	bot.Handle(ctx, menu(99, "confirm_delete_"+id))
	if tests, _ := store.ListTests(ctx); len(tests) != 0 {
		t.Fatalf("expected the test gone after confirmation, got %+v", tests)
	}
}
