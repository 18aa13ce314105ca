package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
	"github.com/fakhriyor21/Quizbot-final/internal/export"
	"github.com/rs/zerolog/log"
)

// Bot routes inbound chat events: to the authoring workflow if the sender
// is an administrator mid-authoring, to the registration flow or the quiz
// engine if the sender has one open, and to stateless menu handlers
// otherwise. Events for one user are handled to completion in order; the
// engine adds per-user locking for multi-worker transports.
type Bot struct {
	store        Store
	engine       *Engine
	authoring    *Authoring
	registration *Registration
	sender       Sender
	publisher    Publisher
	cache        Invalidator

	adminIDs      map[int64]bool
	noticeAdminID int64
	feedbackDelay time.Duration
	schedule      func(d time.Duration, fn func())
}

// BotOptions wires the collaborators; FeedbackDelay paces the gap between
// answer feedback and the next question (zero disables pacing).
type BotOptions struct {
	Store         Store
	Engine        *Engine
	Authoring     *Authoring
	Registration  *Registration
	Sender        Sender
	Publisher     Publisher
	Cache         Invalidator
	AdminIDs      []int64
	FeedbackDelay time.Duration
}

func NewBot(opts BotOptions) *Bot {
	admins := make(map[int64]bool, len(opts.AdminIDs))
	var notice int64
	for i, id := range opts.AdminIDs {
		admins[id] = true
		if i == 0 {
			notice = id
		}
	}
	return &Bot{
		store:         opts.Store,
		engine:        opts.Engine,
		authoring:     opts.Authoring,
		registration:  opts.Registration,
		sender:        opts.Sender,
		publisher:     opts.Publisher,
		cache:         opts.Cache,
		adminIDs:      admins,
		noticeAdminID: notice,
		feedbackDelay: opts.FeedbackDelay,
		schedule: func(d time.Duration, fn func()) {
			if d <= 0 {
				fn()
				return
			}
			time.AfterFunc(d, fn)
		},
	}
}

func (b *Bot) IsAdmin(userID int64) bool {
	return b.adminIDs[userID]
}

// Handle processes one inbound event to completion.
func (b *Bot) Handle(ctx context.Context, ev domain.Inbound) {
	switch ev.Kind {
	case domain.KindCommand:
		b.handleCommand(ctx, ev)
	case domain.KindMenuSelection:
		b.handleMenu(ctx, ev.SenderID, ev.Payload)
	case domain.KindText:
		b.handleText(ctx, ev.SenderID, ev.Payload)
	default:
		log.Debug().Str("kind", string(ev.Kind)).Msg("unknown inbound kind")
	}
}

func (b *Bot) handleCommand(ctx context.Context, ev domain.Inbound) {
	userID := ev.SenderID
	switch ev.Payload {
	case "start":
		b.handleStart(ctx, userID, ev.Argument)
	case "register":
		b.sender.Send(userID, b.registration.Start(userID))
	case "menu":
		b.showMenu(ctx, userID)
	case "myresults":
		b.showMyResults(ctx, userID)
	case "stats":
		b.showTodayStats(ctx, userID)
	case "leaderboard":
		b.showGlobalLeaderboard(ctx, userID)
	case "help":
		b.sender.Send(userID, msgHelp)
	case "create_test":
		if b.requireAdmin(userID) {
			b.sender.Send(userID, b.authoring.StartFast(userID))
		}
	case "create_test_old":
		if b.requireAdmin(userID) {
			b.sender.Send(userID, b.authoring.StartFull(userID))
		}
	case "admin":
		b.showAdminPanel(ctx, userID)
	case "list_tests":
		if b.requireAdmin(userID) {
			b.showAllTests(ctx, userID)
		}
	case "edit_tests":
		if b.requireAdmin(userID) {
			b.showEditTests(ctx, userID)
		}
	case "send_test":
		if b.requireAdmin(userID) {
			b.showSendTests(ctx, userID)
		}
	default:
		b.sender.Send(userID, msgHelp)
	}
}

// handleStart honors the channel deep link (argument "test_<id>") for
// registered users; everyone else lands in registration or the welcome.
func (b *Bot) handleStart(ctx context.Context, userID int64, argument string) {
	registered := b.isRegistered(ctx, userID)

	if testID, ok := parseIDPayload(argument, "test_"); ok && registered {
		b.startTest(ctx, userID, testID)
		return
	}
	if !registered {
		b.sender.Send(userID, b.registration.Start(userID))
		return
	}
	b.sendWelcome(ctx, userID)
}

func (b *Bot) handleText(ctx context.Context, userID int64, text string) {
	if b.IsAdmin(userID) && b.authoring.Active(userID) {
		reply, err := b.authoring.HandleText(ctx, userID, text)
		if err != nil {
			log.Error().Err(err).Int64("admin", userID).Msg("authoring step failed")
			if reply == "" {
				reply = "❌ Xatolik yuz berdi. Qaytadan urinib ko'ring."
			}
		}
		b.sender.Send(userID, reply)
		return
	}

	if b.registration.Active(userID) {
		reply, done, err := b.registration.HandleText(ctx, userID, text)
		if err != nil {
			log.Error().Err(err).Int64("user", userID).Msg("registration step failed")
			b.sender.Send(userID, "❌ Xatolik yuz berdi. Qaytadan urinib ko'ring.")
			return
		}
		b.sender.Send(userID, reply)
		if done {
			b.sendWelcome(ctx, userID)
		}
		return
	}

	if b.engine.Active(ctx, userID) {
		b.handleAnswer(ctx, userID, text)
		return
	}

	b.sender.Send(userID, "ℹ️ Asosiy menyu uchun /menu buyrug'ini yuboring.")
}

func (b *Bot) handleMenu(ctx context.Context, userID int64, data string) {
	switch {
	case data == "start_quiz":
		b.showAvailableTests(ctx, userID)
	case data == "cancel_quiz":
		if b.engine.Cancel(ctx, userID) {
			b.sender.Send(userID, msgCancelled)
		}
	case data == "leaderboard":
		b.showGlobalLeaderboard(ctx, userID)
	case data == "my_results":
		b.showMyResults(ctx, userID)
	case data == "profile":
		b.showProfile(ctx, userID)
	case data == "help":
		b.sender.Send(userID, msgHelp)
	case strings.HasPrefix(data, "test_"):
		if id, ok := parseIDPayload(data, "test_"); ok {
			b.startTest(ctx, userID, id)
		}
	case strings.HasPrefix(data, "lb_test_"):
		if id, ok := parseIDPayload(data, "lb_test_"); ok {
			b.showTestLeaderboard(ctx, userID, id)
		}
	case data == "admin_panel":
		b.showAdminPanel(ctx, userID)
	case data == "admin_users":
		b.showRecentUsers(ctx, userID)
	case data == "admin_results":
		b.showRecentResults(ctx, userID)
	case data == "admin_export_users":
		b.exportUsers(ctx, userID)
	case data == "admin_export_results":
		b.exportResults(ctx, userID)
	case strings.HasPrefix(data, "view_test_"):
		if id, ok := parseIDPayload(data, "view_test_"); ok && b.requireAdmin(userID) {
			b.showTestDetails(ctx, userID, id)
		}
	case strings.HasPrefix(data, "delete_test_"):
		if id, ok := parseIDPayload(data, "delete_test_"); ok && b.requireAdmin(userID) {
			b.confirmDeleteTest(userID, id)
		}
	case strings.HasPrefix(data, "edit_question_"):
		if id, ok := parseIDPayload(data, "edit_question_"); ok && b.requireAdmin(userID) {
			b.startEditQuestion(ctx, userID, id)
		}
	case strings.HasPrefix(data, "delete_question_"):
		if id, ok := parseIDPayload(data, "delete_question_"); ok && b.requireAdmin(userID) {
			b.deleteQuestion(ctx, userID, id)
		}
	case strings.HasPrefix(data, "confirm_delete_"):
		if id, ok := parseIDPayload(data, "confirm_delete_"); ok && b.requireAdmin(userID) {
			b.deleteTest(ctx, userID, id)
		}
	case strings.HasPrefix(data, "send_test_"):
		if id, ok := parseIDPayload(data, "send_test_"); ok && b.requireAdmin(userID) {
			b.publishTest(ctx, userID, id)
		}
	default:
		log.Debug().Str("data", data).Msg("unknown menu selection")
	}
}

// ---- quiz flow ----

func (b *Bot) startTest(ctx context.Context, userID, testID int64) {
	step, err := b.engine.Start(ctx, userID, testID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		b.sender.Send(userID, msgTestNotFound)
		return
	case errors.Is(err, domain.ErrTestInactive):
		b.sender.Send(userID, msgTestInactive)
		return
	case err != nil:
		log.Error().Err(err).Int64("test_id", testID).Msg("start test failed")
		b.sender.Send(userID, "❌ Testni boshlashda xatolik yuz berdi.")
		return
	}
	b.deliverStep(ctx, userID, step)
}

func (b *Bot) handleAnswer(ctx context.Context, userID int64, text string) {
	feedback, err := b.engine.Submit(ctx, userID, text)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		b.sender.Send(userID, msgInvalidAnswer)
		return
	case errors.Is(err, domain.ErrNoSession):
		b.sender.Send(userID, "ℹ️ Faol test yo'q. /menu")
		return
	case errors.Is(err, domain.ErrAttemptStale):
		// Questions shrank under the session; presenting finishes the
		// attempt with a summary over what is left.
		b.presentNext(ctx, userID)
		return
	case err != nil:
		log.Error().Err(err).Int64("user", userID).Msg("submit answer failed")
		b.sender.Send(userID, "❌ Javobni saqlashda xatolik yuz berdi.")
		return
	}

	b.sender.Send(userID, msgFeedback(feedback))

	// Pacing between feedback and the next question is UX, not correctness;
	// it runs as a scheduled continuation so the dispatcher never blocks.
	b.schedule(b.feedbackDelay, func() {
		b.presentNext(context.WithoutCancel(ctx), userID)
	})
}

func (b *Bot) presentNext(ctx context.Context, userID int64) {
	step, err := b.engine.Present(ctx, userID)
	if errors.Is(err, domain.ErrNoSession) {
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("present question failed")
		return
	}
	b.deliverStep(ctx, userID, step)
}

func (b *Bot) deliverStep(ctx context.Context, userID int64, step Step) {
	if step.Question != nil {
		cancel := domain.Choice{Label: "❌ Testni bekor qilish", Data: "cancel_quiz"}
		b.sender.Send(userID, msgQuestion(step.Question), cancel)
		return
	}
	if step.Summary == nil {
		return
	}

	b.sender.Send(userID, msgSummary(step.Summary),
		domain.Choice{Label: "📊 Batafsil natijalar", Data: "my_results"},
		domain.Choice{Label: "🏆 Reyting", Data: "leaderboard"},
		domain.Choice{Label: "📝 Yangi test", Data: "start_quiz"},
	)

	// Fire-and-forget admin notice; a lost notice never invalidates the
	// stored result.
	if b.noticeAdminID != 0 {
		user, err := b.store.GetUser(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Int64("user", userID).Msg("admin notice skipped")
			return
		}
		b.sender.Send(b.noticeAdminID, msgAdminResultNotice(user, step.Summary))
	}
}

// ---- menus & reports ----

func (b *Bot) showMenu(ctx context.Context, userID int64) {
	if !b.ensureRegistered(ctx, userID) {
		return
	}
	b.sender.Send(userID, "🎮 Asosiy menyu:",
		domain.Choice{Label: "📝 Test topshirish", Data: "start_quiz"},
		domain.Choice{Label: "🏆 Reyting", Data: "leaderboard"},
		domain.Choice{Label: "📊 Mening natijalarim", Data: "my_results"},
		domain.Choice{Label: "👤 Profil", Data: "profile"},
		domain.Choice{Label: "ℹ️ Yordam", Data: "help"},
	)
}

func (b *Bot) sendWelcome(ctx context.Context, userID int64) {
	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user", userID).Msg("welcome skipped")
		return
	}
	results, _ := b.store.ListUserResults(ctx, userID)
	rank := b.rankOrZero(ctx, userID)
	b.sender.Send(userID, msgWelcome(user, len(results), rank),
		domain.Choice{Label: "📝 Test topshirish", Data: "start_quiz"},
		domain.Choice{Label: "🏆 Reyting", Data: "leaderboard"},
		domain.Choice{Label: "📊 Mening natijalarim", Data: "my_results"},
		domain.Choice{Label: "ℹ️ Yordam", Data: "help"},
	)
}

func (b *Bot) showAvailableTests(ctx context.Context, userID int64) {
	if !b.ensureRegistered(ctx, userID) {
		return
	}
	tests, err := b.store.ListActiveTests(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list active tests failed")
		return
	}
	if len(tests) == 0 {
		b.sender.Send(userID, msgNoTests)
		return
	}
	choices := make([]domain.Choice, 0, len(tests))
	for _, t := range tests {
		choices = append(choices, domain.Choice{
			Label: fmt.Sprintf("📝 %s", t.Name),
			Data:  fmt.Sprintf("test_%d", t.ID),
		})
	}
	b.sender.Send(userID, "📝 Qaysi testni topshirmoqchisiz?", choices...)
}

func (b *Bot) showMyResults(ctx context.Context, userID int64) {
	if !b.ensureRegistered(ctx, userID) {
		return
	}
	results, err := b.store.ListUserResults(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("list results failed")
		return
	}
	b.sender.Send(userID, msgMyResults(results))
}

func (b *Bot) showTodayStats(ctx context.Context, userID int64) {
	stats, err := b.store.TodayStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("today stats failed")
		return
	}
	b.sender.Send(userID, msgTodayStats(stats))
}

func (b *Bot) showGlobalLeaderboard(ctx context.Context, userID int64) {
	rows, err := b.store.GlobalLeaderboard(ctx, 10)
	if err != nil {
		log.Error().Err(err).Msg("global leaderboard failed")
		return
	}
	b.sender.Send(userID, msgGlobalLeaderboard(rows))
}

func (b *Bot) showTestLeaderboard(ctx context.Context, userID, testID int64) {
	test, err := b.store.GetTest(ctx, testID)
	if err != nil {
		b.sender.Send(userID, msgTestNotFound)
		return
	}
	rows, err := b.store.TestLeaderboard(ctx, testID, 10)
	if err != nil {
		log.Error().Err(err).Int64("test_id", testID).Msg("test leaderboard failed")
		return
	}
	b.sender.Send(userID, msgTestLeaderboard(test.Name, rows))
}

func (b *Bot) showProfile(ctx context.Context, userID int64) {
	user, err := b.store.GetUser(ctx, userID)
	if err != nil {
		b.sender.Send(userID, b.registration.Start(userID))
		return
	}
	results, _ := b.store.ListUserResults(ctx, userID)
	b.sender.Send(userID, msgProfile(user, len(results), b.rankOrZero(ctx, userID)))
}

// ---- admin surfaces ----

func (b *Bot) showAdminPanel(ctx context.Context, userID int64) {
	if !b.requireAdmin(userID) {
		return
	}
	stats, err := b.store.TotalStats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("total stats failed")
		return
	}
	b.sender.Send(userID, msgAdminPanel(stats),
		domain.Choice{Label: "👥 Foydalanuvchilar", Data: "admin_users"},
		domain.Choice{Label: "📊 Natijalar", Data: "admin_results"},
		domain.Choice{Label: "📤 Foydalanuvchilar CSV", Data: "admin_export_users"},
		domain.Choice{Label: "📤 Natijalar CSV", Data: "admin_export_results"},
	)
}

func (b *Bot) showAllTests(ctx context.Context, userID int64) {
	tests, err := b.store.ListTests(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list tests failed")
		return
	}
	b.sender.Send(userID, msgTestList(tests))
}

func (b *Bot) showEditTests(ctx context.Context, userID int64) {
	tests, err := b.store.ListTests(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list tests failed")
		return
	}
	if len(tests) == 0 {
		b.sender.Send(userID, msgNoTests)
		return
	}
	choices := make([]domain.Choice, 0, 2*len(tests))
	for _, t := range tests {
		choices = append(choices,
			domain.Choice{Label: fmt.Sprintf("👁 %s", t.Name), Data: fmt.Sprintf("view_test_%d", t.ID)},
			domain.Choice{Label: fmt.Sprintf("🗑 %s", t.Name), Data: fmt.Sprintf("delete_test_%d", t.ID)},
		)
	}
	b.sender.Send(userID, "✏️ Testlarni tahrirlash:", choices...)
}

func (b *Bot) showSendTests(ctx context.Context, userID int64) {
	tests, err := b.store.ListTests(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list tests failed")
		return
	}
	choices := make([]domain.Choice, 0, len(tests))
	for _, t := range tests {
		if t.SentToChannel {
			continue
		}
		choices = append(choices, domain.Choice{
			Label: fmt.Sprintf("📢 %s", t.Name),
			Data:  fmt.Sprintf("send_test_%d", t.ID),
		})
	}
	if len(choices) == 0 {
		b.sender.Send(userID, "📭 Kanalga yuborilmagan test yo'q.")
		return
	}
	b.sender.Send(userID, "📢 Qaysi testni kanalga yuborish kerak?", choices...)
}

func (b *Bot) showTestDetails(ctx context.Context, userID, testID int64) {
	test, err := b.store.GetTest(ctx, testID)
	if err != nil {
		b.sender.Send(userID, msgTestNotFound)
		return
	}
	questions, err := b.store.ListQuestions(ctx, testID)
	if err != nil {
		log.Error().Err(err).Int64("test_id", testID).Msg("list questions failed")
		return
	}
	choices := make([]domain.Choice, 0, 2*len(questions))
	for i, q := range questions {
		choices = append(choices,
			domain.Choice{Label: fmt.Sprintf("✏️ %d-savolni tahrirlash", i+1), Data: fmt.Sprintf("edit_question_%d", q.ID)},
			domain.Choice{Label: fmt.Sprintf("🗑 %d-savolni o'chirish", i+1), Data: fmt.Sprintf("delete_question_%d", q.ID)},
		)
	}
	b.sender.Send(userID, msgTestDetails(test, questions), choices...)
}

// startEditQuestion hands the admin to the authoring machine, which walks
// the prompt/options/correct-label steps and updates the row.
func (b *Bot) startEditQuestion(ctx context.Context, userID, questionID int64) {
	question, err := b.store.GetQuestion(ctx, questionID)
	if err != nil {
		b.sender.Send(userID, "❌ Savol topilmadi.")
		return
	}
	b.sender.Send(userID, b.authoring.StartEdit(userID, question))
}

func (b *Bot) deleteQuestion(ctx context.Context, userID, questionID int64) {
	question, err := b.store.GetQuestion(ctx, questionID)
	if err != nil {
		b.sender.Send(userID, "❌ Savol topilmadi.")
		return
	}
	if err := b.store.DeleteQuestion(ctx, questionID); err != nil {
		log.Error().Err(err).Int64("question_id", questionID).Msg("delete question failed")
		b.sender.Send(userID, "❌ Savolni o'chirib bo'lmadi.")
		return
	}
	b.invalidate(question.TestID)
	b.sender.Send(userID, "✅ Savol o'chirildi.")
	b.showTestDetails(ctx, userID, question.TestID)
}

func (b *Bot) confirmDeleteTest(userID, testID int64) {
	b.sender.Send(userID,
		fmt.Sprintf("🗑 #%d testni o'chirishni tasdiqlaysizmi?\n\nTestga bog'liq barcha savollar, natijalar va javoblar ham o'chadi.", testID),
		domain.Choice{Label: "✅ Ha, o'chirish", Data: fmt.Sprintf("confirm_delete_%d", testID)},
		domain.Choice{Label: "❌ Bekor qilish", Data: "admin_panel"},
	)
}

func (b *Bot) deleteTest(ctx context.Context, userID, testID int64) {
	if err := b.store.DeleteTest(ctx, testID); err != nil {
		log.Error().Err(err).Int64("test_id", testID).Msg("cascade delete failed")
		b.sender.Send(userID, "❌ Testni o'chirib bo'lmadi; hech narsa o'zgarmadi.")
		return
	}
	b.invalidate(testID)
	b.sender.Send(userID, fmt.Sprintf("✅ Test #%d va unga bog'liq ma'lumotlar o'chirildi.", testID))
}

func (b *Bot) publishTest(ctx context.Context, userID, testID int64) {
	if err := b.publisher.Publish(ctx, testID); err != nil {
		log.Warn().Err(err).Int64("test_id", testID).Msg("manual broadcast failed")
		b.sender.Send(userID, "❌ Kanalga yuborishda xatolik yuz berdi.")
		return
	}
	b.sender.Send(userID, fmt.Sprintf("✅ Test #%d kanalga yuborildi.", testID))
}

// showRecentUsers renders the last five registrations in chat; the full
// list goes through the CSV export.
func (b *Bot) showRecentUsers(ctx context.Context, userID int64) {
	if !b.requireAdmin(userID) {
		return
	}
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list users failed")
		return
	}
	b.sender.Send(userID, msgRecentUsers(users))
}

func (b *Bot) showRecentResults(ctx context.Context, userID int64) {
	if !b.requireAdmin(userID) {
		return
	}
	results, err := b.store.ListResults(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list results failed")
		return
	}
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list users failed")
		return
	}
	b.sender.Send(userID, msgRecentResults(results, users))
}

func (b *Bot) exportUsers(ctx context.Context, userID int64) {
	if !b.requireAdmin(userID) {
		return
	}
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("export users failed")
		return
	}
	csv, err := export.UsersCSV(users)
	if err != nil {
		log.Error().Err(err).Msg("users csv failed")
		return
	}
	b.sender.Send(userID, csv)
}

func (b *Bot) exportResults(ctx context.Context, userID int64) {
	if !b.requireAdmin(userID) {
		return
	}
	results, err := b.store.ListResults(ctx)
	if err != nil {
		log.Error().Err(err).Msg("export results failed")
		return
	}
	users, err := b.store.ListUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("export results failed")
		return
	}
	csv, err := export.ResultsCSV(results, users)
	if err != nil {
		log.Error().Err(err).Msg("results csv failed")
		return
	}
	b.sender.Send(userID, csv)
}

// ---- helpers ----

func (b *Bot) requireAdmin(userID int64) bool {
	if b.IsAdmin(userID) {
		return true
	}
	b.sender.Send(userID, msgDenied)
	return false
}

func (b *Bot) isRegistered(ctx context.Context, userID int64) bool {
	_, err := b.store.GetUser(ctx, userID)
	return err == nil
}

func (b *Bot) ensureRegistered(ctx context.Context, userID int64) bool {
	if b.isRegistered(ctx, userID) {
		return true
	}
	b.sender.Send(userID, b.registration.Start(userID))
	return false
}

func (b *Bot) invalidate(testID int64) {
	if b.cache != nil {
		b.cache.Invalidate(testID)
	}
}

func (b *Bot) rankOrZero(ctx context.Context, userID int64) int {
	rank, err := b.store.UserRank(ctx, userID)
	if err != nil {
		return 0
	}
	return rank
}

func parseIDPayload(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
