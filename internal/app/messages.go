package app

import (
	"fmt"
	"strings"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

// User-facing texts. The product speaks Uzbek; keep wording stable, the
// admin export tooling and pinned channel posts reference it.

const (
	msgAskTestKey   = "Test kalitini kiriting (masalan: FRONTEND-01)."
	msgAskAnswerKey = "To'g'ri javob kalitini yuboring (masalan: 1a2b3c)."

	msgAskTestName      = "📝 Yangi test yaratish\n\nTest nomini kiriting:"
	msgAskQuestionCount = "🔢 Savollar sonini kiriting:\n\n(Masalan: 10, 20, 30)"
	msgCountNotNumber   = "⚠️ Iltimos, faqat raqam kiriting!"
	msgCountOutOfRange  = "⚠️ Iltimos, 1 dan 50 gacha bo'lgan son kiriting!"
	msgAskOptions       = "📋 Variantlarni kiriting:\n\nQuyidagi formatda kiriting:\nA) Birinchi variant\nB) Ikkinchi variant\nC) Uchinchi variant\nD) To'rtinchi variant"
	msgOptionsMalformed = "⚠️ Format noto'g'ri! A, B, C, D variantlarini kiriting."
	msgAskCorrectLabel  = "✅ To'g'ri javobni kiriting:\n\n(A, B, C, D harflaridan biri)"

	msgCorrectLabelInvalid = "⚠️ Iltimos, faqat A, B, C, D harflaridan birini kiriting!"
	msgAskNewPrompt        = "Yangi savol matnini kiriting:"
	msgQuestionUpdated     = "✅ Savol yangilandi!\n\nTestni ko'rish: /edit_tests"
	msgInvalidAnswer       = "⚠️ Iltimos, faqat A, B, C, D harflaridan birini yuboring!"

	msgRegistrationIntro = "👋 Assalomu alaykum!\n\n🤖 Uzbek Quiz Bot ga xush kelibsiz!\n\n📝 Botdan to'liq foydalanish uchun ro'yxatdan o'tishingiz kerak."
	msgAskFirstName      = "📛 Ismingizni kiriting:"
	msgAskLastName       = "📛 Familiyangizni kiriting:"
	msgAskPhone          = "📱 Telefon raqamingizni yuboring (+998XXXXXXXXX formatida):"
	msgAskSchool         = "🏫 Qaysi maktabda o'qiysiz?"
	msgAskStudyCenter    = "🎓 Qaysi o'quv markazida o'qiysiz? (Agar o'qimasangiz, «Yo'q» deb yozing)"
	msgAskRegion         = "🌍 Viloyatingizni kiriting:"
	msgAskDistrict       = "📍 Tumaningizni kiriting:"

	msgDenied = "❌ Siz admin emassiz!"

	msgTestNotFound = "❌ Test topilmadi!"
	msgTestInactive = "❌ Bu test hozir mavjud emas!"
	msgCancelled    = "❌ Test bekor qilindi.\n\nAsosiy menyuga qaytish: /menu"
	msgNoTests      = "📭 Hozircha faol testlar yo'q."
	msgNoResults    = "📭 Siz hali test topshirmagansiz."

	msgChannelSamplesHeader = "📚 Namuna savollari:\n\nQuyida testdan bir nechta namuna savollari:"

	msgHelp = `ℹ️ Yordam

/menu - Asosiy menyu
/myresults - Mening natijalarim
/stats - Statistika
/leaderboard - Reyting jadvali

Test topshirish uchun /menu dan "Test topshirish" ni tanlang.
Har bir savolga A, B, C yoki D harfi bilan javob bering.`
)

func msgTestCreateFailed(key string) string {
	return fmt.Sprintf("❌ Test %s saqlanmadi — ehtimol mavjud.", key)
}

func msgFastTestCreated(test *domain.Test, answerKey string) string {
	return fmt.Sprintf("✅ Test %s saqlandi.\n\n🔑 Test kaliti: %s\n🔐 Javob kaliti: %s\n🆔 Test ID: %d\n\n"+
		"📝 Endi savollar qo'shish uchun /edit_tests buyrug'idan foydalanib, '%s' testini tanlang va savollar qo'shing.",
		test.Name, test.Name, answerKey, test.ID, test.Name)
}

func msgEditQuestionIntro(q *domain.Question) string {
	return fmt.Sprintf("✏️ Savolni tahrirlash:\n\nJoriy savol matni:\n%s\n\nYangi savol matnini kiriting:", q.Prompt)
}

func msgTestStarted(testID int64) string {
	return fmt.Sprintf("✅ Test yaratildi! ID: %d\n\nEndi 1-savolni kiriting:", testID)
}

func msgAskQuestionPrompt(n int) string {
	return fmt.Sprintf("Endi %d-savolni kiriting:", n)
}

func msgQuestionSaved(n int) string {
	return fmt.Sprintf("✅ %d-savol saqlandi!\n\nEndi %d-savolni kiriting:", n, n+1)
}

func msgTestFinalized(name string, count int, testID int64) string {
	return fmt.Sprintf("🎉 Test muvaffaqiyatli yaratildi!\n\n📝 Test nomi: %s\n🔢 Savollar soni: %d\n🆔 Test ID: %d\n\n"+
		"✅ Test endi foydalanuvchilar uchun mavjud!\n📢 Kanalga ham yuborilmoqda...", name, count, testID)
}

func msgRegistrationDone(u *domain.User) string {
	return fmt.Sprintf("🎉 Ro'yxatdan o'tish yakunlandi!\n\n👤 %s %s\n🏫 %s\n🌍 %s, %s\n\nAsosiy menyu: /menu",
		u.FirstName, u.LastName, u.School, u.Region, u.District)
}

func msgWelcome(u *domain.User, resultCount, rank int) string {
	position := "Hali test topshirmagansiz"
	if rank > 0 {
		position = fmt.Sprintf("#%d", rank)
	}
	return fmt.Sprintf("👋 Xush kelibsiz, %s %s!\n\n🎯 Quiz Botga xush kelibsiz!\n\n"+
		"📊 Sizning statistikangiz:\n• Testlar soni: %d\n• Reyting: %s\n\n"+
		"🎮 Mavjud funksiyalar:\n/menu - Asosiy menyu\n/myresults - Mening natijalarim\n/stats - Statistika\n/leaderboard - Reyting jadvali",
		u.FirstName, u.LastName, resultCount, position)
}

// ProgressBar renders ten segments filled proportionally to index/total,
// suffixed with the 1-based position.
func ProgressBar(current, total int) string {
	if total == 0 {
		return ""
	}
	filled := current * 10 / total
	var b strings.Builder
	for i := 0; i < 10; i++ {
		if i < filled {
			b.WriteString("🟩")
		} else {
			b.WriteString("⬜")
		}
	}
	return fmt.Sprintf("%s %d/%d", b.String(), current+1, total)
}

func msgQuestion(view *QuestionView) string {
	q := view.Question
	return fmt.Sprintf("%s\n\n❓ Savol #%d:\n%s\n\n📋 Variantlar:\nA) %s\nB) %s\nC) %s\nD) %s\n\n📝 Javobingizni (A, B, C, D) formatida yuboring:",
		ProgressBar(view.Number-1, view.Total), view.Number, q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD)
}

func msgFeedback(f Feedback) string {
	if f.Correct {
		return "✅ To'g'ri! Ajoyib javob! 🎉"
	}
	return fmt.Sprintf("❌ Noto'g'ri. To'g'ri javob: %s", f.CorrectLabel)
}

func tierLine(t domain.Tier) string {
	switch t {
	case domain.TierTop:
		return "🎖️ A'lo baho! Siz ajoyib natija ko'rsatdingiz!"
	case domain.TierGood:
		return "👍 Yaxshi natija! Davom eting!"
	case domain.TierPassing:
		return "👌 Qoniqarli natija. Yana bir bor urinib ko'ring!"
	default:
		return "💪 Qo'rqmang! Keyingi safar yaxshiroq natija ko'rsatasiz!"
	}
}

func msgSummary(s *Summary) string {
	position := "Hali reytingda emas"
	if s.Rank > 0 {
		position = fmt.Sprintf("#%d", s.Rank)
	}
	return fmt.Sprintf("🎉 Test yakunlandi!\n\n📊 Sizning natijalaringiz:\n• Test nomi: %s\n• To'g'ri javoblar: %d/%d\n• Foiz: %.1f%%\n• Reytingdagi o'rningiz: %s\n\n%s\n\n📈 Keyingi bosqich: /menu - Yangi test topshirish",
		s.Test.Name, s.Correct, s.Total, s.Percentage, position, tierLine(s.Tier))
}

func msgAdminResultNotice(u *domain.User, s *Summary) string {
	return fmt.Sprintf("📊 Yangi test natijasi!\n\n👤 Foydalanuvchi: %s %s\n📝 Test: %s\n✅ To'g'ri javoblar: %d/%d\n📈 Foiz: %.1f%%\n🏫 Maktab: %s",
		u.FirstName, u.LastName, s.Test.Name, s.Correct, s.Total, s.Percentage, u.School)
}

func msgChannelAnnouncement(test *domain.Test, questionCount int) string {
	return fmt.Sprintf("🎉 YANGI TEST QO'SHILDI! 🎉\n\n📝 Test nomi: %s\n📊 Savollar soni: %d\n⏰ Yaratilgan sana: %s\n🏆 Test ID: %d\n\n"+
		"📌 Test topshirish uchun:\n1️⃣ Quyidagi tugmani bosing\n2️⃣ \"%s\" testini tanlang\n3️⃣ Har bir savolga javob bering\n\n"+
		"🔔 Diqqat: Testni faqat bir marta topshirishingiz mumkin!\n\n👇 Testni boshlash uchun quyidagi tugmani bosing:",
		test.Name, questionCount, test.CreatedAt.Format("2006-01-02"), test.ID, test.Name)
}

func msgChannelSampleQuestion(n int, q domain.Question) string {
	return fmt.Sprintf("❓ Savol #%d:\n%s\n\nA) %s\nB) %s\nC) %s\nD) %s\n\n🔍 Javob: Testni boshlang va to'g'ri javobni bilib oling!",
		n, q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD)
}

func msgChannelRemaining(n int) string {
	return fmt.Sprintf("📖 Va yana %d ta savol...\n\nBarcha savollarni ko'rish va testni topshirish uchun yuqoridagi tugmani bosing!", n)
}

func msgTestList(tests []domain.Test) string {
	if len(tests) == 0 {
		return msgNoTests
	}
	var b strings.Builder
	b.WriteString("📝 Mavjud testlar:\n\n")
	for _, t := range tests {
		status := "✅"
		if !t.IsActive {
			status = "🚫"
		}
		sent := ""
		if t.SentToChannel {
			sent = " 📢"
		}
		fmt.Fprintf(&b, "%s #%d %s (%d ta savol)%s\n", status, t.ID, t.Name, t.QuestionCount, sent)
	}
	return b.String()
}

func msgTestLeaderboard(testName string, rows []domain.TestLeaderboardRow) string {
	if len(rows) == 0 {
		return "📭 Bu test uchun natijalar hali yo'q."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Reyting: %s\n\n", testName)
	for i, row := range rows {
		fmt.Fprintf(&b, "%s %s %s — %d/%d (%.1f%%)\n",
			rankBadge(i+1), row.FirstName, row.LastName, row.CorrectCount, row.TotalCount, row.Percentage)
	}
	return b.String()
}

func msgGlobalLeaderboard(rows []domain.GlobalLeaderboardRow) string {
	if len(rows) == 0 {
		return "📭 Reyting hali bo'sh."
	}
	var b strings.Builder
	b.WriteString("🏆 Umumiy reyting:\n\n")
	for i, row := range rows {
		fmt.Fprintf(&b, "%s %s %s — o'rtacha %.1f%% (%d ta to'g'ri)\n",
			rankBadge(i+1), row.FirstName, row.LastName, row.AvgPercentage, row.TotalCorrect)
	}
	return b.String()
}

func rankBadge(position int) string {
	switch position {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d.", position)
}

func msgMyResults(results []domain.Result) string {
	if len(results) == 0 {
		return msgNoResults
	}
	var b strings.Builder
	b.WriteString("📊 Mening natijalarim:\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "• %s — %d/%d (%.1f%%) — %s\n",
			r.TestName, r.CorrectCount, r.TotalCount, r.Percentage, r.CompletedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func msgTodayStats(s domain.TodayStats) string {
	return fmt.Sprintf("📊 Bugungi statistika:\n\n• Faol foydalanuvchilar: %d\n• Topshirilgan testlar: %d", s.ActiveUsers, s.TestsTaken)
}

func msgAdminPanel(s domain.TotalStats) string {
	return fmt.Sprintf("👑 Admin panel\n\n👤 Foydalanuvchilar: %d\n📝 Testlar: %d\n📊 Natijalar: %d\n📢 Kanalga yuborilgan: %d",
		s.TotalUsers, s.TotalTests, s.TotalResults, s.SentTests)
}

// msgRecentUsers shows the last five registrations; the full list lives in
// the CSV export.
func msgRecentUsers(users []domain.User) string {
	if len(users) == 0 {
		return "👥 Foydalanuvchilar topilmadi."
	}
	var b strings.Builder
	b.WriteString("👥 So'ngi 5 foydalanuvchi:\n\n")
	for i, u := range users {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "👤 %s %s\n📱 %s\n🏫 %s\n📍 %s, %s\n📅 %s\n━━━━━━━━━━━━━━━━━━\n",
			u.FirstName, u.LastName, u.Phone, u.School, u.Region, u.District,
			u.RegisteredAt.Format("2006-01-02"))
	}
	if len(users) > 5 {
		fmt.Fprintf(&b, "\n📖 Jami: %d ta foydalanuvchi\n📤 Barchasini olish uchun: Eksport (CSV)", len(users))
	}
	return b.String()
}

func msgRecentResults(results []domain.Result, users []domain.User) string {
	if len(results) == 0 {
		return "📊 Natijalar topilmadi."
	}
	byTelegramID := make(map[int64]domain.User, len(users))
	for _, u := range users {
		byTelegramID[u.TelegramID] = u
	}
	var b strings.Builder
	b.WriteString("📊 So'ngi 5 natija:\n\n")
	for i, r := range results {
		if i == 5 {
			break
		}
		u := byTelegramID[r.UserID]
		fmt.Fprintf(&b, "👤 %s %s\n📝 %s\n✅ %d/%d\n📊 %.1f%%\n📅 %s\n━━━━━━━━━━━━━━━━━━\n",
			u.FirstName, u.LastName, r.TestName, r.CorrectCount, r.TotalCount, r.Percentage,
			r.CompletedAt.Format("2006-01-02 15:04"))
	}
	if len(results) > 5 {
		fmt.Fprintf(&b, "\n📖 Jami: %d ta natija\n📤 Barchasini olish uchun: Eksport (CSV)", len(results))
	}
	return b.String()
}

func msgProfile(u *domain.User, resultCount, rank int) string {
	position := "—"
	if rank > 0 {
		position = fmt.Sprintf("#%d", rank)
	}
	return fmt.Sprintf("👤 Profil\n\n• Ism: %s %s\n• Telefon: %s\n• Maktab: %s\n• Viloyat: %s, %s\n• Testlar: %d\n• Reyting: %s",
		u.FirstName, u.LastName, u.Phone, u.School, u.Region, u.District, resultCount, position)
}

func msgTestDetails(test *domain.Test, questions []domain.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 Test #%d: %s\n\nSavollar (%d):\n", test.ID, test.Name, len(questions))
	for i, q := range questions {
		fmt.Fprintf(&b, "\n%d. %s\nA) %s\nB) %s\nC) %s\nD) %s\n✅ %s\n",
			i+1, q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectOption)
	}
	return b.String()
}
