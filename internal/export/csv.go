// Package export serializes users and results into the CSV layout the
// existing admin tooling expects. Headers match the historical exports and
// must not be reworded without migrating that tooling.
package export

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

// UsersCSV renders all users in the order given, which the stores keep as
// newest registration first.
func UsersCSV(users []domain.User) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{"ID", "Telegram ID", "Ism", "Familiya", "Telefon",
		"Maktab", "O'quv Markazi", "Viloyat", "Tuman", "Ro'yxatdan o'tgan sana"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, u := range users {
		record := []string{
			strconv.FormatInt(u.ID, 10),
			strconv.FormatInt(u.TelegramID, 10),
			u.FirstName,
			u.LastName,
			u.Phone,
			u.School,
			u.StudyCenter,
			u.Region,
			u.District,
			u.RegisteredAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}

// ResultsCSV renders all results joined with user names. The percentage is
// the frozen stored value, formatted the way the original exports did.
func ResultsCSV(results []domain.Result, users []domain.User) (string, error) {
	byTelegramID := make(map[int64]domain.User, len(users))
	for _, u := range users {
		byTelegramID[u.TelegramID] = u
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{"ID", "User ID", "Test ID", "Test Nomi", "Ism", "Familiya",
		"To'g'ri javoblar", "Umumiy savollar", "Foiz", "Vaqt"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, r := range results {
		u := byTelegramID[r.UserID]
		record := []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.UserID, 10),
			strconv.FormatInt(r.TestID, 10),
			r.TestName,
			u.FirstName,
			u.LastName,
			strconv.Itoa(r.CorrectCount),
			strconv.Itoa(r.TotalCount),
			fmt.Sprintf("%.1f%%", r.Percentage),
			r.CompletedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}
