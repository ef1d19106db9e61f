package bot

import (
	"taxi-shifts/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnStart   = "Начать смену"
	btnPause   = "⏸ Пауза"
	btnResume  = "▶️ Продолжить"
	btnEnd     = "Завершить смену"
	btnSummary = "📊 Итоги"
	btnHistory = "📋 История"
)

// shiftKeyboard shows only the actions valid in the given status.
func shiftKeyboard(status models.ShiftStatus) tgbotapi.ReplyKeyboardMarkup {
	var first []tgbotapi.KeyboardButton
	switch status {
	case models.ShiftStatusActive:
		first = tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPause),
			tgbotapi.NewKeyboardButton(btnEnd),
		)
	case models.ShiftStatusPaused:
		first = tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnResume),
			tgbotapi.NewKeyboardButton(btnEnd),
		)
	default:
		first = tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStart),
		)
	}
	kb := tgbotapi.NewReplyKeyboard(
		first,
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSummary),
			tgbotapi.NewKeyboardButton(btnHistory),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
