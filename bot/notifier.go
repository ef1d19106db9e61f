package bot

import (
	"context"
	"time"

	"taxi-shifts/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// PauseReminder implements services.Notifier.
func (d *DriverBot) PauseReminder(_ context.Context, driverID int64, pausedFor time.Duration) error {
	_, err := d.out.Send(tgbotapi.NewMessage(driverID, pauseReminderText(pausedFor)))
	return err
}

// ShiftAbandoned implements services.Notifier.
func (d *DriverBot) ShiftAbandoned(_ context.Context, shift models.Shift) error {
	msg := tgbotapi.NewMessage(shift.DriverID, abandonedText(shift, d.loc))
	msg.ReplyMarkup = shiftKeyboard(models.ShiftStatusIdle)
	_, err := d.out.Send(msg)
	return err
}
