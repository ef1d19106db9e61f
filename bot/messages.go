package bot

import (
	"fmt"
	"strings"
	"time"

	"taxi-shifts/models"
	"taxi-shifts/services"
)

const (
	msgAlreadyWorking = "У вас уже есть открытая смена."
	msgNotWorking     = "Нет активной смены. Нажмите «" + btnStart + "»."
	msgInvalidAmount  = "Введите сумму кассы целым неотрицательным числом, например 3500."
	msgNoPendingShift = "Нет смены, ожидающей ввода кассы. Начните новую смену."
	msgStoreFailure   = "Не удалось сохранить изменения. Попробуйте ещё раз через минуту."
	msgChooseAction   = "Пожалуйста, выберите действие на клавиатуре."
	msgAskCash        = "Введите сумму кассы за смену (целое число, ₽):"
)

func clock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

func welcomeText(snap *services.Snapshot, loc *time.Location) string {
	switch snap.Status {
	case models.ShiftStatusActive:
		return fmt.Sprintf("🚕 Смена идёт с %s.\nОтработано: %s.",
			clock(snap.Shift.StartTime, loc), services.FormatDuration(snap.WorkedSeconds))
	case models.ShiftStatusPaused:
		return fmt.Sprintf("⏸ Смена на паузе %s.\nОтработано: %s.",
			services.FormatDuration(int64(snap.PausedFor/time.Second)), services.FormatDuration(snap.WorkedSeconds))
	case models.ShiftStatusAwaitingCash:
		return fmt.Sprintf("Смена завершена, отработано %s.\n%s",
			services.FormatDuration(snap.WorkedSeconds), msgAskCash)
	}
	return "🚕 Добро пожаловать! Нажмите «" + btnStart + "», когда выйдете на линию."
}

func transitionText(tr *services.Transition, loc *time.Location) string {
	switch tr.Operation {
	case services.OpStart:
		return fmt.Sprintf("✅ Смена начата в %s.", clock(tr.Shift.StartTime, loc))
	case services.OpPause:
		return fmt.Sprintf("⏸ Пауза с %s.\nОтработано: %s.", clock(tr.At, loc), services.FormatDuration(tr.WorkedSeconds))
	case services.OpResume:
		return fmt.Sprintf("▶️ Работа продолжена. Пауза длилась %s.\nОтработано: %s.",
			services.FormatDuration(int64(tr.PauseElapsed/time.Second)), services.FormatDuration(tr.WorkedSeconds))
	case services.OpEnd:
		return fmt.Sprintf("🏁 Смена завершена.\nОтработано: %s.\n%s", tr.Shift.DurationText, msgAskCash)
	case services.OpSubmit:
		var b strings.Builder
		b.WriteString("💰 Смена закрыта.\n")
		fmt.Fprintf(&b, "Время: %s\n", tr.Shift.DurationText)
		if tr.Shift.Cash != nil {
			fmt.Fprintf(&b, "Касса: %s ₽\n", formatMoney(*tr.Shift.Cash))
		}
		if tr.Shift.HourlyRate != nil {
			fmt.Fprintf(&b, "В час: %s ₽", formatMoney(*tr.Shift.HourlyRate))
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return "Готово."
}

// formatMoney groups thousands with spaces: 1234567 -> "1 234 567".
func formatMoney(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, " ")
	if neg {
		return "-" + out
	}
	return out
}

func periodLine(title string, t models.PeriodTotals, plan *models.Plan) string {
	line := fmt.Sprintf("%s: %d смен, %s, %s ₽", title, t.Shifts, services.FormatDuration(t.WorkedSeconds), formatMoney(t.Cash))
	if plan != nil && plan.TargetCash > 0 {
		pct := t.Cash * 100 / plan.TargetCash
		line += fmt.Sprintf(" (план %s ₽, %d%%)", formatMoney(plan.TargetCash), pct)
	}
	return line
}

func summaryText(sum *services.DriverSummary) string {
	return strings.Join([]string{
		"📊 Итоги",
		periodLine("Сегодня", sum.Today, nil),
		periodLine("Неделя", sum.Week, sum.WeekPlan),
		periodLine("Месяц", sum.Month, sum.MonthPlan),
	}, "\n")
}

func historyText(shifts []models.Shift, loc *time.Location) string {
	if len(shifts) == 0 {
		return "📋 Завершённых смен пока нет."
	}
	var b strings.Builder
	b.WriteString("📋 Последние смены:")
	for _, s := range shifts {
		cash := int64(0)
		if s.Cash != nil {
			cash = *s.Cash
		}
		fmt.Fprintf(&b, "\n%s %s, %s, %s ₽",
			s.StartTime.In(loc).Format("02.01"), clock(s.StartTime, loc), s.DurationText, formatMoney(cash))
	}
	return b.String()
}

func pauseReminderText(pausedFor time.Duration) string {
	return fmt.Sprintf("⏰ Вы на паузе уже %s. Не забудьте продолжить или завершить смену.",
		services.FormatDuration(int64(pausedFor/time.Second)))
}

func abandonedText(shift models.Shift, loc *time.Location) string {
	return fmt.Sprintf("Смена от %s закрыта автоматически: сумма кассы не была введена за сутки. Записано %s и 0 ₽.",
		shift.StartTime.In(loc).Format("02.01 15:04"), shift.DurationText)
}
