package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"taxi-shifts/config"
	"taxi-shifts/models"
	"taxi-shifts/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const historySize = 10

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type shiftMachine interface {
	StartShift(ctx context.Context, driverID int64) (*services.Transition, error)
	TogglePause(ctx context.Context, driverID int64) (*services.Transition, error)
	EndShift(ctx context.Context, driverID int64) (*services.Transition, error)
	SubmitCash(ctx context.Context, driverID int64, input string) (*services.Transition, error)
	Snapshot(ctx context.Context, driverID int64) (*services.Snapshot, error)
}

type reportSource interface {
	DriverSummary(ctx context.Context, driverID int64, now time.Time) (*services.DriverSummary, error)
	RecentShifts(ctx context.Context, driverID int64, n int) ([]models.Shift, error)
}

// DriverBot turns chat messages into shift transitions. Drivers talk to it in
// private chats, so the chat id doubles as the driver id for outgoing notices.
type DriverBot struct {
	api        *tgbotapi.BotAPI
	out        sender
	machine    shiftMachine
	reports    reportSource
	loc        *time.Location
	retryDelay time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// NewDriverBot creates a driver bot using TOKEN.
func NewDriverBot(cfg *config.Config, machine shiftMachine, reports reportSource, log *zap.Logger) (*DriverBot, error) {
	if cfg.Telegram.Token == "" {
		return nil, errors.New("TOKEN not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	d := newDriverBot(api, machine, reports, cfg.Shifts.Location, cfg.Shifts.StoreRetryDelay, log)
	d.api = api
	return d, nil
}

func newDriverBot(out sender, machine shiftMachine, reports reportSource, loc *time.Location, retryDelay time.Duration, log *zap.Logger) *DriverBot {
	if loc == nil {
		loc = time.UTC
	}
	return &DriverBot{
		out:        out,
		machine:    machine,
		reports:    reports,
		loc:        loc,
		retryDelay: retryDelay,
		log:        log,
		now:        time.Now,
	}
}

func (d *DriverBot) setBotCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Главное меню"},
		tgbotapi.BotCommand{Command: "summary", Description: "Итоги за день, неделю и месяц"},
		tgbotapi.BotCommand{Command: "history", Description: "Последние смены"},
	)
	_, err := d.out.Request(cfg)
	return err
}

// Start polls for updates until ctx is cancelled.
func (d *DriverBot) Start(ctx context.Context) error {
	if err := d.setBotCommands(); err != nil {
		d.log.Warn("set bot commands", zap.Error(err))
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := d.api.GetUpdatesChan(u)
	defer d.api.StopReceivingUpdates()

	disp := newDispatcher(maxConcurrentUpdates, func(ctx context.Context, m inbound) {
		d.handleMessage(ctx, m.chatID, m.driverID, m.text)
	})
	defer disp.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			msg := update.Message
			disp.Dispatch(ctx, inbound{chatID: msg.Chat.ID, driverID: msg.From.ID, text: msg.Text})
		}
	}
}

func (d *DriverBot) handleMessage(ctx context.Context, chatID, driverID int64, raw string) {
	text := strings.TrimSpace(raw)
	switch {
	case text == "/start":
		d.handleStart(ctx, chatID, driverID)
	case text == btnStart:
		d.handleTransition(ctx, chatID, driverID, d.machine.StartShift)
	case text == btnPause || text == btnResume:
		d.handleTransition(ctx, chatID, driverID, d.machine.TogglePause)
	case text == btnEnd:
		d.handleTransition(ctx, chatID, driverID, d.machine.EndShift)
	case text == btnSummary || text == "/summary":
		d.handleSummary(ctx, chatID, driverID)
	case text == btnHistory || text == "/history":
		d.handleHistory(ctx, chatID, driverID)
	default:
		d.handleFreeText(ctx, chatID, driverID, text)
	}
}

func (d *DriverBot) handleStart(ctx context.Context, chatID, driverID int64) {
	snap, err := d.machine.Snapshot(ctx, driverID)
	if err != nil {
		d.log.Error("load driver state", zap.Int64("driver_id", driverID), zap.Error(err))
		d.send(chatID, msgStoreFailure)
		return
	}
	d.sendWithKeyboard(chatID, welcomeText(snap, d.loc), snap.Status)
}

type transitionFunc func(ctx context.Context, driverID int64) (*services.Transition, error)

// withRetry runs op and retries once after the configured delay if the store was unavailable.
func (d *DriverBot) withRetry(ctx context.Context, op func() (*services.Transition, error)) (*services.Transition, error) {
	tr, err := op()
	if err == nil || !errors.Is(err, services.ErrStoreUnavailable) {
		return tr, err
	}
	select {
	case <-ctx.Done():
		return nil, err
	case <-time.After(d.retryDelay):
	}
	return op()
}

func (d *DriverBot) handleTransition(ctx context.Context, chatID, driverID int64, fn transitionFunc) {
	tr, err := d.withRetry(ctx, func() (*services.Transition, error) { return fn(ctx, driverID) })
	if err != nil {
		d.replyError(ctx, chatID, driverID, err)
		return
	}
	d.replyTransition(chatID, tr)
}

// handleFreeText treats any other message as the cash amount while a shift
// waits for one. Numbers sent at other times still go to SubmitCash so a stale
// pending flag gets cleared.
func (d *DriverBot) handleFreeText(ctx context.Context, chatID, driverID int64, text string) {
	snap, err := d.machine.Snapshot(ctx, driverID)
	if err != nil {
		d.log.Error("load driver state", zap.Int64("driver_id", driverID), zap.Error(err))
		d.send(chatID, msgStoreFailure)
		return
	}
	if snap.Status != models.ShiftStatusAwaitingCash && !looksLikeAmount(text) {
		d.sendWithKeyboard(chatID, msgChooseAction, snap.Status)
		return
	}
	tr, err := d.withRetry(ctx, func() (*services.Transition, error) {
		return d.machine.SubmitCash(ctx, driverID, text)
	})
	if err != nil {
		d.replyError(ctx, chatID, driverID, err)
		return
	}
	d.replyTransition(chatID, tr)
}

func looksLikeAmount(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if (r < '0' || r > '9') && r != ' ' && r != '-' {
			return false
		}
	}
	return true
}

func (d *DriverBot) replyTransition(chatID int64, tr *services.Transition) {
	text := transitionText(tr, d.loc)
	if tr.To == models.ShiftStatusAwaitingCash {
		d.removeKeyboard(chatID, text)
		return
	}
	status := tr.To
	if status == models.ShiftStatusCompleted {
		status = models.ShiftStatusIdle
	}
	d.sendWithKeyboard(chatID, text, status)
}

func (d *DriverBot) replyError(ctx context.Context, chatID, driverID int64, err error) {
	var text string
	switch {
	case errors.Is(err, services.ErrAlreadyWorking):
		text = msgAlreadyWorking
	case errors.Is(err, services.ErrNotWorking):
		text = msgNotWorking
	case errors.Is(err, services.ErrInvalidAmount):
		// keep the driver in the amount prompt
		d.removeKeyboard(chatID, msgInvalidAmount)
		return
	case errors.Is(err, services.ErrNoPendingShift):
		text = msgNoPendingShift
	default:
		d.log.Error("shift transition failed", zap.Int64("driver_id", driverID), zap.Error(err))
		d.send(chatID, msgStoreFailure)
		return
	}
	status := models.ShiftStatusIdle
	if snap, serr := d.machine.Snapshot(ctx, driverID); serr == nil {
		status = snap.Status
	}
	d.sendWithKeyboard(chatID, text, status)
}

func (d *DriverBot) handleSummary(ctx context.Context, chatID, driverID int64) {
	sum, err := d.reports.DriverSummary(ctx, driverID, d.now())
	if err != nil {
		d.log.Error("driver summary", zap.Int64("driver_id", driverID), zap.Error(err))
		d.send(chatID, msgStoreFailure)
		return
	}
	d.send(chatID, summaryText(sum))
}

func (d *DriverBot) handleHistory(ctx context.Context, chatID, driverID int64) {
	shifts, err := d.reports.RecentShifts(ctx, driverID, historySize)
	if err != nil {
		d.log.Error("recent shifts", zap.Int64("driver_id", driverID), zap.Error(err))
		d.send(chatID, msgStoreFailure)
		return
	}
	d.send(chatID, historyText(shifts, d.loc))
}

func (d *DriverBot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := d.out.Send(msg); err != nil {
		d.log.Warn("driver bot send error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (d *DriverBot) sendWithKeyboard(chatID int64, text string, status models.ShiftStatus) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = shiftKeyboard(status)
	if _, err := d.out.Send(msg); err != nil {
		d.log.Warn("driver bot send error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (d *DriverBot) removeKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := d.out.Send(msg); err != nil {
		d.log.Warn("driver bot send error", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
