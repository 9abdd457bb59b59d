package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskflow/internal/repository"
	"taskflow/internal/service"
)

const queueSize = 256

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type outgoing struct {
	chatID int64
	text   string
}

// Bot delivers notifications to users that linked a Telegram chat and
// answers /start with the chat id to link.
type Bot struct {
	api      *tgbotapi.BotAPI
	send     sender
	userRepo *repository.UserRepository
	digest   *service.DigestService
	queue    chan service.FinalizedEvent
	now      func() time.Time
}

func New(token string, userRepo *repository.UserRepository, digest *service.DigestService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, userRepo, digest)
	b.api = api
	return b, nil
}

func newBot(send sender, userRepo *repository.UserRepository, digest *service.DigestService) *Bot {
	return &Bot{
		send:     send,
		userRepo: userRepo,
		digest:   digest,
		queue:    make(chan service.FinalizedEvent, queueSize),
		now:      time.Now,
	}
}

// StatusFinalized queues a notification. Events are dropped when the queue
// is full.
func (b *Bot) StatusFinalized(event service.FinalizedEvent) {
	select {
	case b.queue <- event:
	default:
		log.Printf("[warn] notification queue full, dropping event for user %d", event.UserID)
	}
}

// Start delivers queued notifications and, with a live API, polls updates
// until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api != nil {
		go b.poll(ctx)
	}

	log.Println("[info] notification loop started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-b.queue:
			if err := b.deliver(ctx, event); err != nil {
				log.Printf("[warn] deliver notification to user %d: %v", event.UserID, err)
			}
		}
	}
}

// SendDailyDigests sends every linked user the summary of their due tasks.
func (b *Bot) SendDailyDigests(ctx context.Context) error {
	users, err := b.userRepo.ListWithTelegram(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.digest.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("[warn] build digest for user %d: %v", user.ID, err)
			continue
		}
		if text == "" {
			continue
		}
		if err := b.sendText(outgoing{chatID: *user.TelegramChatID, text: text}); err != nil {
			log.Printf("[warn] send digest to user %d: %v", user.ID, err)
		}
	}
	return nil
}

func (b *Bot) deliver(ctx context.Context, event service.FinalizedEvent) error {
	user, err := b.userRepo.FindByID(ctx, event.UserID)
	if err != nil {
		return err
	}
	if user.TelegramChatID == nil {
		return nil
	}
	return b.sendText(outgoing{chatID: *user.TelegramChatID, text: formatFinalized(event)})
}

func (b *Bot) poll(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		msg := update.Message
		if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() || !msg.IsCommand() {
			continue
		}
		if err := b.handleCommand(msg); err != nil {
			log.Printf("[warn] handle command: %v", err)
		}
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start", "help":
		return b.sendText(outgoing{chatID: msg.Chat.ID, text: linkInstructions(msg.Chat.ID)})
	default:
		return b.sendText(outgoing{chatID: msg.Chat.ID, text: "Unsupported command. Try /help."})
	}
}

func (b *Bot) sendText(out outgoing) error {
	msg := tgbotapi.NewMessage(out.chatID, out.text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.send.Send(msg)
	return err
}

func linkInstructions(chatID int64) string {
	return fmt.Sprintf(
		"👋 <b>taskflow notifications</b>\n\nYour chat id is <code>%d</code>.\n"+
			"Set it as <code>telegram_chat_id</code> on your account to receive a message when a task is finished "+
			"and a daily digest of due tasks.",
		chatID,
	)
}

func formatFinalized(event service.FinalizedEvent) string {
	subject := "Task"
	if event.SubtaskID != 0 {
		subject = "Subtask"
	}
	return fmt.Sprintf("✅ %s <b>%s</b> moved to <i>%s</i>",
		subject,
		html.EscapeString(strings.TrimSpace(event.Title)),
		html.EscapeString(event.Status),
	)
}

var _ service.Notifier = (*Bot)(nil)
