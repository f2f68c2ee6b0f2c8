package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/council-bot/internal/models"
	"github.com/xaenox/council-bot/internal/usecase"
)

// UseCases are the operations the bot exposes to chat users.
type UseCases struct {
	ProcessMessage   *usecase.ProcessMessage
	CreateProject    *usecase.CreateProject
	GetNextSteps     *usecase.GetNextSteps
	SearchKnowledge  *usecase.SearchKnowledge
	ListProjects     *usecase.ListProjects
	FindProject      *usecase.FindProject
	SetProjectStatus *usecase.SetProjectStatus
	PendingMessages  *usecase.PendingMessages
}

// Recorder counts commands and user-visible failures.
type Recorder interface {
	RecordCommand(command string)
	RecordError(handler string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCommand(string) {}
func (nopRecorder) RecordError(string)   {}

type Options struct {
	// MinConfidence below which a classification is flagged in the reply.
	MinConfidence float64
	SearchLimit   int
	Debug         bool
	Recorder      Recorder
}

type Bot struct {
	api           *tgbotapi.BotAPI
	uc            UseCases
	minConfidence float64
	searchLimit   int
	recorder      Recorder
	logger        *zap.Logger
}

func New(token string, uc UseCases, opts Options, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = opts.Debug

	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 5
	}

	logger.Info("Authorized on Telegram", zap.String("username", api.Self.UserName))

	return &Bot{
		api:           api,
		uc:            uc,
		minConfidence: opts.MinConfidence,
		searchLimit:   opts.SearchLimit,
		recorder:      opts.Recorder,
		logger:        logger,
	}, nil
}

// Start polls for updates until ctx is cancelled. Each message is handled
// in its own goroutine, and Start returns only after every handler has
// finished.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	stop := context.AfterFunc(ctx, b.api.StopReceivingUpdates)
	defer stop()

	dispatch(ctx, updates, b.handleMessage)
	return nil
}

// dispatch hands every incoming message to handle until ctx is cancelled or
// updates is closed, then waits for the handlers still running.
func dispatch(ctx context.Context, updates tgbotapi.UpdatesChannel, handle func(context.Context, *tgbotapi.Message)) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(message *tgbotapi.Message) {
				defer wg.Done()
				handle(ctx, message)
			}(update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// Get content from message
	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}

	userID := ""
	if message.From != nil {
		userID = strconv.FormatInt(message.From.ID, 10)
	}
	externalID := int64(message.MessageID)

	msg, err := models.NewMessage(content, userID, strconv.FormatInt(message.Chat.ID, 10), &externalID)
	if err != nil {
		b.sendMessage(message.Chat.ID, "Send me some text and I'll file it. Use /help to see available commands.")
		return
	}

	classification, err := b.uc.ProcessMessage.Execute(ctx, msg)
	if err != nil {
		b.logger.Error("Failed to process message",
			zap.Error(err),
			zap.String("message_id", msg.ID.String()),
			zap.String("user_id", userID))
		b.recorder.RecordError("message")
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't save your message. Please try again.")
		return
	}

	projectName := ""
	if classification.SuggestedProjectID != "" {
		projectName = b.projectName(ctx, classification.SuggestedProjectID)
	}

	b.sendMarkdown(message.Chat.ID, message.MessageID, formatClassification(classification, projectName, b.minConfidence))
}

func (b *Bot) projectName(ctx context.Context, id string) string {
	projects, err := b.uc.ListProjects.Execute(ctx)
	if err != nil {
		b.logger.Warn("Failed to resolve project name", zap.Error(err), zap.String("project_id", id))
		return id
	}
	for _, p := range projects {
		if p.ID.String() == id {
			return p.Name
		}
	}
	return id
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"
	msg.ReplyToMessageID = replyToID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send formatted message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// replyError reports err to the user. Domain errors are shown as is, anything
// else is logged and replaced by fallback.
func (b *Bot) replyError(chatID int64, handler string, err error, fallback string) {
	var (
		validation *models.ValidationError
		notFound   *models.NotFoundError
		duplicate  *models.DuplicateNameError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound), errors.As(err, &duplicate):
		b.sendErrorMessage(chatID, userMessage(err))
	default:
		b.logger.Error("Command failed", zap.String("handler", handler), zap.Error(err))
		b.recorder.RecordError(handler)
		b.sendErrorMessage(chatID, fallback)
	}
}
