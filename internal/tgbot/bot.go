package tgbot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bigredeye/essaycheck/internal/config"
	"github.com/bigredeye/essaycheck/internal/essay"
	"github.com/bigredeye/essaycheck/internal/interpret"
	lf "github.com/bigredeye/essaycheck/internal/logfield"
	"github.com/bigredeye/essaycheck/internal/models"
)

// Telegram rejects messages longer than 4096 characters.
const maxMessageLen = 4000

const usage = `Send an essay with one of the commands:
/evaluate <task type>
<essay text>
/correct <essay text>
/improve <essay text>
/analyze <essay text>
/history`

// Essays is the part of essay.Service the bot talks to.
type Essays interface {
	Evaluate(ctx context.Context, username, text, taskType string) (*models.Feedback, error)
	History(ctx context.Context, username string) ([]essay.HistoryEntry, error)
	Correct(ctx context.Context, text string) (interpret.Correction, essay.Status)
	Improve(ctx context.Context, text string) (string, essay.Status)
	Analyze(ctx context.Context, text string) (interpret.Analysis, essay.Status)
}

type Bot struct {
	bot    *tgbotapi.BotAPI
	log    *zap.Logger
	essays Essays
}

func NewBot(conf *config.Config, log *zap.Logger, essays Essays) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(conf.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	return &Bot{bot, log, essays}, nil
}

func (b *Bot) Run(ctx context.Context) {
	b.log.Info("Authorized on account", zap.String("username", b.bot.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	defer b.bot.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			if err := b.handleUpdate(ctx, update); err != nil {
				b.log.Error("Failed to handle update", zap.Error(err), zap.Int("update_id", update.UpdateID))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return nil
	}
	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	b.log.Info("Got command",
		lf.Username(username),
		lf.ChatID(msg.Chat.ID),
		zap.String("command", msg.Command()),
	)

	text := b.reply(ctx, username, msg.Command(), msg.CommandArguments())
	for _, chunk := range split(text, maxMessageLen) {
		reply := tgbotapi.NewMessage(msg.Chat.ID, chunk)
		reply.ReplyToMessageID = msg.MessageID
		if _, err := b.bot.Send(reply); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) reply(ctx context.Context, username, command, args string) string {
	switch command {
	case "evaluate":
		if username == "" {
			return "Set a Telegram username to keep your history."
		}
		taskType, text, _ := strings.Cut(args, "\n")
		taskType, text = strings.TrimSpace(taskType), strings.TrimSpace(text)
		if taskType == "" || text == "" {
			return usage
		}
		feedback, err := b.essays.Evaluate(ctx, username, text, taskType)
		if err != nil {
			b.log.Error("Failed to evaluate essay", lf.Username(username), zap.Error(err))
			return "Error generating evaluation from the model."
		}
		return feedback.EvaluationText

	case "history":
		entries, err := b.essays.History(ctx, username)
		if err != nil {
			b.log.Error("Failed to load history", lf.Username(username), zap.Error(err))
			return "Failed to load history, try again later"
		}
		return formatHistory(entries)

	case "correct":
		if strings.TrimSpace(args) == "" {
			return usage
		}
		correction, _ := b.essays.Correct(ctx, args)
		return correction.CorrectedText

	case "improve":
		if strings.TrimSpace(args) == "" {
			return usage
		}
		improved, _ := b.essays.Improve(ctx, args)
		return improved

	case "analyze":
		if strings.TrimSpace(args) == "" {
			return usage
		}
		analysis, status := b.essays.Analyze(ctx, args)
		if status == essay.StatusDegraded {
			return "The model did not return an analysis, try again later"
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Words: %d\nGrammar mistakes: %d\n", analysis.WordCount, analysis.GrammarMistakeCount)
		for _, rep := range analysis.VocabRepetition {
			fmt.Fprintf(&sb, "%q repeated %d times\n", rep.Word, rep.Count)
		}
		l := analysis.VocabLevels
		fmt.Fprintf(&sb, "A1 %d, A2 %d, B1 %d, B2 %d, C1 %d, C2 %d", l.A1, l.A2, l.B1, l.B2, l.C1, l.C2)
		return sb.String()

	default:
		return usage
	}
}

func formatHistory(entries []essay.HistoryEntry) string {
	if len(entries) == 0 {
		return "No evaluations yet"
	}
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s  overall %s\n", e.Date, formatBand(e.Overall))
	}
	return sb.String()
}

func formatBand(band *float64) string {
	if band == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *band)
}

func split(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{"(empty)"}
	}
	var chunks []string
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	return append(chunks, string(runes))
}
