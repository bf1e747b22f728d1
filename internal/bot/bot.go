// Package bot implements the Telegram bot that answers questions about the
// university using the knowledge base.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/baltabekpro/iitu-bot/internal/kb"
	"github.com/baltabekpro/iitu-bot/internal/logger"
	"github.com/baltabekpro/iitu-bot/internal/syncx"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// searchTopN is how many knowledge base hits are retrieved per question.
	searchTopN = 5
	// maxHistory is how many recent exchanges are kept per chat.
	maxHistory = 5
	// pollTimeout is the long polling timeout in seconds.
	pollTimeout = 60
)

const (
	welcomeReply = "Привет! Я бот-помощник Международного университета информационных технологий (IITU).\n\n" +
		"Задайте мне вопрос об университете: поступление, программы, контакты и многое другое.\n\n" +
		"Команды:\n/help — справка\n/return — повторить ответ на последний вопрос"

	helpReply = "Я отвечаю на вопросы об IITU, используя информацию с сайта университета.\n\n" +
		"Просто напишите свой вопрос. Команды:\n" +
		"/start — начать заново (история диалога очищается)\n" +
		"/return — сгенерировать новый ответ на последний вопрос"

	noQuestionReply = "Вы ещё не задавали вопрос. Напишите его, и я отвечу."

	unknownCommandReply = "Я не знаю такой команды. Посмотрите /help."

	errorReply = "Извините, произошла ошибка при обработке вашего запроса. Попробуйте ещё раз позже."
)

const ragSystemPrompt = "Ты — помощник Международного университета информационных технологий (IITU). " +
	"Отвечай на вопрос, используя предоставленный контекст с сайта университета. " +
	"Если в контексте нет ответа, честно скажи об этом. Отвечай на языке вопроса."

const generalSystemPrompt = "Ты — помощник Международного университета информационных технологий (IITU). " +
	"В базе знаний не нашлось информации по этому вопросу. Ответь, опираясь на общие знания, " +
	"и предложи уточнить вопрос об университете. Отвечай на языке вопроса."

// Searcher finds knowledge base entries for a query. *kb.KB satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]kb.Result, error)
}

// Generator produces text from a prompt. *gemini.Client satisfies it.
type Generator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

type exchange struct {
	question string
	answer   string
}

type session struct {
	history []exchange
}

// Bot is the Telegram bot.
type Bot struct {
	api      *tgbotapi.BotAPI
	kb       Searcher
	gen      Generator
	logf     logger.Logf
	sessions *syncx.Protected[map[int64]*session]
}

// New connects to the Telegram Bot API and returns a ready-to-run bot.
func New(token string, kb Searcher, gen Generator, logf logger.Logf) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("bot: connecting to Telegram: %w", err)
	}
	b := newBot(kb, gen, logf)
	b.api = api
	return b, nil
}

func newBot(kb Searcher, gen Generator, logf logger.Logf) *Bot {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Bot{
		kb:       kb,
		gen:      gen,
		logf:     logf,
		sessions: syncx.Protect(map[int64]*session{}),
	}
}

// Run receives updates over long polling until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	b.logf("Logged in to Telegram as @%s.", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		msg := update.Message
		if msg == nil || msg.Text == "" {
			continue
		}
		b.sendTyping(msg.Chat.ID)
		reply := b.handle(ctx, msg)
		b.send(msg.Chat.ID, reply)
	}

	return ctx.Err()
}

// handle computes the reply for a single incoming message.
func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) string {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.resetSession(chatID)
		return welcomeReply
	case "help":
		return helpReply
	case "return":
		question := b.lastQuestion(chatID)
		if question == "" {
			return noQuestionReply
		}
		return b.answerOrApologize(ctx, chatID, question)
	case "":
		return b.answerOrApologize(ctx, chatID, msg.Text)
	default:
		return unknownCommandReply
	}
}

func (b *Bot) answerOrApologize(ctx context.Context, chatID int64, question string) string {
	answer, err := b.answer(ctx, chatID, question)
	if err != nil {
		b.logf("Answering %q failed: %v", question, err)
		return errorReply
	}
	return answer
}

// answer runs the RAG pipeline: retrieve, pick a prompt depending on hit
// relevance, generate, remember the exchange.
func (b *Bot) answer(ctx context.Context, chatID int64, question string) (string, error) {
	results, err := b.kb.Search(ctx, question, searchTopN)
	if err != nil {
		return "", err
	}

	var relevant []kb.Result
	for _, r := range results {
		if r.Relevant() {
			relevant = append(relevant, r)
		}
	}

	history := b.historyOf(chatID)

	var system, prompt string
	if len(relevant) > 0 {
		system = ragSystemPrompt
		prompt = buildRAGPrompt(question, relevant, history)
	} else {
		system = generalSystemPrompt
		prompt = buildGeneralPrompt(question, history)
	}

	answer, err := b.gen.GenerateText(ctx, system, prompt)
	if err != nil {
		return "", err
	}

	b.remember(chatID, question, answer)
	return answer, nil
}

func buildRAGPrompt(question string, results []kb.Result, history []exchange) string {
	var sb strings.Builder

	sb.WriteString("Контекст с сайта университета:\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s (%s)\n%s\n\n", i+1, r.Chunk.PageTitle, r.Chunk.SourceURL, r.Chunk.Content)
	}

	writeHistory(&sb, history)

	sb.WriteString("Вопрос: " + question)
	return sb.String()
}

func buildGeneralPrompt(question string, history []exchange) string {
	var sb strings.Builder
	writeHistory(&sb, history)
	sb.WriteString("Вопрос: " + question)
	return sb.String()
}

func writeHistory(sb *strings.Builder, history []exchange) {
	if len(history) == 0 {
		return
	}
	sb.WriteString("Предыдущий диалог:\n")
	for _, e := range history {
		fmt.Fprintf(sb, "Пользователь: %s\nПомощник: %s\n", e.question, e.answer)
	}
	sb.WriteString("\n")
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logf("Sending message to chat %d failed: %v", chatID, err)
	}
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logf("Sending typing action to chat %d failed: %v", chatID, err)
	}
}
