// Package discord implements a Reader that turns Discord expense commands
// into expense records.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/ledgerbot/ledgerbot/pkg/api"
	"github.com/ledgerbot/ledgerbot/pkg/command"
)

// confirmReaction is added to a command message once its record is
// durably appended.
const confirmReaction = "✅"

// Reader listens for expense commands on Discord and sends parsed records
// to the output channel. Append outcomes arriving on the results channel
// are translated into replies on the originating channel.
type Reader struct {
	session *discordgo.Session
	parser  *command.Parser
	prefix  string
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]pendingCommand
}

// pendingCommand remembers where a record came from so its append outcome
// can be reported back.
type pendingCommand struct {
	channelID string
	amount    float64
	category  string
}

// Config holds configuration for the Discord reader.
type Config struct {
	// Token is the Discord bot token.
	Token string
	// Prefix is the command invocation prefix. Defaults to
	// command.DefaultPrefix.
	Prefix string
	// Parser overrides the command parser (used by tests to inject a
	// clock). When nil, one is built from Prefix.
	Parser *command.Parser
}

// New creates a new Discord reader.
func New(cfg Config, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = command.DefaultPrefix
	}

	parser := cfg.Parser
	if parser == nil {
		parser = &command.Parser{Prefix: prefix}
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	return &Reader{
		session: session,
		parser:  parser,
		prefix:  prefix,
		logger:  logger,
		pending: make(map[string]pendingCommand),
	}, nil
}

// Read opens the Discord session and forwards parsed expense commands to
// the output channel until the context is canceled.
func (r *Reader) Read(ctx context.Context, out chan<- *api.Expense, results <-chan api.WriteResult) error {
	// Message handlers run on their own goroutines and may still be
	// in flight after Close returns, so out is never closed here; the
	// writer side exits on context cancellation instead.
	removeHandler := r.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		r.handleMessage(ctx, m, out)
	})

	if err := r.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	r.logger.Info("discord reader started", "prefix", r.prefix)

	go r.consumeResults(ctx, results)

	<-ctx.Done()
	r.logger.Info("discord reader stopping", "reason", ctx.Err())

	removeHandler()
	if err := r.session.Close(); err != nil {
		r.logger.Warn("error closing discord session", "error", err)
	}
	return ctx.Err()
}

// handleMessage parses a single incoming message. Parse rejections get a
// usage hint immediately; valid records are tracked and forwarded, and
// answered only once the ledger reports back.
func (r *Reader) handleMessage(ctx context.Context, m *discordgo.MessageCreate, out chan<- *api.Expense) {
	if !shouldHandle(m, r.prefix) {
		return
	}

	author := authorName(m)
	expense, err := r.parser.Parse(m.Content, author)
	if err != nil {
		r.logger.Debug("rejected command", "author", author, "error", err)
		r.reply(m.ChannelID, usageMessage(r.prefix))
		return
	}

	expense.MessageID = m.ID
	expense.ChannelID = m.ChannelID

	r.track(expense)

	select {
	case <-ctx.Done():
	case out <- expense:
		r.logger.Info("parsed expense command",
			"author", author,
			"amount", expense.Amount,
			"category", expense.Category,
		)
	}
}

// consumeResults reports append outcomes back to the users who issued the
// commands.
func (r *Reader) consumeResults(ctx context.Context, results <-chan api.WriteResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				r.logger.Info("results channel closed")
				return
			}
			r.handleResult(res)
		}
	}
}

func (r *Reader) handleResult(res api.WriteResult) {
	cmd, ok := r.resolve(res.MessageID)
	if !ok {
		r.logger.Warn("result for unknown message", "message_id", res.MessageID)
		return
	}

	if res.Err != nil {
		r.logger.Error("failed to record expense", "message_id", res.MessageID, "error", res.Err)
		r.reply(cmd.channelID, failureMessage())
		return
	}

	r.reply(cmd.channelID, confirmationMessage(cmd.amount, cmd.category))
	if err := r.session.MessageReactionAdd(cmd.channelID, res.MessageID, confirmReaction); err != nil {
		r.logger.Debug("failed to add confirmation reaction", "message_id", res.MessageID, "error", err)
	}
}

// track registers a forwarded record so its result can be routed back.
func (r *Reader) track(e *api.Expense) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[e.MessageID] = pendingCommand{
		channelID: e.ChannelID,
		amount:    e.Amount,
		category:  e.Category,
	}
}

// resolve removes and returns the pending command for a message ID.
func (r *Reader) resolve(messageID string) (pendingCommand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, ok := r.pending[messageID]
	if ok {
		delete(r.pending, messageID)
	}
	return cmd, ok
}

func (r *Reader) reply(channelID, content string) {
	if _, err := r.session.ChannelMessageSend(channelID, content); err != nil {
		r.logger.Warn("failed to send reply", "channel_id", channelID, "error", err)
	}
}

// shouldHandle reports whether a message is an expense command from a
// human user.
func shouldHandle(m *discordgo.MessageCreate, prefix string) bool {
	if m.Author == nil || m.Author.Bot {
		return false
	}
	content := strings.TrimSpace(m.Content)
	return len(content) >= len(prefix) && strings.EqualFold(content[:len(prefix)], prefix)
}

// authorName picks the best display name available on the message.
func authorName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func confirmationMessage(amount float64, category string) string {
	return fmt.Sprintf("Recorded %.2f under **%s**.", amount, category)
}

func failureMessage() string {
	return "Could not record that expense in the ledger. Please try again later."
}

func usageMessage(prefix string) string {
	return fmt.Sprintf("Usage: `%s <amount> <category> [description] [YYYY-MM-DD]`", prefix)
}
