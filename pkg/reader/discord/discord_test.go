package discord

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ledgerbot/ledgerbot/pkg/api"
	"github.com/ledgerbot/ledgerbot/pkg/command"
)

func message(content string, bot bool) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			Content: content,
			Author:  &discordgo.User{Username: "alice", Bot: bot},
		},
	}
}

func TestShouldHandle(t *testing.T) {
	tests := []struct {
		name string
		msg  *discordgo.MessageCreate
		want bool
	}{
		{"expense command", message("!expense 5 food", false), true},
		{"uppercase prefix", message("!EXPENSE 5 food", false), true},
		{"leading whitespace", message("  !expense 5 food", false), true},
		{"prefix only", message("!expense", false), true},
		{"unrelated message", message("hello there", false), false},
		{"other command", message("!help", false), false},
		{"bot author", message("!expense 5 food", true), false},
		{
			"missing author",
			&discordgo.MessageCreate{Message: &discordgo.Message{Content: "!expense 5 food"}},
			false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldHandle(tc.msg, command.DefaultPrefix); got != tc.want {
				t.Errorf("shouldHandle(%q): got %v, want %v", tc.msg.Content, got, tc.want)
			}
		})
	}
}

func TestAuthorName(t *testing.T) {
	tests := []struct {
		name string
		msg  *discordgo.MessageCreate
		want string
	}{
		{
			"nickname wins",
			&discordgo.MessageCreate{Message: &discordgo.Message{
				Author: &discordgo.User{Username: "alice", GlobalName: "Alice G"},
				Member: &discordgo.Member{Nick: "Al"},
			}},
			"Al",
		},
		{
			"global name over username",
			&discordgo.MessageCreate{Message: &discordgo.Message{
				Author: &discordgo.User{Username: "alice", GlobalName: "Alice G"},
			}},
			"Alice G",
		},
		{
			"username fallback",
			message("!expense 5 food", false),
			"alice",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := authorName(tc.msg); got != tc.want {
				t.Errorf("authorName: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestReplies(t *testing.T) {
	confirmation := confirmationMessage(12.5, "food")
	if !strings.Contains(confirmation, "12.50") || !strings.Contains(confirmation, "food") {
		t.Errorf("confirmation missing amount or category: %q", confirmation)
	}

	usage := usageMessage("!expense")
	if !strings.Contains(usage, "!expense") || !strings.Contains(usage, "<amount>") {
		t.Errorf("usage hint missing syntax: %q", usage)
	}

	if failureMessage() == usage {
		t.Error("ledger failure must be distinguishable from a usage hint")
	}
}

// TestHandleMessage_DuringShutdown simulates discordgo dispatching
// handlers on their own goroutines while the reader is shutting down:
// with the context canceled and nobody consuming the out channel, every
// handler must return promptly instead of blocking or panicking.
func TestHandleMessage_DuringShutdown(t *testing.T) {
	r := &Reader{
		parser:  &command.Parser{},
		prefix:  command.DefaultPrefix,
		logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		pending: make(map[string]pendingCommand),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan *api.Expense) // unbuffered, no consumer

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := message("!expense 5 food", false)
			m.ID = fmt.Sprintf("m%d", i)
			r.handleMessage(ctx, m, out)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not return after context cancellation")
	}
}

func TestTrackResolve(t *testing.T) {
	r := &Reader{pending: make(map[string]pendingCommand)}

	r.track(&api.Expense{
		MessageID: "m1",
		ChannelID: "c1",
		Amount:    12.5,
		Category:  "food",
	})

	cmd, ok := r.resolve("m1")
	if !ok {
		t.Fatal("resolve(m1): not found")
	}
	if cmd.channelID != "c1" || cmd.amount != 12.5 || cmd.category != "food" {
		t.Errorf("resolved command: got %+v", cmd)
	}

	if _, ok := r.resolve("m1"); ok {
		t.Error("resolve(m1) second time: expected miss after removal")
	}
	if _, ok := r.resolve("unknown"); ok {
		t.Error("resolve(unknown): expected miss")
	}
}
