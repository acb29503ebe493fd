// Package api defines the core types and gateway contracts for ledgerbot.
package api

import "context"

// Expense is a single validated expense record. It is immutable once
// produced by the command parser.
type Expense struct {
	// Date is the expense date in ISO YYYY-MM-DD form.
	Date string `json:"date"`
	// Amount is a currency-less decimal quantity.
	Amount float64 `json:"amount"`
	// Category is a short token with no internal whitespace.
	Category string `json:"category"`
	// Description is free text; a placeholder is used when the command
	// omits it.
	Description string `json:"description"`
	// Author is the display name of the user who issued the command.
	Author string `json:"author"`

	// MessageID identifies the originating chat message (used to route
	// write results back to the chat gateway).
	MessageID string `json:"-"`
	// ChannelID is the chat channel the command arrived on.
	ChannelID string `json:"-"`
}

// Headers is the fixed ledger column order shared by every backend.
var Headers = []string{"Date", "Amount", "Category", "Description", "Author"}

// Row renders the expense in ledger column order.
func (e *Expense) Row() []any {
	return []any{e.Date, e.Amount, e.Category, e.Description, e.Author}
}

// WriteResult reports the outcome of appending a single expense.
// Err is nil on success.
type WriteResult struct {
	MessageID string
	Err       error
}

// Reader produces expenses from a chat source and sends them to the
// provided channel until the context is canceled. The out channel stays
// open (consumers exit on cancellation too), since chat events may still
// be in flight while the reader shuts down. Per-record append outcomes
// arrive on the results channel so the reader can confirm success or
// report failure back to the user.
type Reader interface {
	Read(ctx context.Context, out chan<- *Expense, results <-chan WriteResult) error
}

// Writer consumes expenses from a channel and appends them to a ledger.
// One WriteResult is sent per consumed expense.
type Writer interface {
	Write(ctx context.Context, in <-chan *Expense, results chan<- WriteResult) error
}
