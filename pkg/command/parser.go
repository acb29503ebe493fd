// Package command parses free-text expense commands into expense records.
package command

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ledgerbot/ledgerbot/pkg/api"
)

// DefaultPrefix is the command invocation prefix.
const DefaultPrefix = "!expense"

// DefaultPlaceholder is used when a command carries no description.
const DefaultPlaceholder = "No description"

// Rejection reasons. Callers distinguish them with errors.Is; users only
// ever see a usage hint.
var (
	// ErrEmptyCommand means the command had no arguments at all.
	ErrEmptyCommand = errors.New("empty command")
	// ErrTooFewFields means the amount or category was missing.
	ErrTooFewFields = errors.New("amount and category are required")
	// ErrInvalidAmount means the first field did not parse as a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")
)

// dateRe matches a calendar-date token exactly.
var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// amountRe accepts digits with at most one decimal point (".50", "15",
// "15.", "12.50"). Anything else, including thousands separators, is
// rejected rather than coerced.
var amountRe = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)$`)

// currencySymbols may appear once, leading, before the amount.
const currencySymbols = "$€£₹"

// Parser turns raw command text into expense records. It performs no I/O;
// the current date comes from the injected clock so parsing is
// deterministic.
type Parser struct {
	// Prefix is the invocation prefix, matched case-insensitively.
	// Defaults to DefaultPrefix.
	Prefix string
	// Placeholder is the description used when the command omits one.
	// Defaults to DefaultPlaceholder.
	Placeholder string
	// Now supplies the current time for defaulted dates. Defaults to
	// time.Now.
	Now func() time.Time
}

// Parse validates raw command text from the named author and returns the
// expense record it describes. A non-nil error is a rejection, never a
// fault: ErrEmptyCommand, ErrTooFewFields, or ErrInvalidAmount.
func (p *Parser) Parse(content, author string) (*api.Expense, error) {
	args := strings.TrimSpace(stripPrefix(strings.TrimSpace(content), p.prefix()))

	tokens := tokenize(args)
	switch {
	case len(tokens) == 0:
		return nil, ErrEmptyCommand
	case len(tokens) < 2:
		return nil, ErrTooFewFields
	}

	amount, err := parseAmount(tokens[0])
	if err != nil {
		return nil, err
	}

	category := tokens[1]
	if category == "" {
		// An empty quoted category is as good as a missing one.
		return nil, ErrTooFewFields
	}

	rest := tokens[2:]

	// Only the last token may be a date; a date-shaped token anywhere
	// else stays part of the description.
	date := ""
	if n := len(rest); n > 0 && dateRe.MatchString(rest[n-1]) {
		date = rest[n-1]
		rest = rest[:n-1]
	}
	if date == "" {
		date = p.now().Format(time.DateOnly)
	}

	description := strings.Join(rest, " ")
	if description == "" {
		description = p.placeholder()
	}

	return &api.Expense{
		Date:        date,
		Amount:      amount,
		Category:    category,
		Description: description,
		Author:      author,
	}, nil
}

func (p *Parser) prefix() string {
	if p.Prefix == "" {
		return DefaultPrefix
	}
	return p.Prefix
}

func (p *Parser) placeholder() string {
	if p.Placeholder == "" {
		return DefaultPlaceholder
	}
	return p.Placeholder
}

func (p *Parser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// stripPrefix removes a leading case-insensitive prefix.
func stripPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):]
	}
	return s
}

// tokenize splits argument text into fields. A field is either a maximal
// run of non-whitespace, non-quote characters, or a single- or
// double-quoted run whose interior may contain whitespace. Quote
// characters never appear in a field's value. An unterminated quote runs
// to the end of the input.
func tokenize(s string) []string {
	var tokens []string
	rs := []rune(s)

	for i := 0; i < len(rs); {
		switch r := rs[i]; {
		case unicode.IsSpace(r):
			i++
		case r == '"' || r == '\'':
			i++
			start := i
			for i < len(rs) && rs[i] != r {
				i++
			}
			tokens = append(tokens, string(rs[start:i]))
			if i < len(rs) {
				i++ // closing quote
			}
		default:
			start := i
			for i < len(rs) && !unicode.IsSpace(rs[i]) && rs[i] != '"' && rs[i] != '\'' {
				i++
			}
			tokens = append(tokens, string(rs[start:i]))
		}
	}

	return tokens
}

// parseAmount strips one optional leading currency symbol and parses the
// rest as a plain decimal number.
func parseAmount(tok string) (float64, error) {
	for _, sym := range currencySymbols {
		if strings.HasPrefix(tok, string(sym)) {
			tok = strings.TrimPrefix(tok, string(sym))
			break
		}
	}

	if !amountRe.MatchString(tok) {
		return 0, ErrInvalidAmount
	}

	amount, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}
