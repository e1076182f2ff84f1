package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
)

// Prompt outcomes.
var (
	ErrDiscarded   = errors.New("transaction discarded")
	ErrInputClosed = errors.New("input closed")
)

// Prompter drives the review step of a capture session on a line-based
// terminal.
type Prompter struct {
	writer io.Writer
	reader *LineReader
}

// NewPrompter creates a prompter. Nil arguments default to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		reader: NewLineReader(reader),
		writer: writer,
	}
}

// Review shows what the session captured, completes the manual form when
// there is no analysis and submits once the user agrees. It returns
// ErrDiscarded if the user declines.
func (p *Prompter) Review(ctx context.Context, session *capture.Session) (model.StoredTransaction, error) {
	for {
		snap := session.Snapshot()
		if snap.LastError != nil && common.Layer(snap.LastError) != common.LayerFinalize {
			msg := snap.ErrorMessage()
			if snap.Retryable() {
				msg += " The service may be busy; capturing again can help."
			}
			p.println(FormatWarning(msg))
		}

		if snap.Analysis != nil {
			p.println(RenderBox(ModeIcon(snap.Mode)+" Analysis", FormatAnalysis(*snap.Analysis)))
		} else {
			if err := p.completeManual(ctx, session); err != nil {
				return model.StoredTransaction{}, err
			}
			p.println(RenderBox(ModeIcon(snap.Mode)+" Manual entry", FormatManual(session.Snapshot().Manual)))
		}

		ok, err := p.Confirm(ctx, "Save this transaction?", true)
		if err != nil {
			return model.StoredTransaction{}, err
		}
		if !ok {
			return model.StoredTransaction{}, ErrDiscarded
		}

		stored, err := session.Confirm(ctx)
		switch {
		case err == nil:
			p.println(FormatSuccess(fmt.Sprintf("Saved %s · %s · %s",
				model.FormatSignedAmount(stored.Type, stored.Amount, ""), stored.Category, stored.Date())))
			return stored, nil
		case errors.Is(err, common.ErrMissingRequiredField):
			p.println(FormatError(common.UserMessage(err)))
		case errors.Is(err, common.ErrSubmissionFailed):
			p.println(FormatError(common.UserMessage(err)))
			retry, promptErr := p.Confirm(ctx, "Try again?", true)
			if promptErr != nil {
				return model.StoredTransaction{}, promptErr
			}
			if !retry {
				return model.StoredTransaction{}, err
			}
		default:
			return model.StoredTransaction{}, err
		}
	}
}

// completeManual asks for every required manual field that is still unusable.
func (p *Prompter) completeManual(ctx context.Context, session *capture.Session) error {
	manual := session.Snapshot().Manual

	if !manual.Type.Valid() {
		choice, err := p.Choice(ctx, "Type: [e]xpense or [i]ncome", []string{"e", "i"})
		if err != nil {
			return err
		}
		manual.Type = model.TypeExpense
		if choice == "i" {
			manual.Type = model.TypeIncome
		}
		if err := session.SetManualType(manual.Type); err != nil {
			return err
		}
	}

	if _, err := model.ParseAmount(manual.Amount); err != nil {
		for {
			raw, err := p.ReadLine(ctx, "Amount")
			if err != nil {
				return err
			}
			if _, parseErr := model.ParseAmount(raw); parseErr != nil {
				p.println(FormatError("Enter an amount greater than zero, like 12.30."))
				continue
			}
			if err := session.SetManualAmount(raw); err != nil {
				return err
			}
			break
		}
	}

	if strings.TrimSpace(manual.Category) == "" {
		category, err := p.promptCategory(ctx, manual.Type)
		if err != nil {
			return err
		}
		if err := session.SetManualCategory(category); err != nil {
			return err
		}
	}

	if manual.Description == "" {
		description, err := p.ReadLine(ctx, "Description (optional)")
		if err != nil {
			return err
		}
		if description != "" {
			if err := session.SetManualDescription(description); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Prompter) promptCategory(ctx context.Context, t model.TransactionType) (string, error) {
	categories := model.CategoriesFor(t)
	p.println(FormatInfo("Categories:"))
	for i, c := range categories {
		p.printf("  [%d] %s\n", i+1, c)
	}

	for {
		input, err := p.ReadLine(ctx, "Category (number or name)")
		if err != nil {
			return "", err
		}
		if input == "" {
			p.println(FormatError("Category cannot be empty. Please try again."))
			continue
		}
		if n, convErr := strconv.Atoi(input); convErr == nil {
			if n < 1 || n > len(categories) {
				p.println(FormatError(fmt.Sprintf("Pick a number between 1 and %d.", len(categories))))
				continue
			}
			return categories[n-1], nil
		}
		if !model.IsKnownCategory(t, input) {
			p.println(FormatInfo(fmt.Sprintf("%q is not a listed category; it will be saved as typed.", input)))
		}
		return input, nil
	}
}

// ReadLine prints label and reads one line.
func (p *Prompter) ReadLine(ctx context.Context, label string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	p.printf("%s", FormatPrompt(label))
	line, err := p.reader.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", err
	}
	return line, nil
}

// Choice reads until one of the valid answers is given.
func (p *Prompter) Choice(ctx context.Context, prompt string, valid []string) (string, error) {
	for {
		input, err := p.ReadLine(ctx, prompt)
		if err != nil {
			return "", err
		}
		choice := strings.ToLower(input)
		for _, v := range valid {
			if choice == v {
				return choice, nil
			}
		}
		p.println(FormatError("Invalid choice. Please try again."))
	}
}

// Confirm asks a yes/no question. An empty answer takes def.
func (p *Prompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		input, err := p.ReadLine(ctx, question+" "+hint)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(input) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		p.println(FormatError("Please answer y or n."))
	}
}

// Println writes a line to the prompter's output.
func (p *Prompter) Println(a ...any) {
	p.println(a...)
}

func (p *Prompter) println(a ...any) {
	if _, err := fmt.Fprintln(p.writer, a...); err != nil {
		slog.Warn("Failed to write to terminal", "error", err)
	}
}

func (p *Prompter) printf(format string, a ...any) {
	if _, err := fmt.Fprintf(p.writer, format, a...); err != nil {
		slog.Warn("Failed to write to terminal", "error", err)
	}
}

// FormatAnalysis renders a validated analysis for review.
func FormatAnalysis(a model.AnalysisSnapshot) string {
	description := a.Description
	if description == "" {
		description = SubtleStyle.Render("(none)")
	}
	return fmt.Sprintf("Type:        %s\n", a.Type) +
		fmt.Sprintf("Amount:      %s\n", FormatSignedAmount(a.Type, model.FormatSignedAmount(a.Type, a.Amount, ""))) +
		fmt.Sprintf("Category:    %s\n", a.Category) +
		fmt.Sprintf("Description: %s\n", description) +
		fmt.Sprintf("Confidence:  %s", FormatConfidence(a.Confidence))
}

// FormatManual renders the manual form as entered so far.
func FormatManual(m model.ManualFields) string {
	amount := m.Amount
	if parsed, err := model.ParseAmount(m.Amount); err == nil && m.Type.Valid() {
		amount = FormatSignedAmount(m.Type, model.FormatSignedAmount(m.Type, parsed, ""))
	}
	value := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return SubtleStyle.Render("(empty)")
		}
		return s
	}
	return fmt.Sprintf("Type:        %s\n", value(string(m.Type))) +
		fmt.Sprintf("Amount:      %s\n", value(amount)) +
		fmt.Sprintf("Category:    %s\n", value(m.Category)) +
		fmt.Sprintf("Description: %s", value(m.Description))
}
