package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/charmbracelet/lipgloss"
)

var modeLabels = map[model.InputMode]string{
	model.ModeText:  "✎ Text",
	model.ModeAudio: "🎤 Audio",
	model.ModePhoto: "📷 Photo",
}

// View renders the dialog.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.theme.Title.Render("New transaction"),
		m.renderTabs(),
		"",
		m.renderCapture(),
	}
	if status := m.renderStatus(); status != "" {
		sections = append(sections, "", status)
	}
	if review := m.renderReview(); review != "" {
		sections = append(sections, "", review)
	}
	sections = append(sections, "", m.renderSaveButton(), "", m.help.View(m.keymap))

	box := m.theme.RoundedBox
	if m.width > 0 {
		box = box.Width(min(m.width-2, 72))
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(modeOrder))
	for _, mode := range modeOrder {
		style := m.theme.Tab
		if mode == m.snap.Mode {
			style = m.theme.Selected
		}
		tabs = append(tabs, style.Render(modeLabels[mode]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderCapture() string {
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)

	switch m.snap.Mode {
	case model.ModeText:
		return lipgloss.JoinVertical(lipgloss.Left,
			muted.Render("Describe the transaction, then press Ctrl+E."),
			m.text.View(),
		)
	case model.ModeAudio:
		hint := "Press Ctrl+R and say what you spent or earned."
		if m.snap.Recording {
			hint = m.theme.StatusError.Render("● REC") + "  press Ctrl+R to stop"
		}
		return muted.Render(hint)
	case model.ModePhoto:
		return lipgloss.JoinVertical(lipgloss.Left,
			muted.Render("Receipt or invoice image, then press Ctrl+E."),
			m.path.View(),
		)
	default:
		return muted.Render("Press Tab to choose how to enter the transaction.")
	}
}

func (m Model) renderStatus() string {
	var lines []string
	if label := m.busyLabel(); label != "" {
		lines = append(lines, m.spinner.View()+" "+m.theme.StatusPending.Render(label))
	}
	if msg := m.snap.ErrorMessage(); msg != "" {
		line := m.theme.StatusError.Render("✗ " + msg)
		if m.snap.Retryable() {
			line += lipgloss.NewStyle().Foreground(m.theme.Muted).Render("  (try capturing again)")
		}
		lines = append(lines, line)
	}
	if m.notice != "" {
		lines = append(lines, m.theme.StatusWarning.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderReview() string {
	if a := m.snap.Analysis; a != nil {
		return m.renderAnalysis(*a)
	}
	if m.showManual() {
		return m.renderManual()
	}
	return ""
}

func (m Model) renderAnalysis(a model.AnalysisSnapshot) string {
	amountStyle := m.theme.StatusError
	if a.Type == model.TypeIncome {
		amountStyle = m.theme.StatusSuccess
	}

	confidence := m.theme.StatusError
	switch {
	case a.Confidence >= 0.8:
		confidence = m.theme.StatusSuccess
	case a.Confidence >= 0.5:
		confidence = m.theme.StatusWarning
	}

	rows := []string{
		m.theme.Bold.Render("Detected"),
		fmt.Sprintf("%-12s %s", "Type", a.Type),
		fmt.Sprintf("%-12s %s", "Amount", amountStyle.Render(model.FormatSignedAmount(a.Type, a.Amount, model.DefaultCurrency))),
		fmt.Sprintf("%-12s %s", "Category", a.Category),
	}
	if a.Description != "" {
		rows = append(rows, fmt.Sprintf("%-12s %s", "Description", a.Description))
	}
	rows = append(rows, fmt.Sprintf("%-12s %s", "Confidence", confidence.Render(model.FormatConfidence(a.Confidence))))
	return m.theme.Card.Render(strings.Join(rows, "\n"))
}

func (m Model) renderManual() string {
	label := func(f focus, name string) string {
		style := lipgloss.NewStyle().Foreground(m.theme.Muted)
		if m.focus == f {
			style = m.theme.Bold
		}
		return style.Render(fmt.Sprintf("%-12s", name))
	}

	typeChoice := func(t model.TransactionType, name string) string {
		if m.snap.Manual.Type == t {
			return m.theme.Selected.Render(name)
		}
		return m.theme.Tab.Render(name)
	}

	categories := model.CategoriesFor(m.snap.Manual.Type)
	rows := []string{
		m.theme.Bold.Render("Enter manually"),
		label(focusType, "Type") + typeChoice(model.TypeExpense, "Expense") + typeChoice(model.TypeIncome, "Income"),
		label(focusAmount, "Amount") + m.amount.View(),
		label(focusCategory, "Category") + m.category.View(),
	}
	if len(categories) > 0 {
		rows = append(rows, strings.Repeat(" ", 12)+lipgloss.NewStyle().Foreground(m.theme.Muted).Render(strings.Join(categories, " · ")))
	}
	rows = append(rows, label(focusDescription, "Description")+m.description.View())
	return m.theme.Card.Render(strings.Join(rows, "\n"))
}

func (m Model) renderSaveButton() string {
	if m.snap.CanConfirm() && !m.saving {
		return m.theme.Button.Render("Save  Ctrl+S")
	}
	return m.theme.ButtonOff.Render("Save  Ctrl+S")
}
