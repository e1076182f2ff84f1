package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/spice-capture/internal/archive"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/shopspring/decimal"
)

const descriptionWidth = 28

// PrintTransactions writes stored transactions as a table followed by totals.
func PrintTransactions(w io.Writer, txs []model.StoredTransaction) error {
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No transactions found."))
		return err
	}

	header := fmt.Sprintf("%-10s  %-14s  %-12s  %-*s  %-5s  %s",
		"Date", "Amount", "Category", descriptionWidth, "Description", "Via", "ID")
	if _, err := fmt.Fprintln(w, TableHeaderStyle.Render(header)); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}

	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.Type == model.TypeIncome {
			income = income.Add(tx.Amount)
		} else {
			expense = expense.Add(tx.Amount)
		}

		amount := fmt.Sprintf("%-14s", model.FormatSignedAmount(tx.Type, tx.Amount, ""))
		row := fmt.Sprintf("%-10s  %s  %-12s  %-*s  %-5s  %s",
			tx.Date(),
			FormatSignedAmount(tx.Type, amount),
			truncate(tx.Category, 12),
			descriptionWidth, truncate(tx.Description, descriptionWidth),
			tx.InputMethod,
			SubtleStyle.Render(tx.ID))
		if tx.AttachmentURI != "" {
			row += "  📎 " + archive.FilenameFromURI(tx.AttachmentURI)
		}
		if _, err := fmt.Fprintln(w, row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	net := income.Sub(expense)
	summary := fmt.Sprintf("\n%d transaction(s) · income %s · expenses %s · net %s",
		len(txs),
		IncomeStyle.Render(model.FormatAmount(income, "")),
		ExpenseStyle.Render(model.FormatAmount(expense, "")),
		model.FormatAmount(net, ""))
	_, err := fmt.Fprintln(w, summary)
	return err
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
