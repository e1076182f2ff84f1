package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Veraticus/spice-capture/internal/cli"
	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/Veraticus/spice-capture/internal/storage"
	"github.com/spf13/cobra"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List or delete saved transactions",
	}
	cmd.AddCommand(transactionsListCmd())
	cmd.AddCommand(transactionsDeleteCmd())
	return cmd
}

type listFlags struct {
	from     string
	to       string
	txType   string
	category string
	limit    int
}

func transactionsListCmd() *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved transactions, newest first",
		Example: `  spice transactions list --from 2024-05-01 --to 2024-05-31
  spice transactions list --type expense --category Food`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			return listTransactions(cmd.Context(), a.store, a.cfg.OwnerID, filter, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flags.from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.to, "to", "", "last date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.txType, "type", "", "income or expense")
	cmd.Flags().StringVar(&flags.category, "category", "", "only this category")
	cmd.Flags().IntVarP(&flags.limit, "limit", "n", 0, "show at most n transactions")
	return cmd
}

func (f listFlags) filter() (storage.Filter, error) {
	filter := storage.Filter{Category: f.category, Limit: f.limit}
	if f.limit < 0 {
		return filter, common.NewUserError("--limit cannot be negative", fmt.Errorf("%w: limit %d", common.ErrInvalidConfig, f.limit))
	}
	for _, d := range []struct {
		dst  **time.Time
		raw  string
		name string
	}{
		{&filter.From, f.from, "--from"},
		{&filter.To, f.to, "--to"},
	} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse(model.DateLayout, d.raw)
		if err != nil {
			return filter, common.NewUserError(fmt.Sprintf("%s must look like 2024-05-17", d.name), err)
		}
		*d.dst = &t
	}
	if f.txType != "" {
		t, err := model.ParseTransactionType(f.txType)
		if err != nil {
			return filter, common.NewUserError("--type must be income or expense", err)
		}
		filter.Type = t
	}
	return filter, nil
}

func listTransactions(ctx context.Context, store *storage.SQLiteStorage, owner string, filter storage.Filter, w io.Writer) error {
	txs, err := store.List(ctx, owner, filter)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}
	return cli.PrintTransactions(w, txs)
}

func transactionsDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			prompter := cli.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			return deleteTransaction(cmd.Context(), cmd.OutOrStdout(), a.store, a.cfg.OwnerID, args[0], prompter, yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func deleteTransaction(ctx context.Context, w io.Writer, store *storage.SQLiteStorage, owner, id string, p *cli.Prompter, yes bool) error {
	tx, err := store.Get(ctx, id)
	if err == nil && tx.OwnerID != owner {
		err = common.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("No transaction with id %s.", id), err)
		}
		return fmt.Errorf("failed to load transaction: %w", err)
	}

	if !yes {
		if err := cli.PrintTransactions(w, []model.StoredTransaction{tx}); err != nil {
			return err
		}
		ok, err := p.Confirm(ctx, "Delete this transaction?", false)
		if err != nil {
			return err
		}
		if !ok {
			p.Println(cli.FormatInfo("Kept."))
			return nil
		}
	}

	if err := store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	p.Println(cli.FormatSuccess("Deleted " + id))
	return nil
}
