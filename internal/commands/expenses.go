package commands

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/smart-finance/internal/ledger"
	"gitlab.com/yelinaung/smart-finance/internal/report"
)

func newAddCommand(d deps) *cobra.Command {
	return &cobra.Command{
		Use:     "add <text>",
		Short:   "Record an expense described in free text",
		Example: "  smart-finance add 吃午饭20元",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return d.run(cmd, needs{ai: true}, func(ctx context.Context, a *app) error {
				expense, err := a.ledger.AddFromText(ctx, cliSession, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Added:")
				printExpense(cmd.OutOrStdout(), expense)
				return nil
			})
		},
	}
}

func newImportCommand(d deps) *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import expenses from a receipt image, PDF statement or voice recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if mimeType == "" {
				mimeType = detectMIME(args[0], data)
			}

			return d.run(cmd, needs{ai: true}, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()

				if strings.HasPrefix(mimeType, "audio/") {
					expense, err := a.ledger.AddFromVoice(ctx, cliSession, data, mimeType)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, "Added:")
					printExpense(out, expense)
					return nil
				}

				res, err := a.ledger.ImportDocument(ctx, cliSession, data, mimeType)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported %d expense(s):\n", res.Count)
				for _, e := range res.Records {
					printExpense(out, e)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mimeType, "type", "", "MIME type of the file (detected when empty)")

	return cmd
}

// detectMIME guesses a file's type from its extension, then its content.
func detectMIME(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

func newListCommand(d deps) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return d.run(cmd, needs{}, func(_ context.Context, a *app) error {
				out := cmd.OutOrStdout()
				records := a.ledger.Recent(limit)
				if len(records) == 0 {
					fmt.Fprintln(out, "No expenses recorded.")
					return nil
				}
				for _, e := range records {
					printExpense(out, e)
				}
				fmt.Fprintf(out, "\n%d of %d expense(s), total %s\n",
					len(records), len(a.ledger.List()), report.FormatAmount(a.ledger.Total()))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n expenses (0 for all)")

	return cmd
}

func newDeleteCommand(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense by ID or unique ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return d.run(cmd, needs{}, func(ctx context.Context, a *app) error {
				expense, err := a.ledger.Resolve(args[0])
				if errors.Is(err, ledger.ErrNotFound) {
					return fmt.Errorf("no expense matches %q", args[0])
				}
				if err != nil {
					return err
				}
				if _, err := a.ledger.Delete(ctx, expense.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s %s\n",
					shortID(expense.ID), expense.Description, report.FormatAmount(expense.Amount))
				return nil
			})
		},
	}
}

func newTotalCommand(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Show total spending with category and Need/Want breakdowns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return d.run(cmd, needs{}, func(_ context.Context, a *app) error {
				printSummary(cmd.OutOrStdout(), a.ledger.Summary())
				return nil
			})
		},
	}
}

func newAdviceCommand(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "advice",
		Short: "Ask Gemini for advice on your spending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return d.run(cmd, needs{ai: true}, func(ctx context.Context, a *app) error {
				text, err := a.ledger.Advice(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}
