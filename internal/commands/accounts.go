package commands

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/ledger"
	"github.com/dvloznov/ledger-intake/internal/pipeline"
)

// findAccount looks an account up by id, then by name.
func findAccount(store *ledger.Store, ref string) (domain.Account, error) {
	if acct, err := store.Account(ref); err == nil {
		return acct, nil
	}
	acct, matched, err := pipeline.ResolveAccount(ref, store.Accounts())
	if err != nil || !matched {
		return domain.Account{}, fmt.Errorf("account %q: %w", ref, ledger.ErrAccountNotFound)
	}
	return acct, nil
}

func newAccountsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List and manage accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			printAccounts(cmd.OutOrStdout(), a.Store.Accounts(), a.Store.Settings().Currency)
			return nil
		},
	}

	var typ, opening string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accountType, err := domain.ParseAccountType(typ)
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(opening)
			if err != nil {
				return fmt.Errorf("opening balance %q: %w", opening, err)
			}

			a, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			acct, err := a.Store.CreateAccount(ctx, args[0], accountType, amount)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "created %s (%s)", acct.Name, acct.ID)
			return nil
		},
	}
	add.Flags().StringVar(&typ, "type", string(domain.AccountOther), "savings, credit, wallet, investment or other")
	add.Flags().StringVar(&opening, "opening", "0", "opening balance")

	rename := &cobra.Command{
		Use:   "rename <account> <new name>",
		Short: "Rename an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			acct, err := findAccount(a.Store, args[0])
			if err != nil {
				return err
			}
			if _, err := a.Store.RenameAccount(ctx, acct.ID, args[1]); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "renamed %s to %s", acct.Name, args[1])
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <account>",
		Short: "Delete an account without transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			acct, err := findAccount(a.Store, args[0])
			if err != nil {
				return err
			}
			if err := a.Store.DeleteAccount(ctx, acct.ID); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "deleted %s", acct.Name)
			return nil
		},
	}

	cmd.AddCommand(add, rename, del)
	return cmd
}

func newTransferCommand(opts *globalOptions) *cobra.Command {
	var from, to, amount, date, description string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money between two accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("amount %q: %w", amount, err)
			}
			req := ledger.TransferRequest{Amount: value, Description: description}
			if date != "" {
				if req.Date, err = civil.ParseDate(date); err != nil {
					return fmt.Errorf("date %q: %w", date, err)
				}
			}

			a, ctx, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := findAccount(a.Store, from)
			if err != nil {
				return err
			}
			dst, err := findAccount(a.Store, to)
			if err != nil {
				return err
			}
			req.FromAccountID, req.ToAccountID = src.ID, dst.ID

			tx, err := a.Store.Transfer(ctx, req)
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "transferred %s from %s to %s (%s)", tx.Amount.StringFixed(2), src.Name, dst.Name, tx.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source account name or id")
	cmd.Flags().StringVar(&to, "to", "", "destination account name or id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to move")
	cmd.Flags().StringVar(&date, "date", "", "transfer date (YYYY-MM-DD), today when empty")
	cmd.Flags().StringVar(&description, "description", "", "description")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
