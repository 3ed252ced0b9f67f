package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/marroweth/vigil/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.ofx> [file.ofx...]",
		Short: "Import OFX/QFX transaction files for a user",
		Long: `Parse one or more OFX/QFX statement files and store their
transactions under the given user. Transactions already imported
(same user, date, amount, and merchant) are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("user", "", "user ID to attribute transactions to (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	ctx := cmd.Context()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// The user must exist so that features can join credit fields later
	if _, err := store.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("unknown user %s (create it with 'vigil users add'): %w", userID, err)
	}

	before, err := store.GetTransactionCount(ctx)
	if err != nil {
		return err
	}

	parser := ofx.NewParser()
	parsed := 0

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		transactions, err := parser.ParseFile(ctx, f, userID)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		if len(transactions) == 0 {
			slog.Warn("No transactions found in file", "file", path)
			continue
		}

		if err := store.SaveTransactions(ctx, transactions); err != nil {
			return fmt.Errorf("failed to save transactions from %s: %w", path, err)
		}
		parsed += len(transactions)
	}

	after, err := store.GetTransactionCount(ctx)
	if err != nil {
		return err
	}

	slog.Info("Import complete",
		"user", userID,
		"files", len(args),
		"parsed", parsed,
		"imported", after-before,
		"duplicates_skipped", parsed-(after-before))

	return nil
}
