package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marroweth/vigil/internal/cli"
	"github.com/marroweth/vigil/internal/model"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage monitored users",
	}

	cmd.AddCommand(usersAddCmd())
	cmd.AddCommand(usersListCmd())

	return cmd
}

func usersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Create or update a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runUsersAdd,
	}

	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("email", "", "email address")
	cmd.Flags().String("state", "", "home state (two-letter code)")
	cmd.Flags().Float64("credit-limit", 0, "credit limit")
	cmd.Flags().Float64("credit-balance", 0, "current credit balance")
	cmd.Flags().Bool("location-consent", false, "user consents to location-based alerts")

	return cmd
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	state, _ := cmd.Flags().GetString("state")
	limit, _ := cmd.Flags().GetFloat64("credit-limit")
	balance, _ := cmd.Flags().GetFloat64("credit-balance")
	consent, _ := cmd.Flags().GetBool("location-consent")

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	user := model.User{
		ID:              args[0],
		Name:            name,
		Email:           email,
		AddressState:    state,
		CreditLimit:     limit,
		CreditBalance:   balance,
		LocationConsent: consent,
	}

	if err := store.SaveUsers(ctx, []model.User{user}); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Saved user " + user.ID))
	return nil
}

func usersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE:  runUsersList,
	}
}

func runUsersList(cmd *cobra.Command, _ []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	users, err := store.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println(cli.FormatInfo("No users found"))
		return nil
	}

	headers := []string{"ID", "NAME", "STATE", "LIMIT", "BALANCE", "CONSENT"}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		consent := "no"
		if u.LocationConsent {
			consent = "yes"
		}
		rows = append(rows, []string{
			u.ID,
			u.Name,
			u.AddressState,
			fmt.Sprintf("%.2f", u.CreditLimit),
			fmt.Sprintf("%.2f", u.CreditBalance),
			consent,
		})
	}

	fmt.Println(cli.FormatTitle("Users"))
	fmt.Print(cli.RenderTable(headers, rows))
	return nil
}
