package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"todo-planner/internal/auth"
	"todo-planner/internal/repository"
)

func newRemindCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Email owners about tasks due tomorrow, once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.RemindOnce(cmd.Context(), time.Now(), cmd.OutOrStdout())
			return err
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := repository.Migrate(a.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	}
}

func newUserCmd(configPath *string) *cobra.Command {
	var name, email string

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user, or rename the user with the same email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			user, err := a.Users.Create(cmd.Context(), name, email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User #%d %s <%s>\n", user.ID, user.Name, user.Email)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&email, "email", "", "email address reminders go to")
	_ = create.MarkFlagRequired("email")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := a.Users.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "User #%d %s <%s>\n", u.ID, u.Name, u.Email)
			}
			return nil
		},
	}

	user := &cobra.Command{Use: "user", Short: "Manage users"}
	user.AddCommand(create, list)
	return user
}

func newTokenCmd(configPath *string) *cobra.Command {
	var (
		userID uint
		ttl    time.Duration
	)

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Print a bearer token for an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Config.Auth.Secret == "" {
				return fmt.Errorf("JWT_SECRET_KEY is not set")
			}
			if _, err := a.Users.FindByID(cmd.Context(), userID); err != nil {
				return fmt.Errorf("user #%d: %w", userID, err)
			}
			token, err := auth.Issue(a.Config.Auth.Secret, userID, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().UintVar(&userID, "user-id", 0, "user the token authenticates")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	_ = issue.MarkFlagRequired("user-id")

	token := &cobra.Command{Use: "token", Short: "Manage API tokens"}
	token.AddCommand(issue)
	return token
}
