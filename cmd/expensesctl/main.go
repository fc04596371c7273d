// expensesctl manages user accounts for the expenses server. Users are
// provisioned here, out-of-band: the HTTP API itself never creates or
// deletes them.
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rongwang/expenses-server/internal/config"
	"github.com/rongwang/expenses-server/internal/models"
	"github.com/rongwang/expenses-server/internal/repository"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var rootCmd = &cobra.Command{
	Use:   "expensesctl",
	Short: "Admin tool for the expenses server",
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
	Long:  "Manage user accounts for authentication",
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		db, repo, err := openRepository()
		if err != nil {
			return err
		}
		defer db.Close()

		existing, err := repo.FindUser(cmd.Context(), username)
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("user already exists: %s", username)
		}

		hashedPassword, err := promptPasswordHash()
		if err != nil {
			return err
		}

		user := &models.User{
			Username:  username,
			Password:  hashedPassword,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.CreateUser(cmd.Context(), user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Printf("User '%s' created successfully\n", username)
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		db, repo, err := openRepository()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Printf("Are you sure you want to delete user '%s'? (yes/no): ", username)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" {
			fmt.Println("Cancelled")
			return nil
		}

		if err := repo.DeleteUser(cmd.Context(), username); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		fmt.Printf("User '%s' deleted successfully\n", username)
		return nil
	},
}

var usersUpdatePasswordCmd = &cobra.Command{
	Use:   "update-password <username>",
	Short: "Update user password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		db, repo, err := openRepository()
		if err != nil {
			return err
		}
		defer db.Close()

		user, err := repo.FindUser(cmd.Context(), username)
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("user not found: %s", username)
		}

		hashedPassword, err := promptPasswordHash()
		if err != nil {
			return err
		}

		if err := repo.UpdateUserPassword(cmd.Context(), username, hashedPassword); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}

		fmt.Printf("Password for '%s' updated successfully\n", username)
		return nil
	},
}

// promptPasswordHash reads and confirms a password from the terminal
// and returns its bcrypt hash.
func promptPasswordHash() (string, error) {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	confirmPassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(password) != string(confirmPassword) {
		return "", fmt.Errorf("passwords do not match")
	}

	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

func openRepository() (*sqlx.DB, repository.Repository, error) {
	cfg := config.LoadConfig()

	db, err := config.SetupDatabase(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up database: %w", err)
	}

	return db, repository.NewPostgresRepository(db), nil
}

func main() {
	usersCmd.AddCommand(usersAddCmd, usersDeleteCmd, usersUpdatePasswordCmd)
	rootCmd.AddCommand(usersCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
