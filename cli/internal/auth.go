package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/preventix/preventix/internal/api"
	"github.com/preventix/preventix/internal/pkg/timeutil"
)

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
		Long:  `Manage authentication for the Preventix CLI`,
	}

	cmd.AddCommand(newAuthRegisterCommand())
	cmd.AddCommand(newAuthLoginCommand())
	cmd.AddCommand(newAuthLogoutCommand())
	cmd.AddCommand(newAuthStatusCommand())
	cmd.AddCommand(newAuthTokenCommand())

	return cmd
}

func newAuthRegisterCommand() *cobra.Command {
	var (
		email    string
		password string
		fullName string
		age      int
		gender   string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on the Preventix server",
		Example: `  # Register a new account
  preventix auth register --email user@example.com --name "Jane Doe"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			var err error
			if email == "" {
				if email, err = promptLine("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword("Password: "); err != nil {
					return err
				}
			}
			if fullName == "" {
				if fullName, err = promptLine("Full name: "); err != nil {
					return err
				}
			}

			req := api.RegisterRequest{
				Email:    email,
				Password: password,
				FullName: fullName,
			}
			if cmd.Flags().Changed("age") {
				req.Age = &age
			}
			if cmd.Flags().Changed("gender") {
				req.Gender = &gender
			}

			tok, err := cliCtx.Client.Register(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			fmt.Printf("✓ Account created for %s\n", tok.User.Email)
			printTokenExpiry(tok.AccessToken)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "u", "", "Account email (if not provided, will prompt)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (if not provided, will prompt)")
	cmd.Flags().StringVar(&fullName, "name", "", "Full name (if not provided, will prompt)")
	cmd.Flags().IntVar(&age, "age", 0, "Age in years (optional)")
	cmd.Flags().StringVar(&gender, "gender", "", "Gender (optional)")

	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the Preventix server",
		Long:  `Authenticate with email and password. Tokens are stored per context and refreshed automatically when they expire.`,
		Example: `  # Login, prompting for the password
  preventix auth login --email user@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			var err error
			if email == "" {
				if email, err = promptLine("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword("Password: "); err != nil {
					return err
				}
			}

			tok, err := cliCtx.Client.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Printf("✓ Successfully logged in as %s\n", tok.User.Email)
			printTokenExpiry(tok.AccessToken)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "u", "", "Account email (if not provided, will prompt)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (if not provided, will prompt)")

	return cmd
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from the Preventix server",
		Long:  `Remove the stored credentials for the current context`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)
			cliCtx.Client.Logout()
			fmt.Println("✓ Successfully logged out")
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := NewFileStore()
			if err != nil {
				return err
			}
			creds, err := store.Load()
			if err != nil {
				fmt.Println("Not logged in")
				return nil
			}

			if creds.User != nil {
				fmt.Printf("Logged in as: %s\n", creds.User.Email)
				fmt.Printf("User ID: %s\n", creds.User.ID)
			}

			expiresAt, err := extractJWTExpiry(creds.AccessToken)
			if err != nil {
				fmt.Println("Token expiry: unknown")
				return nil
			}

			// Show expiry in local timezone
			fmt.Printf("Token expires: %s\n", expiresAt.Local().Format("2006-01-02 15:04:05 MST"))

			now := time.Now()
			if now.After(expiresAt) {
				fmt.Printf("⚠  Token expired %s ago - automatic refresh will be attempted on next request\n",
					timeutil.FormatDuration(now.Sub(expiresAt)))
			} else {
				fmt.Printf("✓  Valid for %s\n", timeutil.FormatDuration(expiresAt.Sub(now)))
			}

			if creds.HasRefresh() && creds.RefreshToken != creds.AccessToken {
				if refreshExpiry, err := extractJWTExpiry(creds.RefreshToken); err == nil {
					fmt.Printf("Refresh token expires: %s\n",
						refreshExpiry.Local().Format("2006-01-02 15:04:05 MST"))
				}
			}

			return nil
		},
	}
}

func newAuthTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Display the current access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := NewFileStore()
			if err != nil {
				return err
			}
			creds, err := store.Load()
			if err != nil {
				return fmt.Errorf("not logged in: %w", err)
			}

			fmt.Println(creds.AccessToken)
			return nil
		},
	}
}

func printTokenExpiry(accessToken string) {
	if expiresAt, err := extractJWTExpiry(accessToken); err == nil {
		fmt.Printf("  Token expires: %s\n", expiresAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func promptLine(label string) (string, error) {
	fmt.Print(label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // newline after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(passwordBytes), nil
}
