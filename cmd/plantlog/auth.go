package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jgoulah/plantlog/internal/session"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the signed-in identity used for the remote mirror",
	Long: `Days are mirrored to the remote store only while a session exists. Start with
an anonymous session, then upgrade it to email and password to use the same
data from another device.`,
}

var authAnonymousCmd = &cobra.Command{
	Use:   "anonymous",
	Short: "Start an anonymous session",
	RunE:  runAuthAnonymous,
}

var authUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Attach an email and password to the anonymous session",
	RunE:  runAuthUpgrade,
}

var authSignInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with email and password",
	RunE:  runAuthSignIn,
}

var authSignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out; local data stays on this device",
	RunE:  runAuthSignOut,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authAnonymousCmd, authUpgradeCmd, authSignInCmd, authSignOutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

// withSessions runs fn with change notifications printed to the terminal
func withSessions(cmd *cobra.Command, fn func(ctx context.Context, p *session.Provider) error) error {
	return withEnv(cmd, envOptions{}, func(ctx context.Context, env *appEnv) error {
		if env.remote == nil {
			fmt.Println("Note: no remote store configured, records stay on this device")
		}
		env.sessions.OnChange(func(s *session.Session) {
			printSession(s)
		})
		return fn(ctx, env.sessions)
	})
}

func printSession(s *session.Session) {
	switch {
	case s == nil:
		fmt.Println("Signed out")
	case s.Anonymous:
		fmt.Printf("Signed in anonymously (user %s)\n", s.UserID)
	default:
		fmt.Printf("Signed in as %s (user %s)\n", s.Email, s.UserID)
	}
}

func runAuthAnonymous(cmd *cobra.Command, args []string) error {
	return withSessions(cmd, func(ctx context.Context, p *session.Provider) error {
		_, err := p.SignInAnonymously(ctx)
		return err
	})
}

func runAuthUpgrade(cmd *cobra.Command, args []string) error {
	return withSessions(cmd, func(ctx context.Context, p *session.Provider) error {
		email, password, err := promptCredentials(true)
		if err != nil {
			return err
		}
		_, err = p.Upgrade(ctx, email, password)
		return err
	})
}

func runAuthSignIn(cmd *cobra.Command, args []string) error {
	return withSessions(cmd, func(ctx context.Context, p *session.Provider) error {
		email, password, err := promptCredentials(false)
		if err != nil {
			return err
		}
		_, err = p.SignIn(ctx, email, password)
		return err
	})
}

func runAuthSignOut(cmd *cobra.Command, args []string) error {
	return withSessions(cmd, func(ctx context.Context, p *session.Provider) error {
		return p.SignOut(ctx)
	})
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	return withSessions(cmd, func(ctx context.Context, p *session.Provider) error {
		s, err := p.Current(ctx)
		if err != nil {
			return err
		}
		if s == nil {
			fmt.Println("Not signed in")
			return nil
		}
		printSession(s)
		return nil
	})
}

func promptCredentials(confirm bool) (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Enter email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("failed to read email: %w", err)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", "", fmt.Errorf("email cannot be empty")
	}

	fmt.Print("Enter password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	password := string(passwordBytes)
	if password == "" {
		return "", "", fmt.Errorf("password cannot be empty")
	}

	if confirm {
		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", "", fmt.Errorf("failed to read password confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return "", "", fmt.Errorf("passwords do not match")
		}
	}

	return email, password, nil
}
