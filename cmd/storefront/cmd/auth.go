package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.pilab.hu/storefront/api"
	"go.pilab.hu/storefront/internal/app"
	"go.pilab.hu/storefront/vault"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the storefront session",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password and store the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			var err error
			if email, err = prompt(out, "Enter email: "); err != nil {
				return err
			}
		}
		password, err := readPassword(out, "Enter password: ")
		if err != nil {
			return err
		}

		resp, err := application.API.Login(ctx, api.LoginRequest{Email: email, Password: password})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if resp.AccessToken == "" {
			return errors.New("login response did not contain an access token")
		}
		if err := application.Vault.Store(ctx, resp.AccessToken); err != nil {
			return err
		}

		fmt.Fprintln(out, "Login successful.")
		return nil
	},
}

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Log in with GitHub; the backend account is provisioned on first use",
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, err := application.FederatedBridge()
		if err != nil {
			return err
		}

		outcome, err := bridge.LoginWithProvider(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !outcome.Authenticated {
			fmt.Fprintf(out, "GitHub login finished but the backend issued no session. Log in with '%s auth login' (%s).\n",
				rootCmd.Name(), outcome.Route)
			return nil
		}
		if id := bridge.Snapshot().Identity; id != nil {
			fmt.Fprintf(out, "Logged in as %s.\n", id.Email)
		}
		fmt.Fprintf(out, "Continue at %s\n", outcome.Route)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and remove the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bridge, err := application.FederatedBridge()
		switch {
		case errors.Is(err, app.ErrFederationDisabled):
			if err := application.Vault.Clear(ctx); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := bridge.Logout(ctx); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, found, err := application.Vault.Retrieve(cmd.Context())
		switch {
		case errors.Is(err, vault.ErrDecryption):
			fmt.Fprintf(out, "Stored session in slot %q is unreadable; log in again.\n", application.Vault.SlotKey())
			return nil
		case err != nil:
			return err
		case !found:
			fmt.Fprintln(out, "Not logged in.")
		default:
			fmt.Fprintf(out, "Logged in (session stored in slot %q).\n", application.Vault.SlotKey())
		}
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account; verify the email before logging in",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		phone, _ := cmd.Flags().GetString("phone")

		password, err := readPassword(out, "Enter password: ")
		if err != nil {
			return err
		}
		confirm, err := readPassword(out, "Confirm password: ")
		if err != nil {
			return err
		}

		account, err := application.API.Register(cmd.Context(), api.RegisterRequest{
			Username:        username,
			PhoneNumber:     phone,
			Email:           email,
			Password:        password,
			ConfirmPassword: confirm,
		})
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		fmt.Fprintf(out, "Account %s created. Check %s for the verification link.\n", account.Username, email)
		return nil
	},
}

var verifyEmailCmd = &cobra.Command{
	Use:   "verify-email TOKEN",
	Short: "Submit an email verification token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := application.API.VerifyEmail(cmd.Context(), args[0])
		if err != nil {
			var apiErr *api.Error
			if errors.As(err, &apiErr) && apiErr.Message != "" {
				return fmt.Errorf("verification failed: %s", apiErr.Message)
			}
			return fmt.Errorf("verification failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg.Message)
		return nil
	},
}

func prompt(w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func readPassword(w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, githubCmd, logoutCmd, statusCmd, registerCmd, verifyEmailCmd)

	loginCmd.Flags().String("email", "", "account email (prompted when empty)")

	registerCmd.Flags().String("username", "", "account username")
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("phone", "", "phone number")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("email")
}
