package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/concierge/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		account string
		code    string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize a Google account",
		Long: `Authorize concierge to use Google Calendar and to send email with Gmail.

Without --code, prints the authorization URL for the account. After signing
in, copy the "code" parameter from the redirect and run the command again
with --code to store the token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if account == "" {
				account = cfg.Account
			}
			return runAuth(cmd.Context(), cmd.OutOrStdout(), account, code, force)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Google account name (default: GOOGLE_ACCOUNT or \"default\")")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the OAuth redirect")
	cmd.Flags().BoolVar(&force, "force", false, "Re-authorize even if a token already exists")

	return cmd
}

func runAuth(ctx context.Context, out io.Writer, account, code string, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if code != "" {
		if err := google.SaveTokenForAccount(ctx, account, code); err != nil {
			return fmt.Errorf("failed to save token for account %s: %w", account, err)
		}
		fmt.Fprintf(out, "Account %q authorized.\n", account)
		return nil
	}

	if !force && google.HasTokenForAccount(account) {
		fmt.Fprintf(out, "Account %q is already authorized. Use --force to authorize again.\n", account)
		return nil
	}

	if google.GetAuthURLForAccount(account) == "" {
		// Surfaces the credentials hint together with the sentinel.
		if _, err := google.GetOAuthConfig(); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, google.GetAuthenticationErrorMessage(account))
	return nil
}
