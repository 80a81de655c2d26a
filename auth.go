package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/dropbox-go/internal/dropbox"
	"github.com/tonimelisma/dropbox-go/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Link a Dropbox account",
		Long: `Link a Dropbox account and save its access token.

Without flags, the authorization page is opened in a browser and the code it
shows is read from a dialog or the terminal. --code exchanges a code obtained
elsewhere, and --token stores an access token generated in the App Console.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().String("code", "", "authorization code to exchange for a token")
	cmd.Flags().String("token", "", "existing access token to use")
	cmd.MarkFlagsMutuallyExclusive("code", "token")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved access token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the linked account",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	code, err := cmd.Flags().GetString("code")
	if err != nil {
		return err
	}

	token, err := cmd.Flags().GetString("token")
	if err != nil {
		return err
	}

	f, err := cc.facade()
	if err != nil {
		return err
	}

	var sess *dropbox.Session

	switch {
	case token != "":
		cc.Logger.Info("login started", slog.String("flow", "token"))

		var ok bool
		if sess, ok = f.AuthorizeToken(ctx, token); !ok {
			return fmt.Errorf("access token was rejected")
		}
	case code != "":
		cc.Logger.Info("login started", slog.String("flow", "code"))

		if sess, err = f.AuthorizeCode(ctx, code); err != nil {
			return err
		}
	default:
		cc.Logger.Info("login started", slog.String("flow", "web"))

		if sess, err = f.AuthorizeWeb(ctx); err != nil {
			return err
		}
	}

	acct := sess.Account()
	meta := tokenfile.Meta{
		AccountID:   acct.ID,
		DisplayName: acct.DisplayName,
		Email:       acct.Email,
		LinkedAt:    time.Now().UTC(),
	}

	if err := cc.Tokens.Save(sess.AccessToken(), meta); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	cc.Logger.Info("login successful", slog.String("account_id", acct.ID), slog.String("path", cc.Tokens.Path()))
	cc.Statusf("Linked account %s.\n", accountLabel(acct))

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	removed, err := cc.Tokens.Remove()
	if err != nil {
		return err
	}

	if !removed {
		cc.Statusf("Not logged in.\n")
		return nil
	}

	cc.Logger.Info("logout successful", slog.String("path", cc.Tokens.Path()))
	cc.Statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	sess, err := cc.session(cmd.Context())
	if err != nil {
		return err
	}

	acct := sess.Account()

	// Refresh the cached details for the saved token.
	if cc.Cfg.Token == "" {
		if err := cc.Tokens.UpdateMeta(tokenfile.Meta{
			AccountID:   acct.ID,
			DisplayName: acct.DisplayName,
			Email:       acct.Email,
		}); err != nil {
			cc.Logger.Warn("updating cached account details", slog.String("error", err.Error()))
		}
	}

	if cc.Flags.JSON {
		return printJSON(cc.Stdout(), whoamiOutput{
			AccountID:   acct.ID,
			DisplayName: acct.DisplayName,
			Email:       acct.Email,
		})
	}

	fmt.Fprintf(cc.Stdout(), "User:  %s\n", accountLabel(acct))
	fmt.Fprintf(cc.Stdout(), "ID:    %s\n", acct.ID)

	return nil
}

// accountLabel renders "Name (email)", falling back to whichever is set.
func accountLabel(a dropbox.Account) string {
	switch {
	case a.DisplayName != "" && a.Email != "":
		return fmt.Sprintf("%s (%s)", a.DisplayName, a.Email)
	case a.DisplayName != "":
		return a.DisplayName
	case a.Email != "":
		return a.Email
	default:
		return a.ID
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}
