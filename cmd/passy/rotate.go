package main

import (
	"errors"

	"github.com/patrykmil/passy/internal/session"
	"github.com/patrykmil/passy/internal/vault"

	"github.com/spf13/cobra"
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Manage your account password",
}

var passwordChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Change your password and re-encrypt every personal secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		acct, err := app.vault.Account()
		if err != nil {
			return errors.New("not logged in, run 'passy login <username>' first")
		}

		oldPassword, err := readPassword("Current password: ")
		if err != nil {
			return err
		}
		if _, err := app.vault.Reauthenticate(cmd.Context(), oldPassword); err != nil {
			return err
		}
		newPassword, err := readNewPassword()
		if err != nil {
			return err
		}

		result, err := app.vault.ChangePassword(cmd.Context(), oldPassword, newPassword, vault.PasswordChangeOptions{
			RewrapPrivateKey: app.vault.Keys().Has(session.KindPrivate),
		})
		if saveErr := app.saveSession(acct.UserID, acct.Username); saveErr != nil {
			app.log.Warnf("failed to save session: %v", saveErr)
		}
		return reportRotation("Password changed", result, err)
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage your key pair",
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Replace your key pair and re-seal every team secret you hold",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.unlock(cmd.Context()); err != nil {
			return err
		}

		result, err := app.vault.RotateIdentity(cmd.Context())
		if result != nil && result.SharedSecretsSkipped {
			warn("Team secrets were not re-sealed; ask a team admin to share them again.")
		}
		var rotation *vault.RotationResult
		if result != nil {
			rotation = &result.RotationResult
		}
		return reportRotation("Key pair rotated", rotation, err)
	},
}

func init() {
	passwordCmd.AddCommand(passwordChangeCmd)
	keysCmd.AddCommand(keysRotateCmd)
}

// reportRotation prints partial failures and still exits non-zero when
// any secret was left behind.
func reportRotation(done string, result *vault.RotationResult, err error) error {
	var partial *vault.PartialRotationError
	if err != nil && !errors.As(err, &partial) {
		return err
	}

	if result != nil {
		success("%s: %d secret(s) re-encrypted", done, len(result.Rotated))
	}
	if partial != nil {
		for _, f := range partial.Failures {
			warn("%s (%s): %v", f.SecretID, f.SecretName, f.Err)
		}
		return err
	}
	return nil
}
