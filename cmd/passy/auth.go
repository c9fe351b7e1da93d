package main

import (
	"errors"

	"github.com/patrykmil/passy/internal/vault"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account and a fresh key pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readNewPassword()
		if err != nil {
			return err
		}

		user, err := app.vault.Register(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}

		success("Registered %s (%s). Run 'passy login %s' to continue.", user.Username, user.ID, user.Username)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and remember the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		result, err := app.vault.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		if !result.PrivateKeyAvailable {
			warn("Your private key could not be unlocked; team secrets are unavailable.")
		}

		if err := app.saveSession(result.User.ID, result.User.Username); err != nil {
			return err
		}
		success("Logged in as %s", result.User.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget its tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := app.vault.Logout(cmd.Context())
		if rmErr := app.metadata.Remove(); rmErr != nil {
			return rmErr
		}
		if err != nil && !errors.Is(err, vault.ErrNotAuthenticated) {
			warn("Server logout failed: %v", err)
		}

		success("Logged out")
		return nil
	},
}
