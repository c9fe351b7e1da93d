package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/patrykmil/passy/internal/client"
	"github.com/patrykmil/passy/internal/config"
	"github.com/patrykmil/passy/internal/logging"
	"github.com/patrykmil/passy/internal/session"
	"github.com/patrykmil/passy/internal/vault"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool

	// app is built once per invocation, before any subcommand runs.
	app *App

	rootCmd = &cobra.Command{
		Use:   "passy",
		Short: "passy - a zero-knowledge password manager",
		Long: `passy keeps your passwords encrypted on your machine before they are
stored on the server. Personal secrets are sealed with a key derived from
your password; team secrets are sealed to every member's public key.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			app = a
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(secretsCmd)
	rootCmd.AddCommand(passwordCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(teamCmd)
}

// App carries what every command needs. Key material only lives in
// the vault's key store for the duration of one invocation.
type App struct {
	cfg      *config.Config
	log      *logging.Logger
	client   *client.Client
	vault    *vault.Vault
	metadata *session.MetadataStore
}

func newApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := "warn"
	switch {
	case debug:
		level = "debug"
	case verbose:
		level = "info"
	}
	log := logging.New(level)

	c := client.New(cfg.Client.APIURL, cfg.Client.Timeout)
	v := vault.New(vault.Options{
		Store:             c,
		Users:             c,
		Teams:             c,
		Auth:              c,
		Logger:            log,
		FanoutConcurrency: cfg.Client.FanoutConcurrency,
	})

	a := &App{
		cfg:      cfg,
		log:      log,
		client:   c,
		vault:    v,
		metadata: session.NewMetadataStore(cfg.Client.SessionFile),
	}
	a.restore()
	return a, nil
}

// restore loads tokens and the account from the previous login.
func (a *App) restore() {
	meta, err := a.metadata.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoMetadata) {
			a.log.Warnf("ignoring session file: %v", err)
		}
		return
	}
	if !meta.IsAuthenticated {
		return
	}

	a.client.SetTokens(meta.AccessToken, meta.RefreshToken)
	a.vault.SetAccount(meta.UserID, meta.Username)
	a.log.Debugf("restored session of %s", meta.Username)
}

func (a *App) saveSession(userID, username string) error {
	access, refresh := a.client.Tokens()
	return a.metadata.Save(&session.Metadata{
		UserID:          userID,
		Username:        username,
		AccessToken:     access,
		RefreshToken:    refresh,
		IsAuthenticated: true,
	})
}

// unlock asks for the password and installs key material for the
// stored account.
func (a *App) unlock(ctx context.Context) error {
	acct, err := a.vault.Account()
	if err != nil {
		return errors.New("not logged in, run 'passy login <username>' first")
	}

	password, err := readPassword(fmt.Sprintf("Password for %s: ", acct.Username))
	if err != nil {
		return err
	}

	result, err := a.vault.Reauthenticate(ctx, password)
	if err != nil {
		return err
	}
	if !result.PrivateKeyAvailable {
		warn("Your private key could not be unlocked; team secrets are unavailable.")
	}
	return a.saveSession(acct.UserID, acct.Username)
}
