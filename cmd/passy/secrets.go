package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/patrykmil/passy/internal/vault"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "List, add, show, edit and remove secrets",
}

var (
	addName  string
	addURL   string
	addLogin string
	addTeam  string

	editName     string
	editURL      string
	editLogin    string
	editPassword bool
)

func init() {
	secretsCmd.AddCommand(secretsListCmd)
	secretsCmd.AddCommand(secretsAddCmd)
	secretsCmd.AddCommand(secretsShowCmd)
	secretsCmd.AddCommand(secretsEditCmd)
	secretsCmd.AddCommand(secretsRemoveCmd)

	secretsAddCmd.Flags().StringVar(&addName, "name", "", "name of the secret")
	secretsAddCmd.Flags().StringVar(&addURL, "url", "", "site the secret belongs to")
	secretsAddCmd.Flags().StringVar(&addLogin, "login", "", "login or e-mail")
	secretsAddCmd.Flags().StringVar(&addTeam, "team", "", "share with every member of this team")
	secretsAddCmd.MarkFlagRequired("name")
	secretsAddCmd.MarkFlagRequired("login")

	secretsEditCmd.Flags().StringVar(&editName, "name", "", "new name")
	secretsEditCmd.Flags().StringVar(&editURL, "url", "", "new site")
	secretsEditCmd.Flags().StringVar(&editLogin, "login", "", "new login or e-mail")
	secretsEditCmd.Flags().BoolVar(&editPassword, "password", false, "prompt for a new password")
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every secret you hold",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.unlock(cmd.Context()); err != nil {
			return err
		}

		revealed, err := app.vault.ListSecrets(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSCOPE\tNAME\tLOGIN\tURL")
		for _, r := range revealed {
			name := r.Secret.Name
			if !r.Readable {
				name = color.RedString("%s (unreadable)", name)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Secret.ID, r.Secret.Scope, name, r.Secret.Login, r.Secret.URL)
		}
		return w.Flush()
	},
}

var secretsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Encrypt and store a new secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.unlock(cmd.Context()); err != nil {
			return err
		}

		password, err := readPassword("Secret password: ")
		if err != nil {
			return err
		}
		input := vault.SecretInput{Name: addName, URL: addURL, Login: addLogin, Password: password}

		if addTeam == "" {
			secret, err := app.vault.CreatePersonalSecret(cmd.Context(), input)
			if err != nil {
				return err
			}
			success("Stored %s as %s", secret.Name, secret.ID)
			return nil
		}

		rows, err := app.vault.CreateTeamSecret(cmd.Context(), addTeam, input)
		var fanout *vault.FanoutError
		if errors.As(err, &fanout) && fanout.RollbackErr != nil {
			warn("Some copies of %s could not be removed. Run 'passy secrets list' and remove them with 'passy secrets rm'.", addName)
		}
		if err != nil {
			return err
		}
		success("Shared %s with %d member(s) of team %s", addName, len(rows), addTeam)
		return nil
	},
}

var secretsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Decrypt one secret and print its password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.unlock(cmd.Context()); err != nil {
			return err
		}

		r, err := findSecret(cmd, args[0])
		if err != nil {
			return err
		}
		if !r.Readable {
			return fmt.Errorf("secret %s cannot be decrypted: %w", args[0], r.Err)
		}

		fmt.Printf("Name:     %s\n", r.Secret.Name)
		fmt.Printf("Login:    %s\n", r.Secret.Login)
		if r.Secret.URL != "" {
			fmt.Printf("URL:      %s\n", r.Secret.URL)
		}
		fmt.Printf("Password: %s\n", r.Password)
		return nil
	},
}

// secretEdits holds the fields given on the command line. Nil fields
// keep their current value.
type secretEdits struct {
	name     *string
	url      *string
	login    *string
	password *string
}

func (e secretEdits) apply(r *vault.Revealed) vault.SecretInput {
	input := vault.SecretInput{
		Name:     r.Secret.Name,
		URL:      r.Secret.URL,
		Login:    r.Secret.Login,
		Password: r.Password,
	}
	if e.name != nil {
		input.Name = *e.name
	}
	if e.url != nil {
		input.URL = *e.url
	}
	if e.login != nil {
		input.Login = *e.login
	}
	if e.password != nil {
		input.Password = *e.password
	}
	return input
}

var secretsEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the fields or the password of a secret",
	Long: `Only the given flags change. Editing a shared secret re-encrypts it for
every member of the team.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.unlock(cmd.Context()); err != nil {
			return err
		}

		r, err := findSecret(cmd, args[0])
		if err != nil {
			return err
		}
		if !r.Readable {
			return fmt.Errorf("secret %s cannot be decrypted: %w", args[0], r.Err)
		}

		var edits secretEdits
		flags := cmd.Flags()
		if flags.Changed("name") {
			edits.name = &editName
		}
		if flags.Changed("url") {
			edits.url = &editURL
		}
		if flags.Changed("login") {
			edits.login = &editLogin
		}
		if editPassword {
			password, err := readPassword("New secret password: ")
			if err != nil {
				return err
			}
			edits.password = &password
		}
		input := edits.apply(r)

		if !r.Secret.IsTeam() {
			updated, err := app.vault.UpdatePersonalSecret(cmd.Context(), r.Secret, input)
			if err != nil {
				return err
			}
			success("Updated %s", updated.Name)
			return nil
		}

		rows, err := app.vault.UpdateTeamSecret(cmd.Context(), r.Secret.GroupToken, input)
		if err != nil {
			return err
		}
		success("Updated %s for %d member(s)", input.Name, len(rows))
		return nil
	},
}

var secretsRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a secret",
	Long: `A shared secret is removed for every member of its team, since each
member holds their own copy.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := findSecret(cmd, args[0])
		if err != nil {
			return err
		}

		if !r.Secret.IsTeam() {
			if err := app.vault.DeleteSecret(cmd.Context(), r.Secret); err != nil {
				return err
			}
			success("Removed %s", r.Secret.Name)
			return nil
		}

		warn("%s is shared with team %s, removing it for every member", r.Secret.Name, r.Secret.TeamID)
		if err := app.vault.DeleteSecretGroup(cmd.Context(), r.Secret.GroupToken); err != nil {
			return err
		}
		success("Removed %s for every member", r.Secret.Name)
		return nil
	},
}

func findSecret(cmd *cobra.Command, id string) (*vault.Revealed, error) {
	revealed, err := app.vault.ListSecrets(cmd.Context())
	if err != nil {
		return nil, err
	}
	for _, r := range revealed {
		if r.Secret.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("no secret with id " + id)
}
