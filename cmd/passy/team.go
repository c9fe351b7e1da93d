package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/patrykmil/passy/internal/domain"
	"github.com/patrykmil/passy/internal/vault"

	"github.com/spf13/cobra"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Create teams, join them and admit members",
}

var acceptRole string

func init() {
	teamCmd.AddCommand(teamCreateCmd)
	teamCmd.AddCommand(teamListCmd)
	teamCmd.AddCommand(teamApplyCmd)
	teamCmd.AddCommand(teamApplicationsCmd)
	teamCmd.AddCommand(teamAcceptCmd)
	teamCmd.AddCommand(teamOnboardCmd)
	teamCmd.AddCommand(teamDeclineCmd)
	teamCmd.AddCommand(teamRemoveCmd)
	teamCmd.AddCommand(teamLeaveCmd)

	teamAcceptCmd.Flags().StringVar(&acceptRole, "role", string(domain.RoleMember), "role of the new member (member or admin)")
}

var teamCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a team you administer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		team, err := app.client.CreateTeam(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		success("Created team %s (%s). Invite code: %s", team.Name, team.ID, team.Code)
		return nil
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the teams you belong to",
	RunE: func(cmd *cobra.Command, args []string) error {
		teams, err := app.client.ListTeams(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMEMBERS\tCODE")
		for _, t := range teams {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.ID, t.Name, len(t.AllMemberIDs()), t.Code)
		}
		return w.Flush()
	},
}

var teamApplyCmd = &cobra.Command{
	Use:   "apply <code>",
	Short: "Ask to join a team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.client.ApplyToTeam(cmd.Context(), args[0]); err != nil {
			return err
		}
		success("Application sent. An admin has to accept it.")
		return nil
	},
}

var teamApplicationsCmd = &cobra.Command{
	Use:   "applications",
	Short: "List pending applications to teams you administer",
	RunE: func(cmd *cobra.Command, args []string) error {
		apps, err := app.client.Applications(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TEAM\tTEAM ID\tUSER\tUSER ID")
		for _, a := range apps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.TeamName, a.TeamID, a.Username, a.UserID)
		}
		return w.Flush()
	},
}

var teamAcceptCmd = &cobra.Command{
	Use:   "accept <team-id> <user-id>",
	Short: "Admit an applicant and share the team's secrets with them",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.unlock(cmd.Context()); err != nil {
			return err
		}

		result, err := app.vault.AcceptMember(cmd.Context(), args[0], args[1], domain.Role(acceptRole))
		return reportOnboarding(args[1], result, err)
	},
}

var teamOnboardCmd = &cobra.Command{
	Use:   "onboard <team-id> <user-id>",
	Short: "Share the team's secrets with an existing member again",
	Long: `Completes an interrupted acceptance. Secrets the member already holds
are skipped, so running it more than once is safe.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.unlock(cmd.Context()); err != nil {
			return err
		}

		result, err := app.vault.OnboardMember(cmd.Context(), args[0], args[1])
		return reportOnboarding(args[1], result, err)
	},
}

var teamDeclineCmd = &cobra.Command{
	Use:   "decline <team-id> <user-id>",
	Short: "Reject an application",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.client.DeclineApplication(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		success("Declined %s", args[1])
		return nil
	},
}

var teamRemoveCmd = &cobra.Command{
	Use:   "remove <team-id> <user-id>",
	Short: "Remove a member and the secrets shared with them",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.client.RemoveMember(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		success("Removed %s from team %s", args[1], args[0])
		warn("They may have copied the passwords they could read. Consider changing them.")
		return nil
	},
}

var teamLeaveCmd = &cobra.Command{
	Use:   "leave <team-id>",
	Short: "Leave a team and drop your copies of its secrets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.client.LeaveTeam(cmd.Context(), args[0]); err != nil {
			return err
		}
		success("Left team %s", args[0])
		return nil
	},
}

func reportOnboarding(userID string, result *vault.OnboardingResult, err error) error {
	var onboarding *vault.OnboardingError
	if errors.As(err, &onboarding) {
		warn("Onboarding stopped; run 'passy team onboard' to resume.")
		return err
	}
	if err != nil {
		return err
	}

	success("Shared %d secret(s) with %s", len(result.Created), userID)
	if len(result.Skipped) > 0 {
		fmt.Printf("Already shared: %s\n", strings.Join(result.Skipped, ", "))
	}
	return nil
}
