package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/satranslator/translator/internal/gateway"
	"github.com/satranslator/translator/internal/nav"
	"github.com/satranslator/translator/internal/settings"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile, or update it with flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteRoot); err != nil {
				return err
			}
			if err := a.settings.Open(cmd.Context(), settings.TabProfile); err != nil {
				return err
			}

			form := a.settings.Profile()
			changed := false
			for name, dst := range map[string]*string{
				"first-name": &form.FirstName,
				"last-name":  &form.LastName,
				"location":   &form.Location,
				"bio":        &form.Bio,
			} {
				if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
					*dst = f.Value.String()
					changed = true
				}
			}
			if changed {
				a.settings.SetProfile(form)
				if err := a.settings.UpdateProfile(cmd.Context()); err != nil {
					return reported(err)
				}
			}

			u := a.store.User()
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			if u != nil {
				fmt.Fprintf(w, "Email\t%s\n", u.Email)
				fmt.Fprintf(w, "Username\t%s\n", u.Username)
			}
			fmt.Fprintf(w, "First name\t%s\n", form.FirstName)
			fmt.Fprintf(w, "Last name\t%s\n", form.LastName)
			fmt.Fprintf(w, "Location\t%s\n", form.Location)
			fmt.Fprintf(w, "Bio\t%s\n", form.Bio)
			return w.Flush()
		},
	}

	f := cmd.Flags()
	f.String("first-name", "", "set the first name")
	f.String("last-name", "", "set the last name")
	f.String("location", "", "set the location")
	f.String("bio", "", "set the bio")
	return cmd
}

func newPasswordCmd() *cobra.Command {
	var form gateway.PasswordChange

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteRoot); err != nil {
				return err
			}
			if err := a.settings.Open(cmd.Context(), settings.TabPassword); err != nil {
				return err
			}

			var err error
			if form.CurrentPassword, err = a.valueOr(form.CurrentPassword, "Current password: "); err != nil {
				return err
			}
			if form.NewPassword, err = a.valueOr(form.NewPassword, "New password: "); err != nil {
				return err
			}
			if form.NewPasswordConfirmation, err = a.valueOr(form.NewPasswordConfirmation, "Confirm new password: "); err != nil {
				return err
			}
			a.settings.SetPassword(form)
			return reported(a.settings.UpdatePassword(cmd.Context()))
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.CurrentPassword, "current", "", "current password (prompted when omitted)")
	f.StringVar(&form.NewPassword, "new", "", "new password (prompted when omitted)")
	f.StringVar(&form.NewPasswordConfirmation, "confirm", "", "new password confirmation (prompted when omitted)")
	return cmd
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List signed-in devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteRoot); err != nil {
				return err
			}
			if err := a.settings.Open(cmd.Context(), settings.TabSessions); err != nil {
				return err
			}
			return printSessions(a, a.settings.Sessions())
		},
	}
}

func printSessions(a *app, records []gateway.SessionRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No active sessions.")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDEVICE\tIP\tLAST ACTIVE")
	for _, s := range records {
		last := "-"
		if !s.LastActiveAt.IsZero() {
			last = s.LastActiveAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Device, s.IPAddress, last)
	}
	return w.Flush()
}

func newRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "Sign out a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteRoot); err != nil {
				return err
			}
			if err := a.settings.Open(cmd.Context(), settings.TabSessions); err != nil {
				return err
			}
			if err := a.settings.RevokeSession(cmd.Context(), args[0]); err != nil {
				return reported(err)
			}
			return printSessions(a, a.settings.Sessions())
		},
	}
}
