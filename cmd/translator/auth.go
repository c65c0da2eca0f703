package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satranslator/translator/internal/gateway"
	"github.com/satranslator/translator/internal/nav"
	"github.com/satranslator/translator/internal/otp"
	"github.com/satranslator/translator/internal/session"
)

func newRegisterCmd() *cobra.Command {
	var req gateway.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and send a verification code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteRegister); err != nil {
				return err
			}

			var err error
			if req.Email, err = a.valueOr(req.Email, "Email: "); err != nil {
				return err
			}
			if req.Password, err = a.valueOr(req.Password, "Password: "); err != nil {
				return err
			}
			if req.PasswordConfirmation == "" {
				if req.PasswordConfirmation, err = a.prompt("Confirm password: "); err != nil {
					return err
				}
			}
			if err := a.auth.Register(cmd.Context(), req); err != nil {
				return reported(err)
			}
			fmt.Fprintf(a.out, "Enter the code sent to %s with `translator verify`.\n", req.Email)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "account email")
	f.StringVar(&req.Username, "username", "", "display name")
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	f.StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	f.StringVar(&req.PasswordConfirmation, "password-confirmation", "", "password confirmation (prompted when omitted)")
	return cmd
}

func newLoginCmd() *cobra.Command {
	var req gateway.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteLogin); err != nil {
				return err
			}

			var err error
			if req.Email, err = a.valueOr(req.Email, "Email: "); err != nil {
				return err
			}
			if req.Password, err = a.valueOr(req.Password, "Password: "); err != nil {
				return err
			}
			if err := a.auth.Login(cmd.Context(), req); err != nil {
				return reported(err)
			}
			if u := a.store.User(); u != nil {
				fmt.Fprintf(a.out, "Signed in as %s.\n", u.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [code]",
		Short: "Enter the 6-digit code from the last register or forgot-password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			flow := a.store.Flow()
			if a.store.PendingEmail() == "" {
				return errors.New("no code pending, run `translator register` or `translator forgot-password` first")
			}
			if err := a.enter(nav.RouteVerifyToken); err != nil {
				return err
			}

			code := ""
			if len(args) == 1 {
				code = args[0]
			}
			code, err := a.valueOr(code, fmt.Sprintf("Code sent to %s: ", a.store.PendingEmail()))
			if err != nil {
				return err
			}
			fillCode(a.otp, code)

			if err := a.otp.Submit(cmd.Context()); err != nil {
				return reported(err)
			}
			if flow == session.FlowPasswordReset {
				fmt.Fprintln(a.out, "Choose a new password with `translator reset-password`.")
			} else {
				fmt.Fprintln(a.out, "You can now sign in with `translator login`.")
			}
			return nil
		},
	}
}

// fillCode types code into the digit slots. A full paste is tried first; otherwise the
// characters are entered one slot at a time and non-digits are skipped.
func fillCode(c *otp.Controller, code string) {
	if c.Paste(code) {
		return
	}
	slot := 0
	for _, r := range code {
		if slot >= otp.Length {
			return
		}
		if c.DigitChange(slot, string(r)) {
			slot++
		}
	}
}

func newResendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend",
		Short: "Send a fresh verification code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteVerifyToken); err != nil {
				return err
			}
			return reported(a.otp.Resend(cmd.Context()))
		},
	}
}

func newForgotPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Send a password reset code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.enter(nav.RouteForgotPassword); err != nil {
				return err
			}
			email, err := a.valueOr(email, "Email: ")
			if err != nil {
				return err
			}
			if err := a.auth.ForgotPassword(cmd.Context(), email); err != nil {
				return reported(err)
			}
			fmt.Fprintln(a.out, "Enter the code with `translator verify`.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newResetPasswordCmd() *cobra.Command {
	var password, confirmation string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Choose a new password after verifying a reset code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if a.store.Flow() != session.FlowPasswordReset || a.store.Token() == "" {
				return errors.New("no verified reset code, run `translator forgot-password` first")
			}
			if err := a.enter(nav.RouteResetPassword); err != nil {
				return err
			}

			var err error
			if password, err = a.valueOr(password, "New password: "); err != nil {
				return err
			}
			if confirmation, err = a.valueOr(confirmation, "Confirm new password: "); err != nil {
				return err
			}
			if err := a.auth.ResetPassword(cmd.Context(), password, confirmation); err != nil {
				return reported(err)
			}
			fmt.Fprintln(a.out, "Sign in with `translator login`.")
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	cmd.Flags().StringVar(&confirmation, "password-confirmation", "", "new password confirmation (prompted when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if err := a.auth.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}
