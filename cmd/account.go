package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelwatch/internal/app"
	"reelwatch/internal/auth"
	"reelwatch/internal/ui"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  signupRun,
}

var signinCmd = &cobra.Command{
	Use:   "signin [email|nickname]",
	Short: "Sign in with your email address or nickname",
	Args:  cobra.MaximumNArgs(1),
	RunE:  signinRun,
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and forget this session's player state",
	Args:  cobra.NoArgs,
	RunE:  signoutRun,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your account and watch statistics",
	Args:  cobra.NoArgs,
	RunE:  profileRun,
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change your password",
	Args:  cobra.NoArgs,
	RunE:  passwdRun,
}

func init() {
	rootCmd.AddCommand(signupCmd, signinCmd, signoutCmd, profileCmd, passwdCmd)
}

func signupRun(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		return signUpForm(ctx, a)
	})
}

func signUpForm(ctx context.Context, a *app.App) error {
	var req auth.SignUpRequest
	var err error
	if req.Email, err = ui.Input("Email", "you@example.com"); err != nil {
		return err
	}
	if req.Nickname, err = ui.Input("Nickname", "at least 3 characters"); err != nil {
		return err
	}
	if req.Password, err = ui.Password("Password"); err != nil {
		return err
	}
	if req.Confirm, err = ui.Password("Confirm password"); err != nil {
		return err
	}

	user, err := a.Auth.SignUp(ctx, req)
	if err != nil {
		return err
	}
	a.Nav.AuthSucceeded()
	notice("Welcome, %s!", user.Nickname)
	return nil
}

func signinRun(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		identifier := ""
		if len(args) == 1 {
			identifier = args[0]
		}
		return signInForm(ctx, a, identifier)
	})
}

func signInForm(ctx context.Context, a *app.App, identifier string) error {
	var err error
	if identifier == "" {
		if identifier, err = ui.Input("Email or nickname", ""); err != nil {
			return err
		}
	}
	password, err := ui.Password("Password")
	if err != nil {
		return err
	}

	user, err := a.Auth.SignIn(ctx, identifier, password)
	if err != nil {
		return err
	}
	a.Nav.AuthSucceeded()
	notice("Signed in as %s.", user.Nickname)
	return nil
}

func signoutRun(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if !a.Auth.Authenticated() {
			notice("Not signed in.")
			return nil
		}
		if err := a.Nav.SignOut(ctx); err != nil {
			// Local state is gone either way.
			debugf("sign out: %v", err)
		}
		notice("Signed out.")
		return nil
	})
}

// profileView is the --json output of profile.
type profileView struct {
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	MemberSince string `json:"member_since"`
	Movies      int    `json:"movies_watched"`
	Shows       int    `json:"tv_shows_watched"`
	Bookmarks   int    `json:"bookmarks"`
	Ratings     int    `json:"ratings"`
}

func profileRun(cmd *cobra.Command, args []string) error {
	return withApp(cmd, printProfile)
}

func printProfile(ctx context.Context, a *app.App) error {
	user, err := a.RequireUser()
	if err != nil {
		return err
	}
	movies, shows, err := a.History.Counts(ctx)
	if err != nil {
		return fmt.Errorf("loading watch statistics: %w", err)
	}

	v := profileView{
		Nickname:    user.Nickname,
		Email:       user.Email,
		MemberSince: user.CreatedAt.Format("January 2, 2006"),
		Movies:      movies,
		Shows:       shows,
		Bookmarks:   len(a.Bookmarks.List()),
		Ratings:     len(a.Ratings.List()),
	}
	if flagJSON {
		return printJSON(v)
	}

	fmt.Println(ui.Heading.Render(user.Nickname))
	fmt.Print(ui.KeyValue([][2]string{
		{"Email", v.Email},
		{"Member since", fmt.Sprintf("%s (%s)", v.MemberSince, humanize.Time(user.CreatedAt))},
		{"Movies watched", humanize.Comma(int64(v.Movies))},
		{"TV shows watched", humanize.Comma(int64(v.Shows))},
		{"Bookmarks", humanize.Comma(int64(v.Bookmarks))},
		{"Ratings", humanize.Comma(int64(v.Ratings))},
	}))
	return nil
}

func passwdRun(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if _, err := a.RequireUser(); err != nil {
			return err
		}
		current, err := ui.Password("Current password")
		if err != nil {
			return err
		}
		next, err := ui.Password("New password")
		if err != nil {
			return err
		}
		confirm, err := ui.Password("Confirm new password")
		if err != nil {
			return err
		}
		if err := a.Auth.ChangePassword(ctx, current, next, confirm); err != nil {
			return err
		}
		notice("Password changed.")
		return nil
	})
}
