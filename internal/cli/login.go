package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/smartrent/internal/auth"
	"github.com/evcraddock/smartrent/internal/profile"
)

type loginOptions struct {
	email    string
	phone    string
	password string
	otp      bool
	oauth    string
	redirect string
}

func newLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with a password, a one-time code or a third-party provider.

Examples:
  sr login --email ada@example.com
  sr login --phone +2348012345678 --otp
  sr login --oauth google`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.phone, "phone", "", "account phone number")
	cmd.Flags().StringVar(&opts.password, "password", "", "password (prompted when omitted)")
	cmd.Flags().BoolVar(&opts.otp, "otp", false, "sign in with a one-time code instead of a password")
	cmd.Flags().StringVar(&opts.oauth, "oauth", "", "sign in with a provider (google, github, ...)")
	cmd.Flags().StringVar(&opts.redirect, "redirect", "", "URL the provider returns to")

	return cmd
}

func runLogin(cmd *cobra.Command, opts loginOptions) error {
	contact := auth.Contact{
		Email: strings.ToLower(strings.TrimSpace(opts.email)),
		Phone: strings.TrimSpace(opts.phone),
	}
	if opts.oauth == "" && contact.Email == "" && contact.Phone == "" {
		return fmt.Errorf("--email or --phone is required")
	}

	return withApp(cmd, func(ctx context.Context, e *env) error {
		in := bufio.NewReader(cmd.InOrStdin())

		var (
			sess *auth.Session
			err  error
		)
		switch {
		case opts.oauth != "":
			url, err := e.app.Auth.OAuthURL(opts.oauth, opts.redirect)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "Opening browser for %s sign-in...\n", opts.oauth)
			fmt.Fprintf(e.out, "If the browser doesn't open, visit: %s\n", url)
			if err := openBrowser(url); err != nil {
				e.log.Warn("could not open browser", "error", err)
			}
			return nil

		case opts.otp:
			if err := e.app.Auth.SignInWithOTP(ctx, contact); err != nil {
				return err
			}
			code, err := prompt(e.out, in, "Enter the code we sent you: ")
			if err != nil {
				return err
			}
			sess, err = e.app.Auth.VerifyOTP(ctx, contact, code)
			if err != nil {
				return err
			}

		default:
			password := opts.password
			if password == "" {
				if password, err = prompt(e.out, in, "Password: "); err != nil {
					return err
				}
			}
			sess, err = e.app.Auth.SignInWithPassword(ctx, contact, password)
			if err != nil {
				return err
			}
		}

		return finishLogin(ctx, e, sess)
	})
}

type loginResult struct {
	Profile   *profile.Profile `json:"profile"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// finishLogin stores the session and makes sure the user has a profile.
func finishLogin(ctx context.Context, e *env, sess *auth.Session) error {
	if sess.AccessToken == "" {
		_, err := fmt.Fprintln(e.out, "Check your email to confirm your account, then run 'sr login'.")
		return err
	}
	if err := saveSession(e.path, sess); err != nil {
		return err
	}
	e.app.SetAccessToken(sess.AccessToken)

	p, err := e.app.Profiles.Ensure(ctx, sess.User)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	return e.emit(loginResult{Profile: p, ExpiresAt: sess.ExpiresAt}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ Logged in as %s (%s)\n", p.FullName, p.Role)
		return err
	})
}

// prompt writes label and reads one trimmed line.
func prompt(w io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("no input provided")
	}
	return line, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
