package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/internal/session"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// readSecret takes the first line of stdin when a password flag is empty.
func (a *App) readSecret(prompt string) (string, error) {
	fmt.Fprint(a.errOut, prompt)
	sc := bufio.NewScanner(a.in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no password given")
	}
	return strings.TrimRight(sc.Text(), "\r\n"), nil
}

func (a *App) loginCommand() *cobra.Command {
	var creds apiclient.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			creds.Username = strings.TrimSpace(creds.Username)
			if creds.Username == "" {
				return errors.New("--username is required")
			}
			if creds.Password == "" {
				pw, err := a.readSecret("Password: ")
				if err != nil {
					return err
				}
				creds.Password = pw
			}

			sess, err := a.sessions.Login(ctx, creds)
			if errors.Is(err, apiclient.ErrInvalidCredentials) {
				logger(ctx).Warn("login_failed", "status", 401, "reason", "invalid credentials", "username", creds.Username)
				return errors.New("invalid username or password")
			}
			if err != nil {
				return errors.New(apiclient.UserMessage(err))
			}
			fmt.Fprintf(a.out, "Logged in as %s (%s).\n", sess.DisplayName, sess.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password (read from stdin when empty)")
	return cmd
}

type signupInput struct {
	Username   string `validate:"required,min=3,max=150"`
	Email      string `validate:"required,email"`
	Password   string `validate:"required,min=8"`
	FirstName  string `validate:"max=150"`
	LastName   string `validate:"max=150"`
	Role       string `validate:"required,oneof=student staff admin"`
	Department string `validate:"max=100"`
}

func (a *App) signupCommand() *cobra.Command {
	in := signupInput{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if in.Password == "" {
				pw, err := a.readSecret("Password: ")
				if err != nil {
					return err
				}
				in.Password = pw
			}
			if err := validate.Struct(in); err != nil {
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) {
					msgs := make([]string, 0, len(verrs))
					for _, fe := range verrs {
						msgs = append(msgs, fmt.Sprintf("%s: failed %s", strings.ToLower(fe.Field()), fe.Tag()))
					}
					return errors.New(strings.Join(msgs, "; "))
				}
				return err
			}

			sess, err := a.sessions.Signup(ctx, apiclient.Registration{
				Username:   strings.TrimSpace(in.Username),
				Email:      strings.TrimSpace(in.Email),
				Password:   in.Password,
				FirstName:  in.FirstName,
				LastName:   in.LastName,
				Role:       models.Role(in.Role),
				Department: in.Department,
			})
			if err != nil {
				logger(ctx).Warn("signup_failed", "status", 400, "error", err)
				return errors.New(apiclient.UserMessage(err))
			}
			fmt.Fprintf(a.out, "Account created. Logged in as %s (%s).\n", sess.DisplayName, sess.Role)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&in.Username, "username", "u", "", "username")
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVarP(&in.Password, "password", "p", "", "password, at least 8 characters (read from stdin when empty)")
	f.StringVar(&in.FirstName, "first-name", "", "first name")
	f.StringVar(&in.LastName, "last-name", "", "last name")
	f.StringVar(&in.Role, "role", string(models.RoleStudent), "student, staff or admin")
	f.StringVar(&in.Department, "department", "", "department")
	return cmd
}

func (a *App) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.sessions.Logout(cmd.Context(), ""); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func (a *App) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			w := a.table()
			fmt.Fprintf(w, "User\t%s (%s)\n", sess.DisplayName, sess.Username)
			fmt.Fprintf(w, "Id\t%d\n", sess.UserID)
			fmt.Fprintf(w, "Role\t%s\n", sess.Role)
			fmt.Fprintf(w, "Home\t%s\n", sess.HomePath())
			if exp, ok := session.AccessExpiry(sess.AccessToken); ok {
				fmt.Fprintf(w, "Token expires\t%s\n", exp.In(a.loc).Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}
