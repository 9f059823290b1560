package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/pkg/clierr"
	"github.com/habedi/storekeeper/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword reads a password without echo. Tests replace it.
var readPassword = promptForPassword

// loginCmd creates a new cobra.Command for logging in to the API.
func loginCmd(a *app) *cobra.Command {
	var login string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the storekeeper API",
		Long:  "Log in with your login and password; the session is stored locally and renewed automatically",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			if login == "" {
				var err error
				login, err = promptForInput(cmd.InOrStdin(), cmd.OutOrStdout(), "Login: ")
				if err != nil {
					return clierr.New(clierr.Validation, "Failed to read the login.", err)
				}
			}
			password, err := readPassword(cmd.OutOrStdout(), "Password: ")
			if err != nil {
				return clierr.New(clierr.Validation, "Failed to read the password.", err)
			}
			if err := validateCredentials(login, password); err != nil {
				return clierr.New(clierr.Validation, "Login and password cannot be empty.", err)
			}

			profile, err := a.svc.Login(cmd.Context(), login, password)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) && !isTransportError(err) {
					return clierr.New(clierr.Auth, "Login failed: wrong login or password.", err)
				}
				return userError("log in", err)
			}

			name := login
			if profile != nil && profile.Name != "" {
				name = profile.Name
			}
			cmd.Printf("Logged in as %s.\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&login, "login", "l", "", "Login to use; prompted for when omitted")

	return cmd
}

// logoutCmd removes the stored session.
func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if err := a.svc.Logout(cmd.Context()); err != nil {
				log.Error().Err(err).Msg("Failed to log out")
				return clierr.New(clierr.Internal, "Failed to remove the stored session.", err)
			}
			cmd.Println("Logged out.")
			return nil
		},
	}
}

// promptForInput prompts the user for input and returns the trimmed string.
func promptForInput(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// promptForPassword prompts the user for a password securely and returns the trimmed string.
func promptForPassword(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(password)), nil
}

// validateCredentials checks if the login and password are not empty.
func validateCredentials(login, password string) error {
	if err := validation.ValidateNonEmptyString("login", login); err != nil {
		return err
	}
	return validation.ValidateNonEmptyString("password", password)
}
