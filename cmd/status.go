package cmd

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/pkg/clierr"
	"github.com/habedi/storekeeper/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// statusCmd shows whether a session is stored and for whom.
func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			state := a.svc.State()
			cmd.Println("Session:", state)
			if state != auth.Authenticated {
				cmd.Println(loginHint)
				return nil
			}

			if a.svc.Profiles != nil {
				profile, err := a.svc.Profiles.Get(cmd.Context())
				if err != nil {
					log.Warn().Err(err).Msg("Failed to read the stored profile")
				} else if profile != nil {
					cmd.Println("User:", profile.Login)
					if profile.Name != "" {
						cmd.Println("Name:", profile.Name)
					}
				}
			}
			if exp, ok := a.svc.AccessTokenExpiry(); ok {
				left := time.Until(exp).Round(time.Second)
				if left > 0 {
					cmd.Printf("Access token expires: %s (in %s)\n", exp.Local().Format(time.RFC3339), left)
				} else {
					cmd.Printf("Access token expired: %s; it is renewed on the next request\n", exp.Local().Format(time.RFC3339))
				}
			}
			return nil
		},
	}
}

// getCmd sends an authenticated GET to the API and prints the answer.
func getCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send an authenticated GET request and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := validation.ValidateNonEmptyString("path", path); err != nil {
				return clierr.New(clierr.Validation, "The request path cannot be empty.", err)
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}

			resp, err := a.api.Get(cmd.Context(), path)
			if err != nil {
				return userError("get "+path, err)
			}

			body := resp.Body
			if !raw {
				var pretty bytes.Buffer
				if json.Indent(&pretty, body, "", "  ") == nil {
					body = pretty.Bytes()
				}
			}
			cmd.Println(string(body))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&raw, "raw", "r", false, "Print the body as received, without indenting JSON")

	return cmd
}
