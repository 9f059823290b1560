package cmd

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/client"
	"github.com/habedi/storekeeper/pkg/clierr"
)

const loginHint = "Please run 'storekeeper login' and try again."

// userError turns a failure from the API layer into a clierr.Error with a message for the terminal.
// action completes the sentence "Failed to ...".
func userError(action string, err error) error {
	var ce *clierr.Error
	if errors.As(err, &ce) {
		return err
	}

	if isTransportError(err) {
		return clierr.New(clierr.Network, fmt.Sprintf("Failed to %s: the server could not be reached.", action), err)
	}

	if errors.Is(err, auth.ErrUnauthorized) || client.Classify(err) == client.RenewableAuthFailure {
		return clierr.New(clierr.Auth, fmt.Sprintf("Failed to %s: not logged in or the session has expired. %s", action, loginHint), err)
	}

	var he *client.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.StatusCode == http.StatusNotFound:
			return clierr.New(clierr.NotFound, fmt.Sprintf("Failed to %s: %s.", action, client.ErrorMessage(err)), err)
		case he.StatusCode == http.StatusForbidden:
			return clierr.New(clierr.Auth, fmt.Sprintf("Failed to %s: access denied.", action), err)
		case he.StatusCode >= 500:
			return clierr.New(clierr.Network, fmt.Sprintf("Failed to %s: the server answered %d.", action, he.StatusCode), err)
		default:
			return clierr.New(clierr.Internal, fmt.Sprintf("Failed to %s: %s.", action, client.ErrorMessage(err)), err)
		}
	}

	if errors.Is(err, auth.ErrRenewalUnavailable) {
		return clierr.New(clierr.Network, fmt.Sprintf("Failed to %s: the server is unavailable, try again later.", action), err)
	}

	return clierr.New(clierr.Internal, fmt.Sprintf("Failed to %s. Please check the logs for details.", action), err)
}

// isTransportError reports whether err comes from the connection rather than from an API answer.
func isTransportError(err error) bool {
	var ue *url.Error
	var ne net.Error
	return errors.As(err, &ue) || errors.As(err, &ne)
}
