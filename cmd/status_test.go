package cmd

import (
	"testing"

	"github.com/habedi/storekeeper/auth"
	"github.com/habedi/storekeeper/pkg/clierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCmd_NoSession(t *testing.T) {
	a, _ := newTestApp(t)

	output, err := captureCombinedOutput(statusCmd(a))
	require.NoError(t, err)
	assert.Contains(t, output, "Session: unauthenticated")
	assert.Contains(t, output, "storekeeper login")
}

func TestStatusCmd_LoggedIn(t *testing.T) {
	a, _ := newTestApp(t)
	logIn(t, a)

	output, err := captureCombinedOutput(statusCmd(a))
	require.NoError(t, err)
	assert.Contains(t, output, "Session: authenticated")
	assert.Contains(t, output, "User: jane")
	assert.Contains(t, output, "Name: Jane Doe")
	assert.Contains(t, output, "Access token expires:")
}

func TestGetCmd_PrintsIndentedJSON(t *testing.T) {
	a, _ := newTestApp(t)
	logIn(t, a)

	output, err := captureCombinedOutput(getCmd(a), "/products/1")
	require.NoError(t, err)
	assert.Contains(t, output, "\"name\": \"Red notebook\"")
}

func TestGetCmd_Raw(t *testing.T) {
	a, _ := newTestApp(t)
	logIn(t, a)

	output, err := captureCombinedOutput(getCmd(a), "--raw", "/products/1")
	require.NoError(t, err)
	assert.Contains(t, output, `"name":"Red notebook"`)
}

func TestGetCmd_RenewsExpiredSession(t *testing.T) {
	a, stub := newTestApp(t)
	logIn(t, a)
	stub.rotateAccess()

	output, err := captureCombinedOutput(getCmd(a), "/products")
	require.NoError(t, err)
	assert.Contains(t, output, "Blue pencil")
	assert.EqualValues(t, 1, stub.refreshCalls.Load())

	access, ok := a.svc.PeekAccessToken()
	require.True(t, ok)
	assert.Equal(t, "access-2", access)
}

func TestGetCmd_NotLoggedIn(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := captureCombinedOutput(getCmd(a), "/products")
	require.Error(t, err)
	assert.Equal(t, 3, clierr.ExitCode(err))
	assert.Contains(t, err.Error(), "storekeeper login")
	assert.Equal(t, auth.Unauthenticated, a.svc.State())
}

func TestGetCmd_NotFound(t *testing.T) {
	a, _ := newTestApp(t)
	logIn(t, a)

	_, err := captureCombinedOutput(getCmd(a), "/nowhere")
	require.Error(t, err)
	assert.Equal(t, 4, clierr.ExitCode(err))
	assert.Contains(t, err.Error(), "Cannot GET /nowhere")
}

func TestGetCmd_RequiresPath(t *testing.T) {
	a, _ := newTestApp(t)

	_, err := captureCombinedOutput(getCmd(a))
	assert.Error(t, err)

	_, err = captureCombinedOutput(getCmd(a), "  ")
	require.Error(t, err)
	assert.Equal(t, 2, clierr.ExitCode(err))
}
