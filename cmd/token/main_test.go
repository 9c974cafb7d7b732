package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCreateAndListKeys(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "--key-dir", dir, "create-key", "--key-id", "main", "--type", "ec")
	require.NoError(t, err)
	assert.Equal(t, "Key ID: main\n", out)

	_, err = runCLI(t, "--key-dir", dir, "create-key", "--key-id", "backup", "--type", "ec")
	require.NoError(t, err)

	out, err = runCLI(t, "--key-dir", dir, "list-keys")
	require.NoError(t, err)
	assert.Contains(t, out, "main (default)")
	assert.Contains(t, out, "backup")
}

func TestCreateKeyRejectsUnknownType(t *testing.T) {
	_, err := runCLI(t, "--key-dir", t.TempDir(), "create-key", "--type", "dsa")
	assert.Error(t, err)
}

func TestShowPublic(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "--key-dir", dir, "create-key", "--key-id", "main", "--type", "ec")
	require.NoError(t, err)

	out, err := runCLI(t, "--key-dir", dir, "show-public", "main")
	require.NoError(t, err)
	assert.Contains(t, out, "Key ID: main")
	assert.Contains(t, out, "-----BEGIN PUBLIC KEY-----")
}

func TestTokenRoundTripThroughCLI(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "--key-dir", dir, "create-key", "--type", "ec")
	require.NoError(t, err)

	out, err := runCLI(t, "--key-dir", dir, "create-token",
		"--issuer", "https://issuer.test",
		"--audience", "https://api.test",
		"--expiration", "2030-01-01T00:00:00Z",
		"--claims-json", `{"ptet:write": true}`,
		"alice",
	)
	require.NoError(t, err)
	signed := strings.TrimSpace(out)
	require.NotEmpty(t, signed)

	out, err = runCLI(t, "--key-dir", dir, "verify-token",
		"--expect-issuer", "https://issuer.test",
		"--expect-audience", "https://api.test",
		signed,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Subject: alice")
	assert.Contains(t, out, "Token ID: ")
}

func TestVerifyTokenRejectsWrongIssuer(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "--key-dir", dir, "create-key", "--type", "ec")
	require.NoError(t, err)

	out, err := runCLI(t, "--key-dir", dir, "create-token",
		"--issuer", "https://issuer.test",
		"--expiration", "2030-01-01T00:00:00Z",
		"alice",
	)
	require.NoError(t, err)

	_, err = runCLI(t, "--key-dir", dir, "verify-token",
		"--expect-issuer", "https://other.test",
		strings.TrimSpace(out),
	)
	assert.Error(t, err)
}

func TestInvalidClaimFlag(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "--key-dir", dir, "create-key", "--type", "ec")
	require.NoError(t, err)

	_, err = runCLI(t, "--key-dir", dir, "create-token", "--claim", "noequals", "alice")
	assert.Error(t, err)
}
