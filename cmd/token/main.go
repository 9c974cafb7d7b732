// Command token manages signing keys and mints or checks access tokens
// for the API server.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/ptetdev/ptet/internal/auth/keys"
	"github.com/ptetdev/ptet/internal/auth/token"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var keyDir string

	root := &cobra.Command{
		Use:           "token",
		Short:         "Manage signing keys and access tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&keyDir, "key-dir", "keys", "directory holding the key pairs")

	root.AddCommand(
		createKeyCommand(&keyDir),
		listKeysCommand(&keyDir),
		showPublicCommand(&keyDir),
		createTokenCommand(&keyDir),
		verifyTokenCommand(&keyDir),
	)
	return root
}

func createKeyCommand(keyDir *string) *cobra.Command {
	var (
		keyID   string
		keyType string
	)
	cmd := &cobra.Command{
		Use:   "create-key",
		Short: "Generate a new key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			alg, err := keys.ParseAlgorithm(keyType)
			if err != nil {
				return err
			}
			cache, err := keys.Open(*keyDir)
			if err != nil {
				return err
			}
			id, err := cache.CreateKey(alg, keyID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key ID: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyID, "key-id", "", "identifier for the new key (random when empty)")
	cmd.Flags().StringVar(&keyType, "type", "rsa", "key algorithm: rsa or ec")
	return cmd
}

func listKeysCommand(keyDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list-keys",
		Short: "List stored key identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := keys.Open(*keyDir)
			if err != nil {
				return err
			}
			ids, err := cache.Store().KeyIDs()
			if err != nil {
				return err
			}
			for _, id := range ids {
				if id == cache.DefaultKeyID() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (default)\n", id)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
			}
			return nil
		},
	}
}

func showPublicCommand(keyDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show-public KEY_ID",
		Short: "Print the PEM encoded public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := keys.Open(*keyDir)
			if err != nil {
				return err
			}
			pem, id, err := cache.PublicKeyPEM(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key ID: %s\nPublic Key:\n%s", id, pem)
			return nil
		},
	}
}

func createTokenCommand(keyDir *string) *cobra.Command {
	var (
		keyID      string
		issuer     string
		audience   string
		notBefore  string
		expiration string
		claimPairs []string
		claimsJSON string
	)
	cmd := &cobra.Command{
		Use:   "create-token SUBJECT",
		Short: "Sign an access token for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := keys.Open(*keyDir)
			if err != nil {
				return err
			}

			p := token.NewProducer(cache).
				WithKeyID(keyID).
				WithIssuer(issuer).
				WithAudience(audience)
			if p, err = p.WithRandomTokenID(); err != nil {
				return err
			}
			if notBefore != "" {
				t, err := time.Parse(time.RFC3339, notBefore)
				if err != nil {
					return errors.Wrap(err, "parse not-before")
				}
				p = p.WithNotBefore(t)
			}
			if expiration != "" {
				t, err := time.Parse(time.RFC3339, expiration)
				if err != nil {
					return errors.Wrap(err, "parse expiration")
				}
				p = p.WithExpiration(t)
			}
			for _, pair := range claimPairs {
				name, value, err := parseClaim(pair)
				if err != nil {
					return err
				}
				p = p.AddClaim(name, value)
			}
			if claimsJSON != "" {
				if err := p.AddClaimsJSON([]byte(claimsJSON)); err != nil {
					return err
				}
			}

			signed, err := p.Produce(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyID, "key-id", "", "signing key (default key when empty)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "iss claim")
	cmd.Flags().StringVar(&audience, "audience", "", "aud claim")
	cmd.Flags().StringVar(&notBefore, "not-before", "", "nbf claim, RFC 3339")
	cmd.Flags().StringVar(&expiration, "expiration", "", "exp claim, RFC 3339")
	cmd.Flags().StringArrayVar(&claimPairs, "claim", nil, "private claim as name=value, repeatable")
	cmd.Flags().StringVar(&claimsJSON, "claims-json", "", "private claims as a JSON object")
	return cmd
}

func verifyTokenCommand(keyDir *string) *cobra.Command {
	var (
		expectKeyID   string
		expectIssuer  string
		expectAud     string
		maxExpiration int64
	)
	cmd := &cobra.Command{
		Use:   "verify-token TOKEN",
		Short: "Check a token against the local keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := keys.Open(*keyDir)
			if err != nil {
				return err
			}

			v := token.NewVerifier(cache)
			if expectKeyID != "" {
				v = v.ExpectKeyID(expectKeyID)
			}
			if expectIssuer != "" {
				v = v.ExpectIssuer(expectIssuer)
			}
			if expectAud != "" {
				v = v.ExpectAudience(expectAud)
			}
			if maxExpiration > 0 {
				v = v.WithMaxExpiration(time.Duration(maxExpiration) * time.Second)
			}

			claims, keyID, err := v.Verify(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key ID: %s\nSubject: %s\nToken ID: %s\n",
				keyID, claims.Subject, claims.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&expectKeyID, "expect-key-id", "", "require this signing key")
	cmd.Flags().StringVar(&expectIssuer, "expect-issuer", "", "require this iss claim")
	cmd.Flags().StringVar(&expectAud, "expect-audience", "", "require this aud claim")
	cmd.Flags().Int64Var(&maxExpiration, "max-expiration", 0, "maximum accepted lifetime in seconds")
	return cmd
}

// parseClaim splits name=value, decoding the value as JSON when it
// parses and keeping it as a string otherwise.
func parseClaim(pair string) (string, any, error) {
	name, raw, ok := strings.Cut(pair, "=")
	if !ok || name == "" {
		return "", nil, errors.Errorf("invalid claim %q, want name=value", pair)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	return name, value, nil
}
