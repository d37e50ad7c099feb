package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/trusted-server/ts-edge/internal/configstore"
	"github.com/trusted-server/ts-edge/internal/signing"
)

// connectSigningStores opens the public and secret config stores a signer
// needs. tsctl treats them as two tables in the same Postgres database,
// distinguished by name, mirroring the daemon's two Store instances.
func connectSigningStores(ctx context.Context) (public, secret *configstore.PGStore, closeAll func(), err error) {
	dsn := resolvedStoreDSN()
	if dsn == "" {
		return nil, nil, nil, fmt.Errorf("--store (or TSCTL_STORE) is required")
	}
	table := resolvedStoreTable()
	publicTable := table
	if publicTable == "" {
		publicTable = "ts_edge_config"
	}
	secretTable := publicTable + "_secret"

	public, err = configstore.ConnectPG(ctx, dsn, publicTable)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := public.InitSchema(ctx); err != nil {
		public.Close()
		return nil, nil, nil, err
	}
	secret, err = configstore.ConnectPG(ctx, dsn, secretTable)
	if err != nil {
		public.Close()
		return nil, nil, nil, err
	}
	if err := secret.InitSchema(ctx); err != nil {
		public.Close()
		secret.Close()
		return nil, nil, nil, err
	}
	return public, secret, func() { public.Close(); secret.Close() }, nil
}

// keygenCmd generates a standalone Ed25519 keypair without touching the
// config store, for an operator who wants to inspect a key before rotating
// it in, or seed a store by hand.
func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "generate an Ed25519 keypair and print the seed and JWK",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := ed25519.GenerateKey(nil)
			if err != nil {
				return err
			}
			jwk := signing.NewJWK("generated", pub)
			jwkJSON, err := jwk.Marshal()
			if err != nil {
				return err
			}
			seedB64 := base64.RawURLEncoding.EncodeToString(priv.Seed())
			fmt.Fprintf(cmd.OutOrStdout(), "secret seed: %s\n", seedB64)
			fmt.Fprintf(cmd.OutOrStdout(), "jwk: %s\n", jwkJSON)
			return nil
		},
	}
}

// rotateCmd drives the signer's Rotate through the same store-backed Signer
// the daemon uses, so the write order (secret, jwk, current-kid,
// active-kids) is identical whether triggered by the CLI or by a future
// automated rotation job.
func rotateCmd() *cobra.Command {
	var kid string
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "generate a fresh signing key and make it current",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			public, secret, closeAll, err := connectSigningStores(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			signer := signing.NewSigner(public, secret)
			newKID, err := signer.Rotate(ctx, kid, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rotated to %s\n", newKID)
			return nil
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "", "explicit key id (defaults to ts-<UTC date>)")
	return cmd
}

// jwksCmd prints the published JWKS as the discovery endpoint would serve
// it, for an operator verifying a rotation took effect without curling the
// running daemon.
func jwksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwks",
		Short: "print the current JWKS",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			public, secret, closeAll, err := connectSigningStores(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			signer := signing.NewSigner(public, secret)
			disc, err := signer.Discovery(ctx)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(disc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	return cmd
}
