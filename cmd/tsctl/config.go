package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/trusted-server/ts-edge/internal/canon"
	"github.com/trusted-server/ts-edge/internal/configstore"
	"github.com/trusted-server/ts-edge/internal/settings"
)

// outputFormat is a pflag.Value so `--format` rejects anything but
// text/json at parse time instead of silently falling back later.
type outputFormat string

func (f *outputFormat) String() string { return string(*f) }
func (f *outputFormat) Type() string   { return "text|json" }
func (f *outputFormat) Set(v string) error {
	switch v {
	case "text", "json":
		*f = outputFormat(v)
		return nil
	default:
		return fmt.Errorf("invalid format %q, want text or json", v)
	}
}

var _ pflag.Value = (*outputFormat)(nil)

// connectPublicStore opens the public config store the --store DSN names.
// Every config subcommand but validate/hash needs one.
func connectPublicStore(ctx context.Context) (*configstore.PGStore, error) {
	dsn := resolvedStoreDSN()
	if dsn == "" {
		return nil, fmt.Errorf("--store (or TSCTL_STORE) is required")
	}
	store, err := configstore.ConnectPG(ctx, dsn, resolvedStoreTable())
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// canonicalize runs the merge-validate-canonicalize pipeline every config
// subcommand shares: parse raw TOML, apply environment overrides, validate,
// and re-serialize to the exact bytes that get hashed (spec.md §4.3).
func canonicalize(raw string) (*settings.Settings, string, error) {
	s, err := settings.Load(raw, os.Environ())
	if err != nil {
		return nil, "", err
	}
	out, err := settings.ToCanonicalTOML(s)
	if err != nil {
		return nil, "", err
	}
	return s, out, nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "manage published settings",
	}
	cmd.AddCommand(
		configPushCmd(),
		configValidateCmd(),
		configHashCmd(),
		configDiffCmd(),
		configPullCmd(),
	)
	return cmd
}

func configPushCmd() *cobra.Command {
	var dryRun bool
	var verbose bool
	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "merge, validate, canonicalize, hash, and publish a settings file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			s, canonicalTOML, err := canonicalize(string(raw))
			if err != nil {
				return err
			}
			hash := canon.Hash(canonicalTOML)

			if dryRun {
				fmt.Printf("would publish %d bytes (raw %d), hash %s\n", len(canonicalTOML), len(raw), hash)
				if verbose {
					printSections(cmd, s)
				}
				return nil
			}

			ctx := cmd.Context()
			store, err := connectPublicStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := configstore.PublishSettings(ctx, store, canonicalTOML, hash); err != nil {
				return err
			}
			fmt.Printf("published %d bytes, hash %s\n", len(canonicalTOML), hash)
			if verbose {
				printSections(cmd, s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print sizes and hash without publishing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print per-section summary")
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "run the merge-validate-canonicalize pipeline and print the resulting hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			s, canonicalTOML, err := canonicalize(string(raw))
			if err != nil {
				return err
			}
			fmt.Printf("ok, hash %s\n", canon.Hash(canonicalTOML))
			printSections(cmd, s)
			return nil
		},
	}
	return cmd
}

func configHashCmd() *cobra.Command {
	var raw bool
	format := outputFormat("text")
	cmd := &cobra.Command{
		Use:   "hash <file>",
		Short: "hash a settings file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var hash string
			if raw {
				hash = canon.Hash(string(content))
			} else {
				_, canonicalTOML, err := canonicalize(string(content))
				if err != nil {
					return err
				}
				hash = canon.Hash(canonicalTOML)
			}

			switch format {
			case "json":
				b, err := json.Marshal(map[string]string{"hash": hash})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
			default:
				fmt.Fprintln(cmd.OutOrStdout(), hash)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "hash the file bytes as-is instead of the merged canonical form")
	cmd.Flags().Var(&format, "format", "output format: text|json")
	return cmd
}

func configDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <file>",
		Short: "compare a local settings file's hash against the published settings-hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, localCanonical, err := canonicalize(string(raw))
			if err != nil {
				return err
			}
			localHash := canon.Hash(localCanonical)

			ctx := cmd.Context()
			store, err := connectPublicStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			remoteContent, err := store.Get(ctx, configstore.KeySettings)
			if err != nil {
				return err
			}
			remoteHash, err := store.Get(ctx, configstore.KeySettingsHash)
			if err != nil {
				return err
			}

			if localHash == remoteHash {
				fmt.Println("no differences")
				return nil
			}
			fmt.Printf("local  %s\nremote %s\n", localHash, remoteHash)
			printLineDiff(cmd, localCanonical, remoteContent)
			return nil
		},
	}
	return cmd
}

func configPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <output>",
		Short: "write the published settings to a local file, verifying settings-hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := connectPublicStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			content, err := configstore.FetchAndVerify(ctx, store, canon.Verify)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], []byte(content), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %d bytes to %s\n", len(content), args[0])
			return nil
		},
	}
	return cmd
}

func printSections(cmd *cobra.Command, s *settings.Settings) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  publisher.domain: %s\n", s.Publisher.Domain)
	fmt.Fprintf(out, "  handlers: %d\n", len(s.Handlers))
	fmt.Fprintf(out, "  integrations: %d\n", len(s.Integrations))
	fmt.Fprintf(out, "  auction.strategy: %s (%d providers)\n", s.Auction.Strategy, len(s.Auction.Providers))
}

// printLineDiff prints a minimal per-line diff; full settings files are
// small enough that a dependency like a patience-diff library would be
// overkill for a CLI whose job is just to point an operator at the
// changed lines.
func printLineDiff(cmd *cobra.Command, local, remote string) {
	out := cmd.OutOrStdout()
	localLines := strings.Split(local, "\n")
	remoteLines := strings.Split(remote, "\n")
	max := len(localLines)
	if len(remoteLines) > max {
		max = len(remoteLines)
	}
	for i := 0; i < max; i++ {
		var l, r string
		if i < len(localLines) {
			l = localLines[i]
		}
		if i < len(remoteLines) {
			r = remoteLines[i]
		}
		if l == r {
			continue
		}
		fmt.Fprintf(out, "- %s\n+ %s\n", r, l)
	}
}
