// Command tsctl is the control-plane CLI: it pushes, validates, hashes,
// diffs, and pulls settings TOML against the platform key-value store, and
// drives key rotation and JWKS inspection for the signer (spec.md §6.4).
package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var storeDSN string
	var storeTable string

	root := &cobra.Command{
		Use:   "tsctl",
		Short: "trusted edge proxy control-plane CLI",
	}
	root.PersistentFlags().StringVar(&storeDSN, "store", "", "postgres connection string for the config store (falls back to TSCTL_STORE)")
	root.PersistentFlags().StringVar(&storeTable, "store-table", "", "config store table name (falls back to TSCTL_STORE_TABLE)")

	viper.SetEnvPrefix("tsctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlag("store", root.PersistentFlags().Lookup("store"))
	viper.BindPFlag("store-table", root.PersistentFlags().Lookup("store-table"))

	root.AddCommand(
		configCmd(),
		keygenCmd(),
		rotateCmd(),
		jwksCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolvedStoreDSN prefers the --store flag, falling back to the
// TSCTL_STORE environment variable bound through viper.
func resolvedStoreDSN() string {
	return viper.GetString("store")
}

func resolvedStoreTable() string {
	return viper.GetString("store-table")
}
