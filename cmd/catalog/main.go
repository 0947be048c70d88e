// Command catalog looks up albums in the music catalog and can run an HTTP
// proxy in front of it.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootViper returns a viper instance with defaults and environment
// binding applied.
func newRootViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// newRootCommand builds the command tree around its own viper instance.
func newRootCommand() *cobra.Command {
	v := newRootViper()

	root := &cobra.Command{
		Use:   "catalog",
		Short: "Music catalog client",
		Long: `A command-line client for the music catalog API.

Looks up albums by id, lists album tracks window by window and runs an HTTP
proxy that exposes the same lookups with metrics.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfig(v); err != nil {
				return err
			}
			logging.Setup(logging.Config{
				Level:  logging.LogLevel(v.GetString("log_level")),
				Pretty: v.GetBool("log_pretty"),
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (YAML)")
	flags.String("base-url", "", "catalog API base URL")
	flags.String("token-url", "", "OAuth2 token endpoint")
	flags.String("client-id", "", "OAuth2 client id")
	flags.String("client-secret", "", "OAuth2 client secret")
	flags.String("access-token", "", "pre-acquired access token (skips client credentials)")
	flags.String("redis-addr", "", "Redis address for shared token and rate limit state")
	flags.StringP("output", "o", "", "output format (table, json, yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.Bool("log-pretty", false, "human-readable log output")

	for _, name := range []string{
		"config", "base-url", "token-url", "client-id", "client-secret",
		"access-token", "redis-addr", "output", "log-level", "log-pretty",
	} {
		_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	root.AddCommand(newAlbumCommand(v))
	root.AddCommand(newServeCommand(v))

	return root
}
