package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "PRODUCTSEARCH"

var longRoot = `
productsearch serves filtered product searches over Apache Arrow Flight.

Products are read from DuckDB or PostgreSQL. Configuration comes from an
optional config file (--config), PRODUCTSEARCH_* environment variables
and flags, in increasing order of precedence. Nested keys use underscores
in the environment, e.g. PRODUCTSEARCH_POSTGRES_DSN for postgres.dsn.
`

// newRootCmd builds the command tree around a fresh viper instance.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:          "productsearch",
		Short:        "Filtered product search over Arrow Flight",
		Long:         longRoot,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("backend", defaultBackend, "storage backend: duckdb or postgres")
	flags.String("duckdb-path", "", "DuckDB database file, empty for in-memory")
	flags.String("postgres-dsn", "", "PostgreSQL connection string")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("create-tables", false, "create the product tables if missing")
	bindFlags(v, flags, map[string]string{
		keyBackend:      "backend",
		keyDuckDBPath:   "duckdb-path",
		keyPostgresDSN:  "postgres-dsn",
		keyLogLevel:     "log-level",
		keyCreateTables: "create-tables",
	})

	root.AddCommand(newServeCmd(v), newSearchCmd(v), newCompileCmd(v))
	return root
}

// initConfig wires defaults, the environment and the optional config file into v.
func initConfig(v *viper.Viper, cfgFile string) error {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}
