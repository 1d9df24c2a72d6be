package main

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/strata/pkg/config"
	"github.com/ajitpratap0/strata/pkg/field"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/pagestore"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:   "strata",
		Short: "Strata columnar field tree toolkit",
		Long: `Strata maps typed values onto columnar storage. The CLI inspects the
field tree and column layout a type name resolves to.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return logger.Init(cfg.LoggerConfig())
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(versionCmd(), inspectCmd(), columnsCmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("strata %s\n", version)
		},
	}
}

func inspectCmd() *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the field tree a type name resolves to",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := field.Create("f", typeName)
			if err != nil {
				return err
			}
			fmt.Print(field.Describe(f))
			return nil
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "type name to resolve")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// columnsCmd resolves a type, connects it to an in-memory sink with the
// configured write options, and dumps the resulting catalog as JSON.
func columnsCmd(configPath *string) *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Show the on-disk column layout a type name produces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			f, err := field.Create("f", typeName)
			if err != nil {
				return err
			}
			store := pagestore.NewMemoryStore(cfg.WriteOptions())
			ctx := context.WithValue(cmd.Context(), logger.TypeKey, f.TypeName())
			ctx = context.WithValue(ctx, logger.FieldKey, f.QualifiedName())
			ctx = context.WithValue(ctx, logger.StoreKey, "memory")
			logger.WithContext(ctx).Info("resolving column layout")
			if err := f.ConnectSink(store); err != nil {
				return err
			}
			out, err := json.MarshalIndent(store.Schema(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "type name to resolve")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
