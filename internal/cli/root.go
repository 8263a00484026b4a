// Package cli implements the operator command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"round_dao/internal/config"
	"round_dao/internal/db"
)

// RootOptions holds global flags and collaborators for all commands.
type RootOptions struct {
	Format string // "json" | "text"
	Config *config.Config
	OpenDB func(dsn string) (*gorm.DB, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the admin CLI. A nil cfg loads
// the configuration from the environment.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	if cfg == nil {
		cfg = config.LoadConfig()
	}
	opts := &RootOptions{Config: cfg, OpenDB: db.Open}

	cmd := &cobra.Command{
		Use:   "round-admin",
		Short: "Operator tools for the round governance service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewHashKeyCommand(opts))
	cmd.AddCommand(NewAccountCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	return cmd
}

// write prints v as indented JSON, or text otherwise
func write(w io.Writer, format string, v any, text string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
