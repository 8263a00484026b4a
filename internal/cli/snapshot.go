package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"round_dao/internal/db"
)

// SnapshotInfo describes a stored snapshot
type SnapshotInfo struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int       `json:"size_bytes"`
	Users     int       `json:"users"`
	Proposals int       `json:"proposals"`
	Rounds    int       `json:"rounds"`
	Payments  int       `json:"payments"`
}

// NewSnapshotCommand groups snapshot maintenance commands.
func NewSnapshotCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and maintain stored state snapshots",
	}
	cmd.AddCommand(newSnapshotShowCommand(opts))
	cmd.AddCommand(newSnapshotExportCommand(opts))
	cmd.AddCommand(newSnapshotPruneCommand(opts))
	return cmd
}

func openStore(opts *RootOptions) (*db.SnapshotStore, error) {
	gdb, err := opts.OpenDB(opts.Config.MySQLDSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db.NewSnapshotStore(gdb), nil
}

func newSnapshotShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Describe the latest snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			row, found, err := store.LatestRow(cmd.Context())
			if err != nil {
				return err
			}
			if !found {
				return write(cmd.OutOrStdout(), opts.Format, nil, "no snapshot stored")
			}
			info := SnapshotInfo{
				ID:        row.ID,
				CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
				SizeBytes: row.SizeBytes,
				Users:     row.Users,
				Proposals: row.Proposals,
				Rounds:    row.Rounds,
				Payments:  row.Payments,
			}
			text := fmt.Sprintf("snapshot %d at %s: %d bytes, %d users, %d proposals, %d rounds, %d payments",
				info.ID, info.CreatedAt.Format(time.RFC3339), info.SizeBytes, info.Users, info.Proposals, info.Rounds, info.Payments)
			return write(cmd.OutOrStdout(), opts.Format, info, text)
		},
	}
}

// newSnapshotExportCommand prints the latest payload, pretty-printed
func newSnapshotExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the latest snapshot payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			payload, found, err := store.Latest(cmd.Context())
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no snapshot stored")
			}
			var state any
			if err := json.Unmarshal(payload, &state); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(state)
		},
	}
}

func newSnapshotPruneCommand(opts *RootOptions) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			deleted, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, map[string]int64{"deleted": deleted}, fmt.Sprintf("deleted %d snapshots", deleted))
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 48, "snapshots to keep")
	return cmd
}
