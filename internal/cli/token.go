package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"round_dao/internal/ledger"
	"round_dao/internal/utils"
)

// NewTokenCommand issues a session token for an identity, signed with JWT_SECRET.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <identity>",
		Short: "Issue a session token for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := utils.GenerateJWT(args[0], opts.Config.JWTSecret, ttl)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, map[string]string{"identity": args[0], "token": token}, token)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// NewHashKeyCommand prints the bcrypt hash to put in ADMIN_KEY_HASH.
func NewHashKeyCommand(opts *RootOptions) *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Hash an admin key for ADMIN_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), cost)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, map[string]string{"hash": string(hash)}, string(hash))
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

// NewAccountCommand prints the ledger account identifier owned by an identity.
func NewAccountCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "account <owner>",
		Short: "Print the ledger account identifier of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account := ledger.NewAccountIdentifier([]byte(args[0]), nil).String()
			return write(cmd.OutOrStdout(), opts.Format, map[string]string{"owner": args[0], "account": account}, account)
		},
	}
}
