package cli

import (
	"fmt"
	"time"

	"github.com/raphaelgruber/campusdesk/internal/auth"
	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a bearer token for local development",
	Long: `Mint a bearer token for a user id, signed with JWT_SECRET.

The token is only accepted by servers sharing the same secret and issuer.

Examples:
  campusdesk token student-42
  export CAMPUSDESK_TOKEN=$(campusdesk token student-42 --ttl 2h)`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	resolver, err := auth.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("init token signer: %w", err)
	}

	signed, err := resolver.Issue(args[0], tokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), signed)
	return nil
}
