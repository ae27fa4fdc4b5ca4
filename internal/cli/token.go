package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"product-meta-viewer/internal/auth"
	"product-meta-viewer/internal/config"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var (
		subject string
		caps    []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the admin page and APIs",
		Long: `Issue a signed access token. Open the page with ?nonce=<token> or send it
as "Authorization: Bearer <token>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := config.Get().Auth
			a, err := auth.NewAuthenticator(c.JWTSecret, c.Capability, c.JWTIssuer)
			if err != nil {
				return err
			}
			if len(caps) == 0 {
				caps = []string{a.Capability()}
			}
			if ttl <= 0 {
				ttl = c.TokenTTL
			}
			token, err := a.Issue(subject, caps, ttl)
			if err != nil {
				return err
			}
			if root.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"token": token, "expires_in": ttl.String()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "Subject the token is issued to")
	cmd.Flags().StringSliceVar(&caps, "cap", nil, "Capabilities to grant (default: the required capability)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: AUTH_TOKEN_TTL)")
	return cmd
}
