package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a bearer token for a principal",
	Long: `Signs a JWT with JWT_SECRET for development and service accounts.
The token is printed to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

var (
	tokenRole       string
	tokenEmail      string
	tokenDepartment string
	tokenTTL        time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.RoleMember), "principal role: admin, member or viewer")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "principal email")
	tokenCmd.Flags().StringVar(&tokenDepartment, "department", "", "principal department")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default TOKEN_TTL)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	role := domain.Role(tokenRole)
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, tokenRole)
	}
	ttl := tokenTTL
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}

	svc := services.NewAuthService(auth.NewAdapter(cfg.Auth.JWTSecret))
	token, err := svc.IssueToken(cmd.Context(), domain.AuthContext{
		UserID:     args[0],
		Email:      tokenEmail,
		Role:       role,
		Department: tokenDepartment,
	}, ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
