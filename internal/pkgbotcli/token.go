package pkgbotcli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contenox/pkgbot/libauth"
	"github.com/contenox/pkgbot/serverapi"
	"github.com/spf13/cobra"
)

var errNoSigningKey = errors.New("jwt_signing_key is not set, tokens cannot be issued")

type issuedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token, or hash a password for admin_password_hash.",
		Long: `Issue a bearer token signed with jwt_signing_key:

    pkgbot token --identity ci --role user

With --hash-password the password is read from stdin and its bcrypt hash is
printed instead:

    echo -n 's3cret' | pkgbot token --hash-password`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}
	f := cmd.Flags()
	f.String("identity", "admin", "Identity recorded in the token")
	f.String("role", string(libauth.RoleAdmin), "Role granted by the token (user or admin)")
	f.Duration("ttl", 0, "Token lifetime (default: token_ttl from config)")
	f.Bool("hash-password", false, "Read a password from stdin and print its bcrypt hash")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	if hash, _ := cmd.Flags().GetBool("hash-password"); hash {
		return hashPassword(cmd)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	auth, err := serverapi.AuthConfig(cfg)
	if err != nil {
		return err
	}
	if !auth.Enabled() {
		return errNoSigningKey
	}
	if ttl, _ := cmd.Flags().GetDuration("ttl"); ttl > 0 {
		auth.TokenTTL = ttl
	}
	roleName, _ := cmd.Flags().GetString("role")
	role := libauth.Role(roleName)
	if role != libauth.RoleUser && role != libauth.RoleAdmin {
		return fmt.Errorf("unknown role %q", roleName)
	}
	identity, _ := cmd.Flags().GetString("identity")

	token, expiresAt, err := libauth.CreateToken(auth, identity, role)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(issuedToken{AccessToken: token, TokenType: "bearer", ExpiresAt: expiresAt})
}

func hashPassword(cmd *cobra.Command) error {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}
	hash, err := libauth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
