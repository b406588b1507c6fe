package main

import (
	"errors"
	"fmt"

	"github.com/d9705996/tenantcrm/internal/auth"
	"github.com/d9705996/tenantcrm/internal/config"
)

// issueToken prints a signed access token for a profile email so a local
// instance can be exercised without the identity provider.
func issueToken(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: tenantcrm token <email>")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	tok, err := auth.IssueAccessToken(args[0], cfg.JWT.Issuer, cfg.JWT.Secret, cfg.JWT.AccessTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Println(tok)
	return nil
}
