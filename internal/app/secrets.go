package app

import (
	"fmt"
	"strings"

	"github.com/partnerhub/internal/config"
)

const minSecretLength = 32

var placeholderSecrets = []string{"change-me", "change-in-production", "your-secret-key"}

// WeakSecrets 返回过短或仍为占位值的密钥名，顺序固定
func WeakSecrets(cfg *config.Config) []string {
	if cfg == nil {
		return nil
	}
	checks := []struct {
		name   string
		secret string
	}{
		{"jwt", cfg.JWT.SecretKey},
		{"partner_jwt", cfg.PartnerJWT.SecretKey},
		{"webhook", cfg.Webhook.Secret},
	}
	var weak []string
	for _, check := range checks {
		if isWeakSecret(check.secret) {
			weak = append(weak, check.name)
		}
	}
	return weak
}

// CheckSecrets 生产模式下拒绝弱密钥
func CheckSecrets(cfg *config.Config) error {
	weak := WeakSecrets(cfg)
	if len(weak) == 0 || !cfg.Server.IsRelease() {
		return nil
	}
	return fmt.Errorf("weak secrets in release mode: %s", strings.Join(weak, ", "))
}

func isWeakSecret(secret string) bool {
	if len(secret) < minSecretLength {
		return true
	}
	normalized := strings.ToLower(secret)
	for _, placeholder := range placeholderSecrets {
		if strings.Contains(normalized, placeholder) {
			return true
		}
	}
	return false
}
