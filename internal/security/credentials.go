// Package security resolves warehouse passwords without keeping them in
// martflow.yaml.
package security

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"martflow/pkg/errors"
	"martflow/pkg/models"
)

const (
	// KeyringService is the OS keyring service passwords are stored under.
	KeyringService = "martflow"
	// PasswordEnv is the fallback password variable for every target.
	PasswordEnv = "MARTFLOW_PASSWORD"
)

// Source tells where a password came from.
type Source string

const (
	SourceNone    Source = ""
	SourceConfig  Source = "config"
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
)

// CredentialManager looks passwords up in order: the config file, the
// environment, then the OS keyring keyed by target name.
type CredentialManager struct {
	service string
	getenv  func(string) string
}

// NewCredentialManager returns a manager reading the process environment.
func NewCredentialManager() *CredentialManager {
	return &CredentialManager{service: KeyringService, getenv: os.Getenv}
}

// TargetEnv is the per-target variable, e.g. MARTFLOW_PROD_PASSWORD.
func TargetEnv(target string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(target))
	return "MARTFLOW_" + name + "_PASSWORD"
}

// Resolve fills in the password of a database target. File targets are
// returned unchanged.
func (cm *CredentialManager) Resolve(name string, t models.Target) (models.Target, Source, error) {
	if !needsPassword(t.Type) {
		return t, SourceNone, nil
	}
	if t.Password != "" {
		return t, SourceConfig, nil
	}

	for _, env := range []string{TargetEnv(name), PasswordEnv} {
		if v := cm.getenv(env); v != "" {
			t.Password = v
			return t, SourceEnv, nil
		}
	}

	// A missing entry and an unavailable keyring (headless CI) both fall through.
	if secret, err := keyring.Get(cm.service, name); err == nil {
		t.Password = secret
		return t, SourceKeyring, nil
	}

	if t.Type == "snowflake" {
		return t, SourceNone, errors.New(errors.ErrCodeConfigMissing, fmt.Sprintf("no password for target %q", name)).
			WithSuggestions(
				fmt.Sprintf("Run 'martflow auth set %s'", name),
				fmt.Sprintf("Or export %s or %s", TargetEnv(name), PasswordEnv),
			)
	}
	return t, SourceNone, nil
}

// Store saves a password in the OS keyring.
func (cm *CredentialManager) Store(target, password string) error {
	if target == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "target name is required")
	}
	if err := keyring.Set(cm.service, target, password); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to store password in keyring").
			WithContext("target", target)
	}
	return nil
}

// Delete removes a stored password. Deleting a missing entry is not an error.
func (cm *CredentialManager) Delete(target string) error {
	if err := keyring.Delete(cm.service, target); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to delete password from keyring").
			WithContext("target", target)
	}
	return nil
}

func needsPassword(targetType string) bool {
	return targetType == "postgres" || targetType == "snowflake"
}
