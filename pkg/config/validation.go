package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bert42/fileserver/pkg/access"
	"github.com/bert42/fileserver/pkg/fserrors"
	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Struct tags cover ranges and enumerations; custom rules cover what needs
// the filesystem or cross-field checks (unique directory names, existing
// directory paths, parseable allowlist entries).
//
// Returns a Config error describing the first failure.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if len(cfg.Server.AllowedIPs) == 0 {
		return fserrors.New(fserrors.Config, "server.allowed_ips: at least one address or CIDR range must be configured")
	}
	if _, err := access.ParseAllowlist(cfg.Server.AllowedIPs); err != nil {
		return fserrors.Wrap(fserrors.Config, err, "server.allowed_ips")
	}

	names := make(map[string]bool, len(cfg.Directories))
	for i, dir := range cfg.Directories {
		if strings.ContainsAny(dir.Name, `/\`) {
			return fserrors.New(fserrors.Config, "directories[%d]: name %q must not contain a path separator", i, dir.Name)
		}
		if names[dir.Name] {
			return fserrors.New(fserrors.Config, "directories[%d]: duplicate directory name %q", i, dir.Name)
		}
		names[dir.Name] = true

		info, err := os.Stat(dir.Path)
		if err != nil {
			return fserrors.Wrap(fserrors.Config, err, "directories[%d]: path %q does not exist", i, dir.Path)
		}
		if !info.IsDir() {
			return fserrors.New(fserrors.Config, "directories[%d]: path %q is not a directory", i, dir.Path)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fserrors.New(fserrors.Config, "%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return fserrors.Wrap(fserrors.Config, err, "validation failed")
}
