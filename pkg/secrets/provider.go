package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider retrieves secrets from one backend.
type Provider interface {
	// Scheme is the reference prefix routed to this provider ("env",
	// "file").
	Scheme() string

	// Get returns the secret called name.
	Get(ctx context.Context, name string) (string, error)
}

// NotFoundError is returned when a backend has no secret of that name.
type NotFoundError struct {
	Scheme string
	Name   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("secret %s:%s not found", e.Scheme, e.Name)
}

// EnvProvider loads secrets from environment variables. Prefix is
// prepended to the referenced name.
type EnvProvider struct {
	Prefix string

	getenv func(string) string
}

// NewEnvProvider creates an environment provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix, getenv: os.Getenv}
}

// Scheme implements Provider.
func (p *EnvProvider) Scheme() string { return "env" }

// Get implements Provider. An empty variable counts as missing.
func (p *EnvProvider) Get(ctx context.Context, name string) (string, error) {
	getenv := p.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	value := getenv(p.Prefix + name)
	if value == "" {
		return "", &NotFoundError{Scheme: p.Scheme(), Name: p.Prefix + name}
	}
	return value, nil
}

// FileProvider loads secrets from files. Relative names resolve against
// BasePath and may not escape it; absolute names are read as given.
// Files must be regular and have mode 0600 or 0400. Surrounding whitespace
// is trimmed.
type FileProvider struct {
	BasePath string
}

// NewFileProvider creates a file provider rooted at basePath ("" is the
// working directory).
func NewFileProvider(basePath string) *FileProvider {
	return &FileProvider{BasePath: basePath}
}

// Scheme implements Provider.
func (p *FileProvider) Scheme() string { return "file" }

// Get implements Provider.
func (p *FileProvider) Get(ctx context.Context, name string) (string, error) {
	path, err := p.path(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Scheme: p.Scheme(), Name: name}
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", name)
	}
	if mode := info.Mode().Perm(); mode != 0o600 && mode != 0o400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - relative paths are confined to BasePath above
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (p *FileProvider) path(name string) (string, error) {
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}

	base := p.BasePath
	if base == "" {
		base = "."
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(base, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret path %q: directory traversal detected", name)
	}
	return absPath, nil
}
