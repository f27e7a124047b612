package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ajala-hq/ajala/pkg/cli"
	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/pipeline"
	"ajala-hq/ajala/pkg/providers"
	"ajala-hq/ajala/pkg/schema"
)

// requestFile is the on-disk form of one run: a pipeline request plus the
// provider selection. JSON documents are valid YAML and decode the same
// way. Credentials never live here; they come from the configuration.
//
//	provider: openai
//	model: gpt-4o
//	template: "Extract the user from: {{text}}"
//	variables:
//	  text: "Ada, 36, ada@example.com"
//	schema_file: user.yaml
//	options:
//	  expect_json: true
//	  validate_json: true
//	  timeout: 20s
type requestFile struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	// SchemaFile is read when Schema is not given inline. Relative paths
	// resolve against the request file's directory.
	SchemaFile string `yaml:"schema_file"`

	pipeline.Request `yaml:",inline"`
}

// decodeRequests parses a single request document or, with batch, a
// sequence of them.
func decodeRequests(data []byte, batch bool) ([]requestFile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if !batch {
		var rf requestFile
		if err := dec.Decode(&rf); err != nil {
			return nil, decodeError(err)
		}
		return []requestFile{rf}, nil
	}

	var list []requestFile
	if err := dec.Decode(&list); err != nil {
		return nil, decodeError(err)
	}
	if len(list) == 0 {
		return nil, cli.NewConfigError("batch", "batch file contains no requests")
	}
	return list, nil
}

func decodeError(err error) error {
	if errors.Is(err, io.EOF) {
		return cli.NewConfigError("request", "request file is empty")
	}
	return cli.NewConfigError("request", fmt.Sprintf("invalid request file: %v", err))
}

// loadRequests reads path ("-" is stdin) and resolves schema_file
// references.
func loadRequests(path string, stdin io.Reader, batch bool) ([]requestFile, error) {
	var (
		data []byte
		err  error
		dir  = "."
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
		dir = filepath.Dir(path)
	}
	if err != nil {
		return nil, cli.NewConfigError("request", fmt.Sprintf("failed to read request file: %v", err))
	}

	list, err := decodeRequests(data, batch)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if err := list[i].resolveSchema(dir); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (rf *requestFile) resolveSchema(dir string) error {
	if rf.SchemaFile == "" || rf.Schema != nil {
		return nil
	}
	path := rf.SchemaFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	s, err := schema.LoadFile(path)
	if err != nil {
		return cli.NewConfigError("schema_file", err.Error())
	}
	rf.Schema = s
	return nil
}

// providerConfig selects the provider and its configured credentials.
func (rf *requestFile) providerConfig(cfg *config.Config) (providers.ProviderConfig, error) {
	name, err := providers.ParseName(rf.Provider)
	if err != nil {
		return providers.ProviderConfig{}, cli.NewConfigError("provider", err.Error())
	}
	return providers.ProviderConfig{
		Provider:    name,
		Model:       rf.Model,
		Credentials: cfg.Credentials(name),
	}, nil
}

// parseVars turns repeated k=v flags into a variable map. Values may
// contain '='.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, cli.NewConfigError("var", fmt.Sprintf("expected name=value, got %q", p))
		}
		vars[k] = v
	}
	return vars, nil
}
