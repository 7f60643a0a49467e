// Package scaffold installs a starter stratum.yaml and registers the MCP
// server in a project's .mcp.json.
package scaffold

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
)

// TemplatesFS contains the embedded starter files.
//
//go:embed templates/*
var TemplatesFS embed.FS

// ConfigTemplate returns the starter stratum.yaml.
func ConfigTemplate() []byte {
	data, err := TemplatesFS.ReadFile("templates/stratum.yaml")
	if err != nil {
		panic(fmt.Sprintf("scaffold: embedded template missing: %v", err))
	}
	return data
}

// Action is what Init did with one file.
type Action struct {
	Path string
	Verb string // "created", "updated" or "skipped"
}

func (a Action) String() string {
	if a.Verb == "skipped" {
		return fmt.Sprintf("skipped %s (exists, use --force to overwrite)", a.Path)
	}
	return fmt.Sprintf("%s %s", a.Verb, a.Path)
}

// Options controls Init.
type Options struct {
	Force bool
	// MCP adds the stratum server to .mcp.json.
	MCP bool
}

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// stratumMCPEntry is the MCP server configuration for the stratum binary.
var stratumMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "stratum",
  "args": ["--serve-mcp"]
}`)

// Init writes the starter config into dir and, if requested, registers the
// MCP server. Existing files are kept unless opts.Force is set.
func Init(fsys afero.Fs, dir string, opts Options) ([]Action, error) {
	var actions []Action

	cfgPath := filepath.Join(dir, "stratum.yaml")
	exists, err := afero.Exists(fsys, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("scaffold: stat %s: %w", cfgPath, err)
	}
	if exists && !opts.Force {
		actions = append(actions, Action{Path: "stratum.yaml", Verb: "skipped"})
	} else {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("scaffold: create %s: %w", dir, err)
		}
		if err := afero.WriteFile(fsys, cfgPath, ConfigTemplate(), 0o644); err != nil {
			return nil, fmt.Errorf("scaffold: write %s: %w", cfgPath, err)
		}
		verb := "created"
		if exists {
			verb = "updated"
		}
		actions = append(actions, Action{Path: "stratum.yaml", Verb: verb})
	}

	if opts.MCP {
		a, err := mergeMCPConfig(fsys, filepath.Join(dir, ".mcp.json"), opts.Force)
		if err != nil {
			return actions, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// mergeMCPConfig creates or merges the stratum entry into .mcp.json.
// Comments in an existing file are accepted but not preserved.
func mergeMCPConfig(fsys afero.Fs, mcpPath string, force bool) (Action, error) {
	var cfg mcpConfig

	data, err := afero.ReadFile(fsys, mcpPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return Action{}, fmt.Errorf("scaffold: parse %s: %w", mcpPath, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	default:
		return Action{}, fmt.Errorf("scaffold: read %s: %w", mcpPath, err)
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["stratum"]; exists && !force {
		return Action{Path: ".mcp.json stratum entry", Verb: "skipped"}, nil
	}
	cfg.MCPServers["stratum"] = stratumMCPEntry

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return Action{}, fmt.Errorf("scaffold: marshal .mcp.json: %w", err)
	}
	if err := afero.WriteFile(fsys, mcpPath, append(out, '\n'), 0o644); err != nil {
		return Action{}, fmt.Errorf("scaffold: write %s: %w", mcpPath, err)
	}

	verb := "created"
	if data != nil {
		verb = "updated"
	}
	return Action{Path: ".mcp.json", Verb: verb}, nil
}
