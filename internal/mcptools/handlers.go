package mcptools

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/stratum/internal/merger"
	"github.com/dusk-indust/stratum/internal/project"
	"github.com/dusk-indust/stratum/internal/writer"
)

// Service handles MCP tool calls for one project.
type Service struct {
	project *project.Project
}

// NewService creates a Service for p.
func NewService(p *project.Project) *Service {
	return &Service{project: p}
}

// MergePreview merges the hierarchy in memory and reports the result.
// Nothing is written to the target.
func (s *Service) MergePreview(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MergePreviewInput,
) (*mcp.CallToolResult, MergePreviewOutput, error) {
	res, err := s.project.Merge(ctx)
	if err != nil {
		return nil, MergePreviewOutput{}, fmt.Errorf("merge: %w", err)
	}

	want := cleanPath(input.Path)
	out := MergePreviewOutput{RunID: res.RunID, Files: []PreviewFile{}}
	for _, p := range res.Paths() {
		if want != "" && p != want {
			continue
		}
		f := res.Files[p]
		pf := PreviewFile{
			Path:         f.Path,
			Merger:       f.Merger,
			Contributors: f.Contributors,
			Digest:       f.Digest,
		}
		if input.IncludeContent {
			pf.Content = f.Content
		}
		out.Files = append(out.Files, pf)
	}
	for _, f := range res.Failures {
		if want != "" && f.Path != want {
			continue
		}
		out.Failures = append(out.Failures, FailureSummary{Path: f.Path, Source: f.Source, Error: f.Err.Error()})
	}
	for _, sk := range res.Skipped {
		out.Skipped = append(out.Skipped, sk.Error())
	}
	for _, n := range res.Notices {
		if want == "" || n.Path == want {
			out.Notices = append(out.Notices, n)
		}
	}
	return nil, out, nil
}

// ResolveMerger reports which merger handles a path.
func (s *Service) ResolveMerger(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResolveMergerInput,
) (*mcp.CallToolResult, ResolveMergerOutput, error) {
	p := cleanPath(input.Path)
	if p == "" {
		return nil, ResolveMergerOutput{}, errors.New("path is required")
	}
	m, kind := s.project.Registry.ResolveKind(p)
	return nil, ResolveMergerOutput{Path: p, Merger: m.Name(), Match: string(kind)}, nil
}

// ListMergers lists the built-in mergers and the project's bindings.
func (s *Service) ListMergers(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListMergersInput,
) (*mcp.CallToolResult, ListMergersOutput, error) {
	out := ListMergersOutput{Bindings: s.project.Registry.Describe()}
	for _, name := range merger.BuiltinNames() {
		m, err := merger.Builtin(name)
		if err != nil {
			return nil, ListMergersOutput{}, err
		}
		out.Mergers = append(out.Mergers, MergerInfo{Name: name, Preferences: m.Preferences()})
	}
	return nil, out, nil
}

// ExplainFile reports which sources produced an output path, merging first
// if the provenance store is empty.
func (s *Service) ExplainFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExplainFileInput,
) (*mcp.CallToolResult, ExplainFileOutput, error) {
	p := cleanPath(input.Path)
	if p == "" {
		return nil, ExplainFileOutput{}, errors.New("path is required")
	}
	store, err := s.project.Provenance(ctx)
	if err != nil {
		return nil, ExplainFileOutput{}, fmt.Errorf("provenance: %w", err)
	}
	f, err := store.GetFile(ctx, p)
	if err != nil {
		return nil, ExplainFileOutput{}, err
	}
	if f == nil {
		return nil, ExplainFileOutput{Path: p}, nil
	}
	contributors, err := store.Contributors(ctx, p)
	if err != nil {
		return nil, ExplainFileOutput{}, err
	}
	return nil, ExplainFileOutput{
		Path:         p,
		Found:        true,
		Merger:       f.Merger,
		Digest:       f.Digest,
		RunID:        f.RunID,
		Contributors: contributors,
	}, nil
}

// GetStatus compares the target with the last written manifest.
func (s *Service) GetStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetStatusInput,
) (*mcp.CallToolResult, GetStatusOutput, error) {
	r, err := s.project.Status(ctx)
	if errors.Is(err, writer.ErrNoManifest) {
		return nil, GetStatusOutput{Target: s.project.Target}, fmt.Errorf("no merge has been written to %s yet", s.project.Target)
	}
	if err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, GetStatusOutput{Target: r.Target, Clean: r.Clean(), Files: r.Files}, nil
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
}
