package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/stratum/internal/provenance"
)

// GenerateMermaid produces a Mermaid graph LR diagram from a provenance
// store. Sources sit in one subgraph and output files in another; each
// CONTRIBUTED edge becomes an arrow labeled with its position.
func GenerateMermaid(ctx context.Context, store provenance.Store) (string, error) {
	sources, err := store.Sources(ctx)
	if err != nil {
		return "", fmt.Errorf("get sources: %w", err)
	}

	edges, err := store.Contributions(ctx)
	if err != nil {
		return "", fmt.Errorf("get contributions: %w", err)
	}

	// Mermaid IDs must be alphanumeric; sources and files live in separate
	// namespaces since a source may share a name with a file.
	ids := make(map[string]string)
	next := 0
	getID := func(key string) string {
		if id, ok := ids[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", next)
		next++
		ids[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	sb.WriteString("  subgraph sources[\"sources\"]\n")
	for _, s := range sources {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID("s:"+s.Name), label(s.Name)))
	}
	sb.WriteString("  end\n")

	var files []string
	seen := make(map[string]bool)
	for _, e := range edges {
		if !seen[e.Path] {
			seen[e.Path] = true
			files = append(files, e.Path)
		}
	}
	if len(files) > 0 {
		sb.WriteString("  subgraph outputs[\"outputs\"]\n")
		for _, f := range files {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID("f:"+f), label(shortPath(f))))
		}
		sb.WriteString("  end\n")
	}

	for _, e := range edges {
		sb.WriteString(fmt.Sprintf("  %s -->|%d| %s\n", getID("s:"+e.Source), e.Position+1, getID("f:"+e.Path)))
	}

	return sb.String(), nil
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

func label(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
