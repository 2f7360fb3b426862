package definition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/fsutil"
)

// Extensions lists the file extensions the loader understands.
var Extensions = []string{".hcl", ".yaml", ".yml"}

// Loader reads workflow definition files.
type Loader struct{}

// NewLoader creates a new definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every path, merging all files found into a single definition.
// A directory contributes every definition file beneath it. Node names must
// be unique across all files; connectors may reference nodes declared in
// any of them.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Loaded, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Definition loader started.", "path_count", len(paths))

	var files []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		found, err := fsutil.FindFiles(path, Extensions...)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workflow path '%s': %w", path, err)
		}
		for _, f := range found {
			if _, dup := seen[f]; !dup {
				seen[f] = struct{}{}
				files = append(files, f)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no workflow definition files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered definition files.", "count", len(files))

	parser := hclparse.NewParser()
	doc := &document{}
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		part, err := decode(parser, file, src)
		if err != nil {
			return nil, err
		}
		doc.merge(part)
	}

	loaded, err := doc.build()
	if err != nil {
		return nil, err
	}
	logger.Debug("Definition loading complete.", "nodes", len(loaded.Definition.Nodes), "connectors", len(loaded.Definition.Connectors), "breakpoints", len(loaded.Breakpoints))
	return loaded, nil
}

// Parse decodes a single in-memory definition. The format is chosen by the
// extension of filename.
func Parse(filename string, src []byte) (*Loaded, error) {
	doc, err := decode(hclparse.NewParser(), filename, src)
	if err != nil {
		return nil, err
	}
	return doc.build()
}

func decode(parser *hclparse.Parser, filename string, src []byte) (*document, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		return decodeHCL(parser, filename, src)
	case ".yaml", ".yml":
		return decodeYAML(filename, src)
	}
	return nil, fmt.Errorf("unsupported definition file %q, expected one of %s", filename, strings.Join(Extensions, ", "))
}
