package source

import "strings"

// SourceFile represents a source file with its content and metadata. It is
// the minimal stand-in for the host compiler's source-tracking type: the
// closure-iterator pass treats the parser and the rest of the front-end as
// external collaborators and only needs enough of this type to propagate
// positions onto the nodes it synthesizes.
type SourceFile struct {
	Name    string   // Display name (e.g., "gen.ts", "<synthetic>")
	Path    string   // Full file path (empty for synthesized/test sources)
	Content string   // The source code content
	lines   []string // Cached split lines (lazy initialization)
}

// NewSourceFile creates a new source file
func NewSourceFile(name, path, content string) *SourceFile {
	return &SourceFile{
		Name:    name,
		Path:    path,
		Content: content,
	}
}

// NewSyntheticSource creates a source file for a pass-constructed AST that
// has no backing text. The tests and cmd/closureiterdump's built-in
// scenarios do not call it; their nodes carry no source file at all.
func NewSyntheticSource(name string) *SourceFile {
	return &SourceFile{Name: name, Path: ""}
}

// Lines returns the source split into lines (cached)
func (sf *SourceFile) Lines() []string {
	if sf.lines == nil {
		sf.lines = strings.Split(sf.Content, "\n")
	}
	return sf.lines
}

// DisplayPath returns the best path for display (prefers Path, falls back to Name)
func (sf *SourceFile) DisplayPath() string {
	if sf.Path != "" {
		return sf.Path
	}
	return sf.Name
}

// IsFile returns true if this represents an actual file (has a path)
func (sf *SourceFile) IsFile() bool {
	return sf.Path != ""
}