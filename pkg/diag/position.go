package diag

import "closureiter/pkg/source"

// Position represents a specific location in the source code.
// It includes line and column numbers (1-based) for human-readability,
// and byte offsets (0-based) for potential use in tooling.
type Position struct {
	Line     int                // 1-based line number
	Column   int                // 1-based column number
	StartPos int                // 0-based byte offset of the start of the span
	EndPos   int                // 0-based byte offset of the end of the span (exclusive)
	Source   *source.SourceFile // Reference to the source file
}

// Synthetic reports whether this position was fabricated by the pass
// itself (e.g. for a State or GotoState node it introduced) rather than
// copied from user source.
func (p Position) Synthetic() bool {
	return p.Source == nil
}
