// Package token provides the source-position primitives shared by the
// compiler, the virtual machine and the diagnostic surface. It mirrors
// the position bookkeeping the parser is expected to produce: every AST
// node carries a Span, and every emitted instruction may carry a
// Location for error reporting.
package token

import "fmt"

// Position is a 1-based line/column pair within a single file. A zero value
// means "unknown" (never produced by a well-formed parser, but tolerated by
// diagnostics rendering as a blank position).
type Position struct {
	Line   int
	Column int
}

// IsValid reports whether the position identifies an actual line/column.
func (p Position) IsValid() bool { return p.Line > 0 && p.Column > 0 }

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Less orders positions by line, then column.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Span is a half-open source range [Start, End) within one file.
type Span struct {
	Start Position
	End   Position
}

func (s Span) String() string {
	if s.Start == s.End {
		return s.Start.String()
	}
	return fmt.Sprintf("%s-%s", s.Start, s.End)
}

// FileID identifies a source file registered in a FileSet.
type FileID uint32

// File records the name of one source unit. Line/column arithmetic is the
// parser's responsibility; File exists so the compiler and cache codec can
// go from FileID back to a path for diagnostics without threading strings
// through every intermediate structure.
type File struct {
	id   FileID
	Name string
}

// ID returns the file's identifier within its owning FileSet.
func (f *File) ID() FileID { return f.id }

// FileSet is an append-only registry of source files, built once by the
// parser (or by the cache loader, which reconstructs it from persisted
// debug info) and shared read-only by the compiler and VM thereafter.
type FileSet struct {
	files []*File
}

// NewFileSet creates an empty file set.
func NewFileSet() *FileSet {
	return &FileSet{}
}

// AddFile registers name and returns the File recording it. The returned
// File's ID is stable for the lifetime of the FileSet.
func (fs *FileSet) AddFile(name string) *File {
	f := &File{id: FileID(len(fs.files)), Name: name}
	fs.files = append(fs.files, f)
	return f
}

// File returns the file registered under id, or nil if id is out of range.
func (fs *FileSet) File(id FileID) *File {
	if int(id) < 0 || int(id) >= len(fs.files) {
		return nil
	}
	return fs.files[id]
}

// Len returns the number of registered files.
func (fs *FileSet) Len() int { return len(fs.files) }

// Names returns the registered file names in registration order.
func (fs *FileSet) Names() []string {
	names := make([]string, len(fs.files))
	for i, f := range fs.files {
		names[i] = f.Name
	}
	return names
}
