// Package reader turns input files into type models for the cohesion engine.
//
// Two families of input are understood: C# and Java source, which is
// lowered from a tree-sitter syntax tree into member access instructions,
// and type model documents (*.lcom.yaml, *.lcom.json) that carry an
// already-lowered instruction stream, typically dumped from compiled code.
package reader

import (
	"errors"
	"fmt"

	"github.com/panbanda/lcom/pkg/parser"
	"github.com/panbanda/lcom/pkg/typemodel"
)

// ErrUnsupported is returned for paths no reader understands.
var ErrUnsupported = errors.New("unsupported input")

// Reader converts one file into the types it declares, in declaration order.
type Reader interface {
	Read(path string, content []byte) ([]*typemodel.Type, error)
}

// DocumentError reports a malformed input file.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Supported reports whether a reader exists for path.
func Supported(path string) bool {
	return parser.DetectLanguage(path) != parser.LangUnknown
}

// ForPath returns the reader for path.
func ForPath(path string) (Reader, error) {
	switch lang := parser.DetectLanguage(path); lang {
	case parser.LangCSharp, parser.LangJava:
		return NewSourceReader(lang), nil
	case parser.LangModel:
		return NewDocumentReader(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// Read is a convenience that picks the reader for path and runs it.
func Read(path string, content []byte) ([]*typemodel.Type, error) {
	r, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	return r.Read(path, content)
}
