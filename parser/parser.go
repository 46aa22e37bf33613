package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrParse           = errors.New("unreadable or invalid header")
	ErrEmptyExtraction = errors.New("no qualifying function declarations")
)

// Policy holds the heuristic filters applied on top of the linkage and
// visibility rules.
type Policy struct {
	// RequireC drops declarations whose source language is not C.
	RequireC bool
	// ExcludeReserved drops names starting with an underscore.
	ExcludeReserved bool
	// SkipSystemHeaders drops declarations pulled in from system headers.
	SkipSystemHeaders bool
}

func DefaultPolicy() Policy {
	return Policy{
		RequireC:        true,
		ExcludeReserved: true,
	}
}

// RawDecl is a top-level declaration as seen by Traverse, before any
// filtering. Params is only populated for function declarations.
type RawDecl struct {
	Kind           DeclKind
	Name           string
	ResultType     string
	Params         []string
	Linkage        Linkage
	Visibility     Visibility
	Language       Language
	CallingConv    CallingConv
	Variadic       bool
	InSystemHeader bool
}

// Traverse flattens the top-level declarations of a translation unit in
// source order. Function declarations carry the type spellings of their
// direct parameter children; nothing deeper is visited.
func Traverse(root *Decl) []RawDecl {
	if root == nil {
		return nil
	}

	decls := make([]RawDecl, 0, len(root.Children))
	for _, d := range root.Children {
		if d == nil {
			continue
		}

		raw := RawDecl{
			Kind:           d.Kind,
			Name:           d.Spelling,
			Linkage:        d.Linkage,
			Visibility:     d.Visibility,
			Language:       d.Language,
			InSystemHeader: d.InSystemHeader,
		}

		if d.Kind == DeclFunction {
			raw.ResultType = d.ResultType
			raw.CallingConv = d.CallingConv
			raw.Variadic = d.Variadic
			raw.Params = params(d)
		}

		decls = append(decls, raw)
	}

	return decls
}

func params(fn *Decl) []string {
	var out []string
	for _, c := range fn.Children {
		if c != nil && c.Kind == DeclParam {
			out = append(out, c.Type)
		}
	}
	return out
}

// Filter applies the inclusion rules to raw declarations and returns the
// qualifying functions in their original order. A name declared more than
// once is kept at its first occurrence.
func Filter(decls []RawDecl, policy Policy) []Function {
	var functions []Function
	seen := make(map[string]bool)

	for _, d := range decls {
		if d.Kind != DeclFunction {
			continue
		}

		if reason := rejectReason(d, policy); reason != "" {
			slog.Debug("skipping declaration", "name", d.Name, "reason", reason)
			continue
		}

		if seen[d.Name] {
			slog.Debug("skipping redeclaration", "name", d.Name)
			continue
		}
		seen[d.Name] = true

		functions = append(functions, Function{
			Name:        d.Name,
			ResultType:  d.ResultType,
			Params:      d.Params,
			CallingConv: d.CallingConv,
		})
	}

	return functions
}

func rejectReason(d RawDecl, policy Policy) string {
	switch {
	case d.Name == "":
		return "unnamed"
	case d.Linkage != LinkageExternal:
		return "not external linkage"
	case d.Visibility != VisibilityDefault:
		return "not default visibility"
	case policy.RequireC && d.Language != LanguageC:
		return "not a C declaration"
	case policy.ExcludeReserved && strings.HasPrefix(d.Name, "_"):
		return "reserved name"
	case d.Variadic:
		return "variadic"
	case policy.SkipSystemHeaders && d.InSystemHeader:
		return "system header"
	}
	return ""
}

// Extractor turns header files into function signatures.
type Extractor struct {
	source Source
	policy Policy
}

func New(source Source, policy Policy) *Extractor {
	return &Extractor{
		source: source,
		policy: policy,
	}
}

func (e *Extractor) Extract(path string) ([]Function, error) {
	root, err := e.source.Open(path)
	if err != nil {
		if errors.Is(err, ErrParse) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w: %v", path, ErrParse, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrParse)
	}

	functions := Filter(Traverse(root), e.policy)
	if len(functions) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyExtraction)
	}

	slog.Debug("extracted header", "path", path, "functions", len(functions))

	return functions, nil
}
