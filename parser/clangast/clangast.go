// Package clangast parses headers with libclang and exposes them as
// parser.Decl snapshots.
package clangast

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-clang/clang-v13/clang"

	"github.com/ardanlabs/delayload/parser"
)

// Source implements parser.Source on top of libclang. Args are passed to
// the compiler front end verbatim (include paths, defines, -x c++, ...).
type Source struct {
	Args []string
}

func (s Source) Open(path string) (*parser.Decl, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, parser.ErrParse, err)
	}

	idx := clang.NewIndex(0, 0)
	defer idx.Dispose()

	options := uint32(clang.TranslationUnit_SkipFunctionBodies)
	tu := idx.ParseTranslationUnit(path, s.Args, nil, options)
	if tu == (clang.TranslationUnit{}) {
		return nil, fmt.Errorf("%s: %w: libclang could not produce a translation unit", path, parser.ErrParse)
	}
	defer tu.Dispose()

	logDiagnostics(path, tu)

	root := &parser.Decl{Kind: parser.DeclTranslationUnit, Spelling: path}
	if terminated := topLevel(tu.TranslationUnitCursor(), root); terminated {
		return nil, fmt.Errorf("%s: %w: traversal terminated prematurely", path, parser.ErrParse)
	}

	return root, nil
}

// topLevel snapshots the declarations at file scope. The contents of an
// extern "C" { ... } block are file scope as well, so linkage specs are
// flattened into root.
func topLevel(cursor clang.Cursor, root *parser.Decl) bool {
	var nested bool
	terminated := cursor.Visit(func(child, _ clang.Cursor) clang.ChildVisitResult {
		if child.Kind() == clang.Cursor_LinkageSpec {
			if topLevel(child, root) {
				nested = true
				return clang.ChildVisit_Break
			}
			return clang.ChildVisit_Continue
		}
		root.Children = append(root.Children, snapshot(child))
		return clang.ChildVisit_Continue
	})
	return terminated || nested
}

func logDiagnostics(path string, tu clang.TranslationUnit) {
	for i := uint32(0); i < tu.NumDiagnostics(); i++ {
		d := tu.Diagnostic(i)
		switch d.Severity() {
		case clang.Diagnostic_Error, clang.Diagnostic_Fatal:
			slog.Warn("libclang diagnostic", "path", path, "message", d.Spelling())
		default:
			slog.Debug("libclang diagnostic", "path", path, "message", d.Spelling())
		}
		d.Dispose()
	}
}

func snapshot(cursor clang.Cursor) *parser.Decl {
	d := &parser.Decl{
		Kind:           declKind(cursor.Kind()),
		Spelling:       cursor.Spelling(),
		Linkage:        linkage(cursor.Linkage()),
		Visibility:     visibility(cursor.Visibility()),
		Language:       language(cursor.Language()),
		InSystemHeader: cursor.Location().IsInSystemHeader(),
	}

	if d.Kind != parser.DeclFunction {
		return d
	}

	d.ResultType = cursor.ResultType().Spelling()
	d.CallingConv = callingConv(cursor.Type().FunctionTypeCallingConv())
	d.Variadic = cursor.IsVariadic()

	cursor.Visit(func(child, _ clang.Cursor) clang.ChildVisitResult {
		if child.Kind() == clang.Cursor_ParmDecl {
			d.Children = append(d.Children, &parser.Decl{
				Kind:     parser.DeclParam,
				Spelling: child.Spelling(),
				Type:     child.Type().Spelling(),
			})
		}
		return clang.ChildVisit_Continue
	})

	return d
}

func declKind(k clang.CursorKind) parser.DeclKind {
	switch k {
	case clang.Cursor_FunctionDecl:
		return parser.DeclFunction
	case clang.Cursor_ParmDecl:
		return parser.DeclParam
	case clang.Cursor_TranslationUnit:
		return parser.DeclTranslationUnit
	default:
		return parser.DeclOther
	}
}

func linkage(l clang.LinkageKind) parser.Linkage {
	switch l {
	case clang.Linkage_NoLinkage:
		return parser.LinkageNone
	case clang.Linkage_Internal:
		return parser.LinkageInternal
	case clang.Linkage_UniqueExternal:
		return parser.LinkageUniqueExternal
	case clang.Linkage_External:
		return parser.LinkageExternal
	default:
		return parser.LinkageInvalid
	}
}

func visibility(v clang.VisibilityKind) parser.Visibility {
	switch v {
	case clang.Visibility_Hidden:
		return parser.VisibilityHidden
	case clang.Visibility_Protected:
		return parser.VisibilityProtected
	case clang.Visibility_Default:
		return parser.VisibilityDefault
	default:
		return parser.VisibilityInvalid
	}
}

func language(l clang.LanguageKind) parser.Language {
	switch l {
	case clang.Language_C:
		return parser.LanguageC
	case clang.Language_ObjC:
		return parser.LanguageObjC
	case clang.Language_CPlusPlus:
		return parser.LanguageCPlusPlus
	default:
		return parser.LanguageInvalid
	}
}

// callingConv maps libclang's conventions onto the ones a forwarding
// function can be annotated with. CallingConv_Default is what libclang
// reports for plain C functions on most targets.
func callingConv(c clang.CallingConv) parser.CallingConv {
	switch c {
	case clang.CallingConv_Default, clang.CallingConv_C:
		return parser.CallingConvCdecl
	case clang.CallingConv_X86StdCall:
		return parser.CallingConvStdcall
	case clang.CallingConv_X86FastCall:
		return parser.CallingConvFastcall
	case clang.CallingConv_X86ThisCall:
		return parser.CallingConvThiscall
	case clang.CallingConv_X86VectorCall:
		return parser.CallingConvVectorcall
	default:
		return parser.CallingConvUnknown
	}
}
