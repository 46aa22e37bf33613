package generator

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ardanlabs/delayload/parser"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	ErrOutputWrite     = errors.New("cannot write output")
)

// Strategy selects how the generated code caches resolved symbols.
type Strategy int

const (
	// StrategyLazy resolves each symbol on the first call of its
	// forwarding function and caches it in a function-local static.
	StrategyLazy Strategy = iota
	// StrategyTable resolves every symbol into an indexed table the first
	// time any forwarding function runs.
	StrategyTable
)

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "", "lazy":
		return StrategyLazy, nil
	case "table":
		return StrategyTable, nil
	}
	return 0, fmt.Errorf("%w: unknown strategy %q", ErrInvalidInput, s)
}

func (s Strategy) String() string {
	if s == StrategyTable {
		return "table"
	}
	return "lazy"
}

// DuplicatePolicy decides what happens when two headers declare the same
// function name.
type DuplicatePolicy int

const (
	DuplicatesReject DuplicatePolicy = iota
	DuplicatesKeepFirst
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(s) {
	case "", "reject":
		return DuplicatesReject, nil
	case "first":
		return DuplicatesKeepFirst, nil
	}
	return 0, fmt.Errorf("%w: unknown duplicate policy %q", ErrInvalidInput, s)
}

type Options struct {
	// Library is the user supplied library name, e.g. "mylib.dll".
	Library string
	// SystemDirOnly restricts loading to the system library directory.
	SystemDirOnly bool
	Strategy      Strategy
	Duplicates    DuplicatePolicy
	// Now stamps the document. A nil Now leaves the timestamp out.
	Now func() time.Time
}

// Document is a generated translation unit.
type Document struct {
	Library string
	Symbols int
	Content []byte
}

type Generator struct {
	opts Options
}

func New(opts Options) *Generator {
	return &Generator{opts: opts}
}

func (g *Generator) Generate(headers []parser.Header) (*Document, error) {
	library, err := g.validate(headers)
	if err != nil {
		return nil, err
	}

	symbols, err := g.collect(headers)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	err = preambleTmpl.Execute(&buf, preambleData{
		Library:       library,
		WindowsFile:   WindowsFileName(library),
		ELFFile:       ELFFileName(library),
		MachOFile:     MachOFileName(library),
		SystemDirOnly: g.opts.SystemDirOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("generating loader: %w", err)
	}

	if err := g.generateSymbolTable(&buf, symbols); err != nil {
		return nil, fmt.Errorf("generating symbol table: %w", err)
	}

	// Plain C headers without their own guard would otherwise declare the
	// functions with C++ linkage and clash with the extern "C" forwarders.
	fmt.Fprintf(&buf, "\nextern \"C\" {\n")
	for _, name := range includes(headers) {
		fmt.Fprintf(&buf, "#include \"%s\"\n", name)
	}
	fmt.Fprintf(&buf, "}\n")

	for _, s := range symbols {
		fmt.Fprintf(&buf, "\n%s", g.generateForwarder(s))
	}

	fmt.Fprintf(&buf, "\n// Wrapped symbols: %d\n", len(symbols))
	if g.opts.Now != nil {
		fmt.Fprintf(&buf, "// Generated at: %s\n", g.opts.Now().UTC().Format(time.RFC3339))
	}

	return &Document{
		Library: library,
		Symbols: len(symbols),
		Content: buf.Bytes(),
	}, nil
}

func (g *Generator) validate(headers []parser.Header) (string, error) {
	if len(headers) == 0 {
		return "", fmt.Errorf("%w: no headers", ErrInvalidInput)
	}

	library := LibraryBaseName(g.opts.Library)
	if library == "" {
		return "", fmt.Errorf("%w: empty library name %q", ErrInvalidInput, g.opts.Library)
	}
	if strings.ContainsFunc(library, func(r rune) bool { return r == '"' || r == '\\' || r < ' ' }) {
		return "", fmt.Errorf("%w: library name %q cannot be embedded in a string literal", ErrInvalidInput, library)
	}

	for _, h := range headers {
		if h.Name == "" {
			return "", fmt.Errorf("%w: header without a name", ErrInvalidInput)
		}
		if h.Empty() {
			return "", fmt.Errorf("%w: header %s has no functions", ErrInvalidInput, h.Name)
		}
	}

	return library, nil
}

// collect flattens the headers into emission order and enforces the
// duplicate policy.
func (g *Generator) collect(headers []parser.Header) ([]parser.Function, error) {
	var symbols []parser.Function
	owner := make(map[string]string)

	for _, h := range headers {
		for _, fn := range h.Functions {
			if fn.Name == "" {
				return nil, fmt.Errorf("%w: unnamed function in %s", ErrInvalidInput, h.Name)
			}

			if first, ok := owner[fn.Name]; ok {
				if g.opts.Duplicates == DuplicatesKeepFirst {
					slog.Warn("dropping duplicate symbol", "name", fn.Name, "header", h.Name, "first", first)
					continue
				}
				return nil, fmt.Errorf("%w: %s declared in %s and %s", ErrDuplicateSymbol, fn.Name, first, h.Name)
			}
			owner[fn.Name] = h.Name

			symbols = append(symbols, fn)
		}
	}

	return symbols, nil
}

func (g *Generator) generateSymbolTable(buf *bytes.Buffer, symbols []parser.Function) error {
	if g.opts.Strategy != StrategyTable {
		return lazyTmpl.Execute(buf, nil)
	}

	names := make([]string, len(symbols))
	for i, s := range symbols {
		names[i] = s.Name
	}
	return tableTmpl.Execute(buf, tableData{Symbols: names})
}

func includes(headers []parser.Header) []string {
	var names []string
	seen := make(map[string]bool)
	for _, h := range headers {
		if !seen[h.Name] {
			seen[h.Name] = true
			names = append(names, h.Name)
		}
	}
	return names
}

func (g *Generator) generateForwarder(fn parser.Function) string {
	var buf bytes.Buffer

	result := fn.ResultType
	if result == "" {
		result = "void"
	}
	if needsAlias(result) {
		alias := fmt.Sprintf("DelayLoadResult_%s", fn.Name)
		fmt.Fprintf(&buf, "using %s = %s;\n", alias, result)
		result = alias
	}

	args := make([]string, len(fn.Params))
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		args[i] = fmt.Sprintf("arg%d", i+1)
		if needsAlias(p) {
			alias := fmt.Sprintf("DelayLoadArg_%s_%d", fn.Name, i+1)
			fmt.Fprintf(&buf, "using %s = %s;\n", alias, p)
			p = alias
		}
		params[i] = Declarator(p, args[i])
	}

	name := fn.Name
	if conv := conventionMacro(fn.CallingConv); conv != "" {
		name = conv + " " + name
	}

	prototype := "PFN_" + strings.ToUpper(fn.Name)
	pointer := "pfn_" + strings.ToLower(fn.Name)

	fmt.Fprintf(&buf, "extern \"C\" %s(%s)\n", Declarator(result, name), strings.Join(params, ", "))
	fmt.Fprintf(&buf, "{\n")
	fmt.Fprintf(&buf, "    using %s = decltype(&::%s);\n", prototype, fn.Name)
	if g.opts.Strategy == StrategyTable {
		fmt.Fprintf(&buf, "    const auto %s = reinterpret_cast<%s>(delayload_symbol(DelayLoadSymbol_%s));\n", pointer, prototype, fn.Name)
	} else {
		fmt.Fprintf(&buf, "    static const auto %s = reinterpret_cast<%s>(delayload_resolve(\"%s\"));\n", pointer, prototype, fn.Name)
	}
	fmt.Fprintf(&buf, "    if (!%s) {\n", pointer)
	if fn.ReturnsVoid() {
		fmt.Fprintf(&buf, "        return;\n")
	} else {
		fmt.Fprintf(&buf, "        return {};\n")
	}
	fmt.Fprintf(&buf, "    }\n")

	call := fmt.Sprintf("%s(%s)", pointer, strings.Join(args, ", "))
	if fn.ReturnsVoid() {
		fmt.Fprintf(&buf, "    %s;\n", call)
	} else {
		fmt.Fprintf(&buf, "    return %s;\n", call)
	}
	fmt.Fprintf(&buf, "}\n")

	return buf.String()
}

// needsAlias reports spellings such as "void (*)(int)" or "int [4]" where
// the declarator name belongs inside the type rather than after it.
func needsAlias(typ string) bool {
	return strings.ContainsAny(typ, "([")
}

// Declarator joins a type spelling and the token that follows it. Pointer
// and reference spellings already end in their punctuator and take no
// separating space.
func Declarator(typ, ident string) string {
	if strings.HasSuffix(typ, "*") || strings.HasSuffix(typ, "&") {
		return typ + ident
	}
	return typ + " " + ident
}

func conventionMacro(c parser.CallingConv) string {
	switch c {
	case parser.CallingConvCdecl:
		return "DELAYLOAD_CDECL"
	case parser.CallingConvStdcall:
		return "DELAYLOAD_STDCALL"
	case parser.CallingConvFastcall:
		return "DELAYLOAD_FASTCALL"
	case parser.CallingConvThiscall:
		return "DELAYLOAD_THISCALL"
	case parser.CallingConvVectorcall:
		return "DELAYLOAD_VECTORCALL"
	default:
		return ""
	}
}
