package parser

// DeclKind is the subset of declaration kinds the extractor distinguishes.
type DeclKind int

const (
	DeclOther DeclKind = iota
	DeclTranslationUnit
	DeclFunction
	DeclParam
)

type Linkage int

const (
	LinkageInvalid Linkage = iota
	LinkageNone
	LinkageInternal
	LinkageUniqueExternal
	LinkageExternal
)

type Visibility int

const (
	VisibilityInvalid Visibility = iota
	VisibilityHidden
	VisibilityProtected
	VisibilityDefault
)

type Language int

const (
	LanguageInvalid Language = iota
	LanguageC
	LanguageObjC
	LanguageCPlusPlus
)

// Decl is an immutable snapshot of one AST node. A Source materializes the
// whole tree up front so extraction never touches the underlying parser.
type Decl struct {
	Kind       DeclKind
	Spelling   string
	Linkage    Linkage
	Visibility Visibility
	Language   Language

	// ResultType is set for functions, Type for parameters.
	ResultType  string
	Type        string
	CallingConv CallingConv
	Variadic    bool

	InSystemHeader bool

	Children []*Decl
}

// Source produces the declaration tree of a header file.
type Source interface {
	Open(path string) (*Decl, error)
}
