package clangast

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/delayload/parser"
)

var mylib = filepath.Join("..", "..", "testdata", "mylib.h")

func TestExtractMylib(t *testing.T) {
	functions, err := parser.New(Source{}, parser.DefaultPolicy()).Extract(mylib)
	require.NoError(t, err)

	want := []parser.Function{
		{Name: "Add", ResultType: "int", Params: []string{"int", "int"}, CallingConv: parser.CallingConvCdecl},
		{Name: "Log", ResultType: "void", Params: []string{"const char *"}, CallingConv: parser.CallingConvCdecl},
		{Name: "mylib_open", ResultType: "mylib_ctx *", Params: []string{"const char *", "unsigned int"}, CallingConv: parser.CallingConvCdecl},
		{Name: "mylib_scale", ResultType: "double", Params: []string{"mylib_ctx *", "double"}, CallingConv: parser.CallingConvCdecl},
		{Name: "mylib_version", ResultType: "int", CallingConv: parser.CallingConvCdecl},
	}

	require.Len(t, functions, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(functions[i]), "got %+v, want %+v", functions[i], want[i])
	}
}

func TestSnapshotReportsFilteredDecls(t *testing.T) {
	root, err := Source{}.Open(mylib)
	require.NoError(t, err)

	byName := make(map[string]*parser.Decl)
	for _, d := range root.Children {
		if d.Kind == parser.DeclFunction {
			byName[d.Spelling] = d
		}
	}

	require.Contains(t, byName, "helper")
	assert.Equal(t, parser.LinkageInternal, byName["helper"].Linkage)

	require.Contains(t, byName, "hidden_fn")
	assert.Equal(t, parser.VisibilityHidden, byName["hidden_fn"].Visibility)

	require.Contains(t, byName, "mylib_printf")
	assert.True(t, byName["mylib_printf"].Variadic)

	require.Contains(t, byName, "Add")
	assert.Equal(t, parser.LanguageC, byName["Add"].Language)
	assert.False(t, byName["Add"].InSystemHeader)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Source{}.Open(filepath.Join(t.TempDir(), "nope.h"))
	assert.ErrorIs(t, err, parser.ErrParse)
}

func TestExtractMylibAsCxx(t *testing.T) {
	source := Source{Args: []string{"-x", "c++"}}

	root, err := source.Open(mylib)
	require.NoError(t, err)
	for _, d := range root.Children {
		assert.NotEqual(t, "", d.Spelling, "linkage spec left in the tree")
	}

	functions, err := parser.New(source, parser.DefaultPolicy()).Extract(mylib)
	require.NoError(t, err)

	var names []string
	for _, fn := range functions {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"Add", "Log", "mylib_open", "mylib_scale", "mylib_version"}, names)
}
