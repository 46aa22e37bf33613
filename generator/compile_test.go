package generator

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/delayload/parser"
)

// A plain C header without an extern "C" guard.
const shimHeader = `int Add(int a, int b);
void Log(const char* msg);
const char *Ptr(void (*cb)(int));
`

// The driver replaces dlopen so the test can count load attempts and make
// every load fail.
const shimDriver = `#include <cstdio>

extern "C" {
#include "mylib.h"
}

static int g_loads = 0;

extern "C" void *dlopen(const char *, int)
{
    ++g_loads;
    return nullptr;
}

int main()
{
    const int first = Add(1, 2);
    Log("one");
    const int second = Add(3, 4);
    const char *ptr = Ptr(nullptr);
    Log("two");
    std::printf("loads=%d add=%d,%d ptr=%s\n", g_loads, first, second, ptr ? "set" : "null");
    return 0;
}
`

func TestGeneratedShimCompilesAndLoadsOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("driver interposes dlopen")
	}
	cxx, err := exec.LookPath("c++")
	if err != nil {
		t.Skip("no C++ compiler available")
	}

	header := parser.Header{
		Name: "mylib.h",
		Functions: []parser.Function{
			{Name: "Add", ResultType: "int", Params: []string{"int", "int"}, CallingConv: parser.CallingConvCdecl},
			{Name: "Log", ResultType: "void", Params: []string{"const char *"}, CallingConv: parser.CallingConvCdecl},
			{Name: "Ptr", ResultType: "const char *", Params: []string{"void (*)(int)"}, CallingConv: parser.CallingConvCdecl},
		},
	}

	for _, strategy := range []Strategy{StrategyLazy, StrategyTable} {
		t.Run(strategy.String(), func(t *testing.T) {
			dir := t.TempDir()

			doc, err := New(Options{Library: "mylib.dll", Strategy: strategy}).Generate([]parser.Header{header})
			require.NoError(t, err)
			require.NoError(t, WriteFile(filepath.Join(dir, "shim.cpp"), doc))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "mylib.h"), []byte(shimHeader), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "driver.cpp"), []byte(shimDriver), 0o644))

			args := []string{"-std=c++17", "-I.", "-o", "shim", "shim.cpp", "driver.cpp"}
			if runtime.GOOS == "linux" {
				args = append(args, "-ldl")
			}

			build := exec.Command(cxx, args...)
			build.Dir = dir
			out, err := build.CombinedOutput()
			require.NoError(t, err, "compile failed:\n%s", out)

			run := exec.Command(filepath.Join(dir, "shim"))
			run.Dir = dir
			out, err = run.CombinedOutput()
			require.NoError(t, err, "run failed:\n%s", out)

			assert.Equal(t, "loads=1 add=0,0 ptr=null", strings.TrimSpace(string(out)))
		})
	}
}
