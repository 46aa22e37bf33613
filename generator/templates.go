package generator

import "text/template"

type preambleData struct {
	Library       string
	WindowsFile   string
	ELFFile       string
	MachOFile     string
	SystemDirOnly bool
}

type tableData struct {
	Symbols []string
}

var preambleTmpl = template.Must(template.New("preamble").Parse(`// Code generated by delayload. DO NOT EDIT.
//
// Delay-loaded bindings for the {{.Library}} library.

#if defined(_WIN32)

#ifndef WIN32_LEAN_AND_MEAN
#define WIN32_LEAN_AND_MEAN
#endif
#include <windows.h>

#define DELAYLOAD_CDECL __cdecl
#define DELAYLOAD_STDCALL __stdcall
#define DELAYLOAD_FASTCALL __fastcall
#define DELAYLOAD_THISCALL __thiscall
#define DELAYLOAD_VECTORCALL __vectorcall

typedef HMODULE delayload_handle_t;
typedef wchar_t delayload_char_t;

static const delayload_char_t kDelayLoadLibraryPath[] = L"{{.WindowsFile}}";

static delayload_handle_t delayload_load_library(const delayload_char_t *path)
{
{{- if .SystemDirOnly}}
    return ::LoadLibraryExW(path, nullptr, LOAD_LIBRARY_SEARCH_SYSTEM32);
{{- else}}
    return ::LoadLibraryW(path);
{{- end}}
}

static void *delayload_get_symbol(delayload_handle_t handle, const char *name)
{
    return reinterpret_cast<void *>(::GetProcAddress(handle, name));
}

static void delayload_free_library(delayload_handle_t handle)
{
    ::FreeLibrary(handle);
}

#else

#include <dlfcn.h>

#define DELAYLOAD_CDECL
#define DELAYLOAD_STDCALL
#define DELAYLOAD_FASTCALL
#define DELAYLOAD_THISCALL
#define DELAYLOAD_VECTORCALL

typedef void *delayload_handle_t;
typedef char delayload_char_t;
{{if .SystemDirOnly}}
#ifndef DELAYLOAD_SYSTEM_DIR
#define DELAYLOAD_SYSTEM_DIR "/usr/lib/"
#endif

#if defined(__APPLE__)
static const delayload_char_t kDelayLoadLibraryPath[] = DELAYLOAD_SYSTEM_DIR "{{.MachOFile}}";
#else
static const delayload_char_t kDelayLoadLibraryPath[] = DELAYLOAD_SYSTEM_DIR "{{.ELFFile}}";
#endif
{{- else}}
#if defined(__APPLE__)
static const delayload_char_t kDelayLoadLibraryPath[] = "{{.MachOFile}}";
#else
static const delayload_char_t kDelayLoadLibraryPath[] = "{{.ELFFile}}";
#endif
{{- end}}

static delayload_handle_t delayload_load_library(const delayload_char_t *path)
{
    return ::dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static void *delayload_get_symbol(delayload_handle_t handle, const char *name)
{
    return ::dlsym(handle, name);
}

static void delayload_free_library(delayload_handle_t handle)
{
    ::dlclose(handle);
}

#endif

namespace {

struct DelayLoadLibrary
{
    delayload_handle_t handle = nullptr;
    bool available = false;

    DelayLoadLibrary()
        : handle(delayload_load_library(kDelayLoadLibraryPath))
        , available(handle != nullptr)
    {
    }

    ~DelayLoadLibrary()
    {
        if (available) {
            delayload_free_library(handle);
        }
    }
};

} // namespace

// Loads the library on first use. A failed load is remembered and never
// retried.
static delayload_handle_t delayload_library()
{
    static const DelayLoadLibrary library;
    return library.available ? library.handle : nullptr;
}
`))

var lazyTmpl = template.Must(template.New("lazy").Parse(`
static void *delayload_resolve(const char *name)
{
    const delayload_handle_t handle = delayload_library();
    if (!handle) {
        return nullptr;
    }
    return delayload_get_symbol(handle, name);
}
`))

var tableTmpl = template.Must(template.New("table").Parse(`
enum DelayLoadSymbolId : unsigned
{
{{- range .Symbols}}
    DelayLoadSymbol_{{.}},
{{- end}}
    DelayLoadSymbol_Count
};

static const char *const kDelayLoadSymbolNames[DelayLoadSymbol_Count] = {
{{- range .Symbols}}
    "{{.}}",
{{- end}}
};

namespace {

struct DelayLoadSymbolTable
{
    void *entries[DelayLoadSymbol_Count] = {};

    DelayLoadSymbolTable()
    {
        const delayload_handle_t handle = delayload_library();
        if (!handle) {
            return;
        }
        for (unsigned id = 0; id != DelayLoadSymbol_Count; ++id) {
            entries[id] = delayload_get_symbol(handle, kDelayLoadSymbolNames[id]);
        }
    }
};

} // namespace

// Resolves every symbol the first time any of them is needed.
static void *delayload_symbol(DelayLoadSymbolId id)
{
    static const DelayLoadSymbolTable table;
    return table.entries[id];
}
`))
