package generator

import "strings"

var libraryExtensions = []string{".dll", ".so", ".dylib"}

// BaseNameOf returns path without its directory components. Both '/' and
// '\' separate components regardless of the host platform.
func BaseNameOf(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// LibraryBaseName reduces a user supplied library name such as
// "libfoo.so" or "foo.dll" to its logical name "foo". The "lib" prefix and
// the extension are stripped independently; the extension is matched
// case-insensitively.
func LibraryBaseName(input string) string {
	name := strings.TrimPrefix(strings.TrimSpace(input), "lib")
	for _, ext := range libraryExtensions {
		if len(name) >= len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	return name
}

func WindowsFileName(name string) string {
	return name + ".dll"
}

func ELFFileName(name string) string {
	return "lib" + name + ".so"
}

func MachOFileName(name string) string {
	return "lib" + name + ".dylib"
}
