package envconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	// Set via DELAYLOAD_DEBUG in the environment
	Debug bool
	// Set via DELAYLOAD_CLANG_ARGS in the environment
	ClangArgs []string
	// Set via SOURCE_DATE_EPOCH in the environment
	SourceDateEpoch *time.Time
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"DELAYLOAD_DEBUG":      {"DELAYLOAD_DEBUG", Debug, "Show additional debug information (e.g. DELAYLOAD_DEBUG=1)"},
		"DELAYLOAD_CLANG_ARGS": {"DELAYLOAD_CLANG_ARGS", ClangArgs, "Whitespace separated arguments passed to libclang"},
		"SOURCE_DATE_EPOCH":    {"SOURCE_DATE_EPOCH", SourceDateEpoch, "Unix time used as the generation timestamp"},
	}
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug = false
	if debug := clean("DELAYLOAD_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	ClangArgs = strings.Fields(clean("DELAYLOAD_CLANG_ARGS"))

	SourceDateEpoch = nil
	if epoch := clean("SOURCE_DATE_EPOCH"); epoch != "" {
		secs, err := strconv.ParseInt(epoch, 10, 64)
		if err != nil {
			slog.Error("invalid setting, ignoring", "SOURCE_DATE_EPOCH", epoch, "error", err)
		} else {
			t := time.Unix(secs, 0).UTC()
			SourceDateEpoch = &t
		}
	}
}

// Clock returns the timestamp source for generated documents: the fixed
// SOURCE_DATE_EPOCH when set, the wall clock otherwise.
func Clock() func() time.Time {
	if SourceDateEpoch != nil {
		t := *SourceDateEpoch
		return func() time.Time { return t }
	}
	return time.Now
}
