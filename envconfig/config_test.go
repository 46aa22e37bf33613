package envconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Setenv("DELAYLOAD_DEBUG", "")
	LoadConfig()
	require.False(t, Debug)
	t.Setenv("DELAYLOAD_DEBUG", "false")
	LoadConfig()
	require.False(t, Debug)
	t.Setenv("DELAYLOAD_DEBUG", "1")
	LoadConfig()
	require.True(t, Debug)
	t.Setenv("DELAYLOAD_DEBUG", "yes please")
	LoadConfig()
	require.True(t, Debug)
}

func TestClangArgs(t *testing.T) {
	t.Setenv("DELAYLOAD_CLANG_ARGS", "")
	LoadConfig()
	assert.Empty(t, ClangArgs)

	t.Setenv("DELAYLOAD_CLANG_ARGS", "'-Iinclude  -DFOO=1 -xc'")
	LoadConfig()
	assert.Equal(t, []string{"-Iinclude", "-DFOO=1", "-xc"}, ClangArgs)
}

func TestClock(t *testing.T) {
	t.Setenv("SOURCE_DATE_EPOCH", "")
	LoadConfig()
	assert.Nil(t, SourceDateEpoch)
	assert.WithinDuration(t, time.Now(), Clock()(), time.Minute)

	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")
	LoadConfig()
	require.NotNil(t, SourceDateEpoch)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), Clock()())

	t.Setenv("SOURCE_DATE_EPOCH", "not-a-number")
	LoadConfig()
	assert.Nil(t, SourceDateEpoch)
}

func TestAsMap(t *testing.T) {
	t.Setenv("DELAYLOAD_DEBUG", "1")
	LoadConfig()
	envs := AsMap()
	assert.Equal(t, true, envs["DELAYLOAD_DEBUG"].Value)
	for name, e := range envs {
		assert.Equal(t, name, e.Name)
		assert.NotEmpty(t, e.Description, name)
	}
	assert.Contains(t, envs, "SOURCE_DATE_EPOCH")
	assert.Contains(t, envs, "DELAYLOAD_CLANG_ARGS")
}
