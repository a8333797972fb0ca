package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("ARCHVIZ_TEST_STR", "from-env")
	assert.Equal(t, "from-env", GetEnv("ARCHVIZ_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", GetEnv("ARCHVIZ_TEST_STR_UNSET", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("ARCHVIZ_TEST_INT", "42")
	assert.Equal(t, 42, GetEnvInt("ARCHVIZ_TEST_INT", 7))
	assert.Equal(t, 7, GetEnvInt("ARCHVIZ_TEST_INT_UNSET", 7))

	t.Setenv("ARCHVIZ_TEST_BAD_INT", "not-a-number")
	assert.Equal(t, 7, GetEnvInt("ARCHVIZ_TEST_BAD_INT", 7))
}

func TestGetEnvBool(t *testing.T) {
	cases := map[string]bool{
		"true":  true,
		"TRUE":  true,
		"1":     true,
		"false": false,
		"0":     false,
		"yes":   false,
	}
	for val, want := range cases {
		t.Setenv("ARCHVIZ_TEST_BOOL", val)
		assert.Equal(t, want, GetEnvBool("ARCHVIZ_TEST_BOOL", false), "value %q", val)
	}
	assert.True(t, GetEnvBool("ARCHVIZ_TEST_BOOL_UNSET", true))
}
