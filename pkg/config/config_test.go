package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a", "b"}, CSV(" a, ,b ,"))
}

func TestEnvDefault(t *testing.T) {
	t.Setenv("SB_TEST_STR", "  value ")
	assert.Equal(t, "value", EnvDefault("SB_TEST_STR", "def"))
	assert.Equal(t, "def", EnvDefault("SB_TEST_MISSING", "def"))
}

func TestEnvIntDefault(t *testing.T) {
	t.Setenv("SB_TEST_INT", "42")
	t.Setenv("SB_TEST_BAD_INT", "forty")
	assert.Equal(t, 42, EnvIntDefault("SB_TEST_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("SB_TEST_BAD_INT", 1))
	assert.Equal(t, 7, EnvIntDefault("SB_TEST_MISSING", 7))
}

func TestEnvDurationDefault(t *testing.T) {
	t.Setenv("SB_TEST_DUR", "90s")
	t.Setenv("SB_TEST_NEG_DUR", "-1m")
	assert.Equal(t, 90*time.Second, EnvDurationDefault("SB_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, EnvDurationDefault("SB_TEST_NEG_DUR", time.Minute))
	assert.Equal(t, time.Minute, EnvDurationDefault("SB_TEST_MISSING", time.Minute))
}
