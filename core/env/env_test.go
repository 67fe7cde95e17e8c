package env

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvironment_caseInsensitive(t *testing.T) {
	e := New()
	e.Set("MyVar", "x", false)

	v, ok := e.Get("MYVAR")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	ent, ok := e.Lookup("myvar")
	assert.True(t, ok)
	assert.Equal(t, Entry{Name: "myvar", Value: "x"}, ent)

	e.Unset("myVAR")
	_, ok = e.Get("MyVar")
	assert.False(t, ok)
	assert.Equal(t, "", e.Getenv("MyVar"))
}

func TestEnvironment_flags(t *testing.T) {
	cases := map[string]struct {
		value    string
		expected bool
	}{
		"one":   {"1", true},
		"zero":  {"0", false},
		"empty": {"", false},
		"word":  {"yes", true},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			e := New()
			e.Set("Echo", tc.value, false)
			e.Set("EXIT", tc.value, false)
			e.Set("test", tc.value, false)

			assert.Equal(t, tc.expected, e.Echo())
			assert.Equal(t, tc.expected, e.Exit())
			assert.Equal(t, tc.expected, e.Test())
		})
	}
}

func TestEnvironment_unsetClearsFlags(t *testing.T) {
	e := New()
	e.Set("Exit", "1", false)
	e.Set("Echo", "1", false)

	e.Unset("exit")
	assert.False(t, e.Exit())
	assert.True(t, e.Echo())

	e.UnsetAll()
	assert.False(t, e.Echo())
	assert.Empty(t, e.Entries())
}

func TestEnvironment_status(t *testing.T) {
	e := New()
	assert.Equal(t, 0, e.Status())

	assert.Equal(t, 3, e.SetStatus(3))
	assert.Equal(t, 3, e.Status())
	assert.Equal(t, "3", e.Getenv("Status"))

	e.Set("Status", " 7 ", false)
	assert.Equal(t, 7, e.Status())

	e.Unset("status")
	assert.Equal(t, 0, e.Status())

	_, ok := e.Get("Status")
	assert.False(t, ok)
	assert.Equal(t, 0, e.SetStatus(0))
	assert.Equal(t, "0", e.Getenv("Status"))
}

func TestEnvironment_statusUnchanged(t *testing.T) {
	e := New()
	e.Set("Status", " 7 ", false)

	e.SetStatus(7)
	assert.Equal(t, " 7 ", e.Getenv("Status"))
}

func TestEnvironment_exported(t *testing.T) {
	e := New()
	e.Set("Path", "/bin", true)
	e.Set("local", "x", false)

	assert.Equal(t, []string{"Path=/bin"}, e.Environ())

	e.Set("PATH", "/usr/bin", false)
	assert.Equal(t, []string{"PATH=/usr/bin"}, e.Environ())

	assert.True(t, e.SetExported("local", true))
	assert.False(t, e.SetExported("missing", true))
	assert.Equal(t, []string{"PATH=/usr/bin", "local=x"}, e.Environ())

	assert.True(t, e.SetExported("path", false))
	assert.Equal(t, []string{"local=x"}, e.Environ())
}

func ExampleEnvironment_Entries() {
	e := New()
	e.Set("Zeta", "last", false)
	e.Set("Alpha", "first", true)

	for _, ent := range e.Entries() {
		fmt.Println(ent.Name, ent.Value, ent.Exported)
	}
	// Output: alpha first true
	// zeta last false
}
