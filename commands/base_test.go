package commands

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

type fakeDir struct {
	dir string
}

func (f *fakeDir) Getwd() string {
	return f.dir
}

func (f *fakeDir) Chdir(dir string) error {
	if strings.Contains(dir, "missing") {
		return errors.New("no such directory")
	}
	f.dir = path.Join(f.dir, dir)
	return nil
}

func ExampleLookup() {
	_, ok := Lookup("ECHO")
	fmt.Println(ok)

	_, ok = Lookup("no-such-command")
	fmt.Println(ok)

	// Output: true
	// false
}

func TestAllBuiltins(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			cmd, ok := Lookup(name)
			if !ok || cmd == nil {
				t.Fatal("nil command", name)
			}
		})
	}
}

func TestNames(t *testing.T) {
	names := Names()

	assert.Contains(t, names, "Echo")
	assert.Contains(t, names, "Evaluate")
	assert.Contains(t, names, "Unexport")
	assert.Contains(t, names, "Catenate")
}

func TestExpressionCommand(t *testing.T) {
	evaluate, _ := Lookup("evaluate")
	_, ok := evaluate.(ExpressionCommand)
	assert.True(t, ok)

	echo, _ := Lookup("echo")
	_, ok = echo.(ExpressionCommand)
	assert.False(t, ok)
}

func TestSimpleCommand_badFlag(t *testing.T) {
	_, stderr, status := invoke(t, Directory, nil, "Directory", "-z")

	assert.Equal(t, 1, status)
	assert.True(t, strings.HasPrefix(stderr, "### Directory - "), stderr)
	assert.Contains(t, stderr, "# Usage - Directory [-q | directory]\n")
}

type goldenTestSuite map[string]goldenTest

type goldenTest struct {
	Cmd  BuiltinFunc
	Args []string
}

// goldenFiles are visible to every golden test, relative to /work.
var goldenFiles = map[string]string{
	"/work/a.txt":     "alpha\n",
	"/work/b.txt":     "bravo\ncharlie\n",
	"/work/sub/c.txt": "delta",
}

// Run compares the output, diagnostics and status of each command with its
// golden file.
func (gts goldenTestSuite) Run(t *testing.T) {
	t.Helper()

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	for tn, tc := range gts {
		tn, tc := tn, tc
		t.Run(tn, func(t *testing.T) {
			stdout, stderr, status := invokeFs(t, tc.Cmd, goldenFiles, "", tc.Args...)

			g.Assert(t, tn, []byte(fmt.Sprintf("%s%sstatus: %d\n", stdout, stderr, status)))
		})
	}
}

func TestGoldenCommands(t *testing.T) {
	cases := goldenTestSuite{
		"directory-too-many": {Directory, []string{"Directory", "a", "b"}},
		"directory-conflict": {Directory, []string{"Directory", "-q", "sub"}},
		"set-too-many":       {Set, []string{"Set", "a", "b", "c"}},
		"parameters":         {Parameters, []string{"Parameters", "a", "b c"}},
		"catenate":           {Catenate, []string{"Catenate", "a.txt", "sub/c.txt"}},
		"count":              {Count, []string{"Count", "a.txt", "b.txt", "/work/sub/c.txt"}},
		"count-lines":        {Count, []string{"Count", "-l", "b.txt"}},
	}

	cases.Run(t)
}

func TestHelp(t *testing.T) {
	out, _, status := invoke(t, Help, nil, "Help")

	assert.Equal(t, 0, status)
	assert.Equal(t, strings.Join(Names(), "\n")+"\n", out)
}
