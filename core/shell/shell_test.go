package shell

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/josephlewis42/mpwsh/commands"
	"github.com/josephlewis42/mpwsh/core/ast"
	"github.com/josephlewis42/mpwsh/core/env"
	"github.com/josephlewis42/mpwsh/core/redir"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testShell struct {
	*Shell

	out   bytes.Buffer
	err   bytes.Buffer
	fs    afero.Fs
	marks []string
}

// newTestShell creates a shell in /work on an in-memory file system with
// a few extra builtins:
//
//	Mark words...  records words and succeeds
//	Fail [n]       returns n, or 1
//	Catin          copies standard input to standard output
func newTestShell(t *testing.T) *testShell {
	t.Helper()

	ts := &testShell{fs: afero.NewMemMapFs()}
	s := New(env.New(), redir.Fds{Out: &ts.out, Err: &ts.err})
	s.Fs = ts.fs
	s.DisableExternal = true
	require.NoError(t, ts.fs.MkdirAll("/work", 0755))
	require.NoError(t, s.Chdir("/work"))

	stubs := map[string]commands.Builtin{
		"mark": commands.BuiltinFunc(func(inv *commands.Invocation) int {
			ts.marks = append(ts.marks, strings.Join(inv.Args[1:], " "))
			return 0
		}),
		"fail": commands.BuiltinFunc(func(inv *commands.Invocation) int {
			if len(inv.Args) > 1 {
				n, _ := strconv.Atoi(inv.Args[1])
				return n
			}
			return 1
		}),
		"catin": commands.BuiltinFunc(func(inv *commands.Invocation) int {
			io.Copy(inv.Stdout(), inv.Stdin())
			return 0
		}),
	}
	s.Builtins = func(name string) (commands.Builtin, bool) {
		if cmd, ok := stubs[strings.ToLower(name)]; ok {
			return cmd, true
		}
		return commands.Lookup(name)
	}

	ts.Shell = s
	return ts
}

func (ts *testShell) run(script string) int {
	return ts.NewRunner(Script).RunString(script)
}

func (ts *testShell) readFile(t *testing.T, name string) string {
	t.Helper()

	b, err := afero.ReadFile(ts.fs, name)
	require.NoError(t, err)
	return string(b)
}

func TestShell_and(t *testing.T) {
	ts := newTestShell(t)
	assert.Equal(t, 0, ts.run("Mark a && Mark b"))
	assert.Equal(t, []string{"a", "b"}, ts.marks)

	ts = newTestShell(t)
	assert.Equal(t, 3, ts.run("Fail 3 && Mark b"))
	assert.Empty(t, ts.marks)
	assert.Equal(t, 3, ts.Env.Status())
}

func TestShell_or(t *testing.T) {
	ts := newTestShell(t)
	assert.Equal(t, 0, ts.run("Mark a || Mark b"))
	assert.Equal(t, []string{"a"}, ts.marks)

	ts = newTestShell(t)
	assert.Equal(t, 0, ts.run("Fail 3 || Mark b"))
	assert.Equal(t, []string{"b"}, ts.marks)

	ts = newTestShell(t)
	assert.Equal(t, 4, ts.run("Fail 3 || Fail 4"))
}

func TestShell_leftAssociative(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, 0, ts.run("Fail 1 && Mark a || Mark b"))
	assert.Equal(t, []string{"b"}, ts.marks)
}

func TestShell_ifChain(t *testing.T) {
	cases := map[string]struct {
		script   string
		expected []string
	}{
		"first true": {
			"If 1\nMark s1\nElse If `Mark c2`\nMark s2\nElse\nMark s3\nEnd\n",
			[]string{"s1"},
		},
		"second true": {
			"If 0\nMark s1\nElse If `Mark c2; Echo 1`\nMark s2\nElse\nMark s3\nEnd\n",
			[]string{"c2", "s2"},
		},
		"else": {
			"If 0\nMark s1\nElse If 0\nMark s2\nElse\nMark s3\nEnd\n",
			[]string{"s3"},
		},
		"no match": {
			"If 0\nMark s1\nElse If 0\nMark s2\nEnd\n",
			nil,
		},
		"then on the same line": {
			"If 1 Then Mark s1\nEnd\n",
			[]string{"s1"},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			ts := newTestShell(t)

			assert.Equal(t, 0, ts.run(tc.script), ts.err.String())
			assert.Equal(t, tc.expected, ts.marks)
		})
	}
}

func TestShell_ifError(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, 1, ts.run("If 1 / 0\nMark x\nEnd\n"))
	assert.Empty(t, ts.marks)
	assert.Equal(t, "### If - division by zero\n", ts.err.String())
}

func TestShell_exitAbort(t *testing.T) {
	cases := map[string]struct {
		script   string
		status   int
		marks    []string
		reported bool
	}{
		"mid script": {
			"Set Exit 1\nMark s1\nFail 2\nMark s3\n", 2, []string{"s1"}, true,
		},
		"terminal command": {
			"Set Exit 1\nMark s1\nFail 2\n", 2, []string{"s1"}, false,
		},
		"terminal before comments": {
			"Set Exit 1\nFail 2\n\n# the end\n", 2, nil, false,
		},
		"inside a block": {
			"Set Exit 1\nBegin\nFail 3\nMark skipped\nEnd\nMark after\n", 3, nil, true,
		},
		"block is terminal": {
			"Set Exit 1\nBegin\nFail 3\nMark skipped\nEnd\n", 3, nil, false,
		},
		"left operand is exempt": {
			"Set Exit 1\nFail 1 || Mark ok\nMark after\n", 0, []string{"ok", "after"}, false,
		},
		"binary result aborts": {
			"Set Exit 1\nFail 1 && Mark no\nMark after\n", 1, nil, true,
		},
		"exit off": {
			"Mark a\nFail 2\nMark b\n", 0, []string{"a", "b"}, false,
		},
		"separators": {
			"Set Exit 1; Fail 2; Mark s3\n", 2, nil, true,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			ts := newTestShell(t)

			assert.Equal(t, tc.status, ts.run(tc.script))
			assert.Equal(t, tc.marks, ts.marks)
			if tc.reported {
				assert.Equal(t, "### MPW Shell - Execution of input Terminated.\n", ts.err.String())
			} else {
				assert.Empty(t, ts.err.String())
			}
		})
	}
}

func TestShell_substitutionFails(t *testing.T) {
	ts := newTestShell(t)
	assert.Equal(t, 4, ts.run("Set Exit 1\nMark `Fail 4` x\nMark after\n"))
	assert.Empty(t, ts.marks)
	assert.Equal(t, "### MPW Shell - command substitution failed with status 4\n"+
		"### MPW Shell - Execution of input Terminated.\n", ts.err.String())

	ts = newTestShell(t)
	assert.Equal(t, 0, ts.run("Mark `Fail 4` x\nMark after\n"))
	assert.Equal(t, []string{"x", "after"}, ts.marks)
	assert.Empty(t, ts.err.String())
}

func TestRunner_batch(t *testing.T) {
	ts := newTestShell(t)
	ts.Env.Set("exit", "1", false)
	r := ts.NewRunner(Script)

	r.batch([]ast.Command{&ast.Simple{Text: "Fail 2"}, &ast.Simple{Text: "Mark b"}})

	assert.True(t, r.Stopped())
	assert.Empty(t, ts.marks)
	assert.Equal(t, "### MPW Shell - Execution of input Terminated.\n", ts.err.String())
	assert.Equal(t, 2, r.Finish())
}

func TestRunner_interactive(t *testing.T) {
	ts := newTestShell(t)
	r := ts.NewRunner(Interactive)

	r.Feed([]byte("Set Exit 1\n"))
	r.Feed([]byte("Fail 2\n"))
	r.Feed([]byte("Mark y\n"))
	assert.Equal(t, []string{"y"}, ts.marks)
	assert.Empty(t, ts.err.String())

	r.Feed([]byte("Fail 2; Mark z\n"))
	assert.Equal(t, "### MPW Shell - Execution of input Terminated.\n", ts.err.String())

	r.Feed([]byte("Mark w\n"))
	assert.Equal(t, []string{"y", "w"}, ts.marks)
	assert.Equal(t, 0, r.Finish())
}

func TestRunner_chunks(t *testing.T) {
	script := "Begin\n  If 1 Then\n    Mark 'a;b'\n  End\nEnd\nMark {Status}\n"

	for _, size := range []int{1, 2, 3, 7, len(script)} {
		ts := newTestShell(t)
		r := ts.NewRunner(Script)
		for i := 0; i < len(script); i += size {
			end := i + size
			if end > len(script) {
				end = len(script)
			}
			r.Feed([]byte(script[i:end]))
		}

		assert.Equal(t, 0, r.Finish())
		assert.Equal(t, []string{"a;b", "0"}, ts.marks, "chunk size %d", size)
	}
}

func TestRunner_syntaxErrors(t *testing.T) {
	ts := newTestShell(t)
	r := ts.NewRunner(Script)

	r.Feed([]byte("Echo a }\n"))
	r.Feed([]byte("Echo b\nEnd\nEcho c\n"))
	assert.Equal(t, 0, r.Finish())

	assert.Equal(t, "b\nc\n", ts.out.String())
	assert.Equal(t, "### MPW Shell - {s and }s must occur in pairs\n"+
		"### MPW Shell - End without matching Begin or If (\"End\")\n", ts.err.String())
}

func TestRunner_incomplete(t *testing.T) {
	ts := newTestShell(t)
	assert.Equal(t, 1, ts.run("Begin\nMark a\n"))
	assert.Empty(t, ts.marks)
	assert.Equal(t, "### MPW Shell - End is missing for \"Begin\"\n", ts.err.String())

	ts = newTestShell(t)
	assert.Equal(t, 1, ts.run("Echo 'abc\n"))
	assert.Equal(t, "### MPW Shell - unterminated input: 's must occur in pairs\n", ts.err.String())
}

func TestShell_variables(t *testing.T) {
	cases := map[string]struct {
		script   string
		expected string
	}{
		"simple":         {"Set name world\nEcho hello {name}", "hello world\n"},
		"case":           {"Set Name world\nEcho {NAME}", "world\n"},
		"unset":          {"Echo [{nothing}]", "[]\n"},
		"special chars":  {"Set v 'a > b'\nEcho {v}", "a > b\n"},
		"quoted value":   {"Set v \"it's\"\nEcho {v}", "it's\n"},
		"literal quotes": {"Set v x\nEcho '{v}'", "{v}\n"},
		"double quotes":  {"Set v 'x  y'\nEcho \"{v}\"", "x  y\n"},
		"nested":         {"Set inner name\nSet name value\nEcho {{inner}}", "value\n"},
		"escaped":        {"Set v x\nEcho ∂{v∂}", "{v}\n"},
		"status":         {"Fail 3\nEcho {Status}", "3\n"},
		"fresh status":   {"Echo {Status}", "0\n"},
		"command":        {"Echo `Echo inner`", "inner\n"},
		"command quoted": {"Set x \"`Echo a b`\"\nEcho {x}", "a b\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			ts := newTestShell(t)
			ts.run(tc.script)

			assert.Empty(t, ts.err.String())
			assert.Equal(t, tc.expected, ts.out.String())
		})
	}
}

func TestShell_redirection(t *testing.T) {
	ts := newTestShell(t)
	ts.run(strings.Join([]string{
		"Echo hi > out.txt",
		"Echo more >> out.txt",
		"Set nothere ≥ err.txt",
		"Echo both ∑ both.txt",
		"Echo gone > Dev:Null",
		"Catin < out.txt > copy.txt",
		"Begin",
		"Echo a",
		"Echo b",
		"End > group.txt",
		"If 1",
		"Echo c",
		"End >> group.txt",
		"Echo visible",
	}, "\n"))

	assert.Equal(t, "visible\n", ts.out.String())
	assert.Empty(t, ts.err.String())
	assert.Equal(t, "hi\nmore\n", ts.readFile(t, "/work/out.txt"))
	assert.Equal(t, "### Set - No variable definition exists for nothere.\n", ts.readFile(t, "/work/err.txt"))
	assert.Equal(t, "both\n", ts.readFile(t, "/work/both.txt"))
	assert.Equal(t, "hi\nmore\n", ts.readFile(t, "/work/copy.txt"))
	assert.Equal(t, "a\nb\nc\n", ts.readFile(t, "/work/group.txt"))
}

func TestShell_redirectionErrors(t *testing.T) {
	ts := newTestShell(t)
	assert.Equal(t, 1, ts.run("Catin < nope.txt"))
	assert.Contains(t, ts.err.String(), "### MPW Shell - ")
	assert.Contains(t, ts.err.String(), "nope.txt")

	ts = newTestShell(t)
	assert.Equal(t, 1, ts.run("Echo hi >"))
	assert.Equal(t, "### MPW Shell - missing file name after >\n", ts.err.String())
}

func TestShell_echo(t *testing.T) {
	ts := newTestShell(t)
	ts.run("Set Echo 1\nSet name x\nEcho hi {name}")

	assert.Equal(t, "hi x\n", ts.out.String())
	assert.Equal(t, "Set name x\nEcho hi x\n", ts.err.String())
}

func TestShell_evaluate(t *testing.T) {
	ts := newTestShell(t)
	ts.run("Evaluate x = 1 + 2\nEcho {x}\nEvaluate {x} > 2\nIf {x} > 2\nEcho big\nEnd")

	assert.Empty(t, ts.err.String())
	assert.Equal(t, "3\n1\nbig\n", ts.out.String())
}

func TestShell_notFound(t *testing.T) {
	ts := newTestShell(t)

	assert.Equal(t, StatusNotFound, ts.run("NoSuchCommand arg"))
	assert.Equal(t, "### MPW Shell - Command \"NoSuchCommand\" was not found.\n", ts.err.String())
}

func TestShell_directory(t *testing.T) {
	ts := newTestShell(t)
	require.NoError(t, ts.fs.MkdirAll("/work/sub", 0755))

	ts.run("Directory sub\nDirectory -q\nEcho x > here.txt")

	assert.Equal(t, "/work/sub\n", ts.out.String())
	assert.Equal(t, "x\n", ts.readFile(t, "/work/sub/here.txt"))
}
