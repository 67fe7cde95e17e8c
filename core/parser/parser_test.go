package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/josephlewis42/mpwsh/core/ast"
	"github.com/josephlewis42/mpwsh/core/dialect"
	"github.com/josephlewis42/mpwsh/core/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	batches []string
}

func (r *recorder) batch(cmds []ast.Command) error {
	var parts []string
	for _, c := range cmds {
		parts = append(parts, ast.Dump(c))
	}
	r.batches = append(r.batches, strings.Join(parts, " "))
	return nil
}

func parse(t *testing.T, lines ...string) (*recorder, *Parser) {
	t.Helper()

	r := &recorder{}
	p := New(dialect.Default(), r.batch)
	for _, line := range lines {
		require.NoError(t, p.Process(line))
	}
	return r, p
}

func TestParser(t *testing.T) {
	cases := map[string]struct {
		lines    []string
		expected []string
	}{
		"simple": {
			[]string{"Echo a", "Echo b"},
			[]string{`"Echo a"`, `"Echo b"`},
		},
		"and or": {
			[]string{"a && b || c"},
			[]string{`(|| (&& "a" "b") "c")`},
		},
		"separators": {
			[]string{"a; b && c"},
			[]string{`"a" (&& "b" "c")`},
		},
		"begin": {
			[]string{"Begin", "a", "b", "End > out"},
			[]string{`(begin "a" "b")`},
		},
		"begin with statement": {
			[]string{"Begin a", "End"},
			[]string{`(begin "a")`},
		},
		"if chain": {
			[]string{"If {x} == 1", "a", "Else If 2", "b", "Else", "c", "End"},
			[]string{`(if (if "{x} == 1" "a") (elseif "2" "b") (else "c"))`},
		},
		"then": {
			[]string{"if 1 then a && b", "end"},
			[]string{`(if (if "1" (&& "a" "b")))`},
		},
		"else statement": {
			[]string{"If 0", "Else b", "End"},
			[]string{`(if (if "0") (else "b"))`},
		},
		"nested": {
			[]string{"Begin", "If 1", "Begin", "a", "End", "End", "b", "End", "c"},
			[]string{`(begin (if (if "1" (begin "a"))) "b")`, `"c"`},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			r, p := parse(t, tc.lines...)

			require.NoError(t, p.Finish())
			assert.Equal(t, tc.expected, r.batches)
			assert.Equal(t, 0, p.Depth())
		})
	}
}

func TestParser_chunkedInput(t *testing.T) {
	script := "Begin\n  If {x} == 1\n    Echo 'a;b' && Echo x ∂\nc\n  End\nEnd > out\n"
	expected := `(begin (if (if "{x} == 1" (&& "Echo 'a;b'" "Echo x c"))))`

	for _, size := range []int{1, 2, 3, 5, len(script)} {
		var batches [][]ast.Command
		p := New(dialect.Default(), func(cmds []ast.Command) error {
			batches = append(batches, cmds)
			return nil
		})
		l := lexer.New(dialect.Default(), p.Process)

		for i := 0; i < len(script); i += size {
			end := i + size
			if end > len(script) {
				end = len(script)
			}
			require.NoError(t, l.Process([]byte(script[i:end]), false))
		}
		require.NoError(t, l.Finish())
		require.NoError(t, p.Finish())

		require.Len(t, batches, 1, "chunk size %d", size)
		require.Len(t, batches[0], 1, "chunk size %d", size)
		group, ok := batches[0][0].(*ast.Group)
		require.True(t, ok, "chunk size %d", size)
		require.Len(t, group.Body.Body, 1, "chunk size %d", size)
		_, ok = group.Body.Body[0].(*ast.If)
		assert.True(t, ok, "chunk size %d", size)
		assert.Equal(t, expected, ast.Dump(group), "chunk size %d", size)
	}
}

func TestParser_blockHoldsBatch(t *testing.T) {
	r, p := parse(t, "Begin", "a")
	assert.Empty(t, r.batches)
	assert.Equal(t, 1, p.Depth())

	require.NoError(t, p.Process("End"))
	assert.Equal(t, []string{`(begin "a")`}, r.batches)
}

func TestParser_endKeepsRedirections(t *testing.T) {
	var got []ast.Command
	p := New(dialect.Default(), func(cmds []ast.Command) error {
		got = append(got, cmds...)
		return nil
	})

	for _, line := range []string{"Begin", "a", "End ≥ err.txt", "If 1", "End >> log"} {
		require.NoError(t, p.Process(line))
	}

	require.Len(t, got, 2)
	assert.Equal(t, "End ≥ err.txt", got[0].(*ast.Group).End)
	assert.Equal(t, "End >> log", got[1].(*ast.If).End)
}

func TestParser_errors(t *testing.T) {
	cases := map[string]struct {
		lines    []string
		expected string
	}{
		"stray end":        {[]string{"End"}, `End without matching Begin or If ("End")`},
		"stray else":       {[]string{"Else"}, `Else without matching If ("Else")`},
		"else in begin":    {[]string{"Begin", "Else"}, `Else without matching If ("Else")`},
		"else after else":  {[]string{"If 1", "Else", "Else"}, `Else after Else ("Else")`},
		"stray then":       {[]string{"Then a"}, `Then without matching If ("Then a")`},
		"missing cond":     {[]string{"If"}, `If - missing condition ("If")`},
		"end parameters":   {[]string{"Begin", "End x"}, `End - too many parameters were specified ("End x")`},
		"end missing file": {[]string{"Begin", "End >"}, `End - missing file name after redirection ("End >")`},
		"leading and":      {[]string{"&& a"}, `missing command before && ("&& a")`},
		"trailing or":      {[]string{"a ||"}, `missing command after || ("a ||")`},
		"loop":             {[]string{"Loop"}, `Loop blocks are not supported ("Loop")`},
		"unbalanced":       {[]string{"Echo 'a"}, `'s must occur in pairs ("Echo 'a")`},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			p := New(dialect.Default(), func([]ast.Command) error { return nil })

			var err error
			for _, line := range tc.lines {
				if err = p.Process(line); err != nil {
					break
				}
			}
			assert.EqualError(t, err, tc.expected)
		})
	}
}

func TestParser_Finish(t *testing.T) {
	r, p := parse(t, "Begin", "If 1", "a")

	err := p.Finish()
	assert.EqualError(t, err, `End is missing for "If 1"`)
	assert.Equal(t, 2, err.(*IncompleteBlockError).Depth)
	assert.Empty(t, r.batches)
	assert.Equal(t, 0, p.Depth())

	require.NoError(t, p.Process("b"))
	assert.Equal(t, []string{`"b"`}, r.batches)
}

func ExampleParser() {
	p := New(dialect.Default(), func(cmds []ast.Command) error {
		for _, c := range cmds {
			fmt.Println(ast.Dump(c))
		}
		return nil
	})

	for _, line := range []string{"Begin", "Make || Echo failed", "End", "Echo done"} {
		p.Process(line)
	}
	// Output: (begin (|| "Make" "Echo failed"))
	// "Echo done"
}
