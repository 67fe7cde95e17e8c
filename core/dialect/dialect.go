// Package dialect holds the character table that drives lexing, word
// splitting and substitution.
package dialect

import "golang.org/x/text/encoding/charmap"

// MacRomanEscape is the MacRoman encoding of '∂'. Scripts saved by classic
// editors carry it as a single byte.
const MacRomanEscape = 0xB6

// DecodeMacRoman returns the character a MacRoman byte stands for. Bytes
// below 0x80 are ASCII.
func DecodeMacRoman(b byte) rune {
	return charmap.Macintosh.DecodeByte(b)
}

// Quote describes one quoting character. The closing character is the same
// as the opening one.
type Quote struct {
	// Escapes is true if the escape character is honored inside the quote.
	Escapes bool
	// Expands is true if {variable} substitution happens inside the quote.
	Expands bool
	// Command is true if the quoted text is run and replaced with its output.
	Command bool
}

// Dialect is the set of structural characters for the shell language.
type Dialect struct {
	Escape     rune
	Comment    rune
	Separator  rune
	OpenBrace  rune
	CloseBrace rune
	Quotes     map[rune]Quote
}

// Default returns the classic MPW character table.
func Default() Dialect {
	return Dialect{
		Escape:     '∂',
		Comment:    '#',
		Separator:  ';',
		OpenBrace:  '{',
		CloseBrace: '}',
		Quotes: map[rune]Quote{
			'\'': {},
			'"':  {Escapes: true, Expands: true},
			'`':  {Escapes: true, Expands: true, Command: true},
		},
	}
}

// Quote returns the quoting rules for r, if r opens a quote.
func (d Dialect) Quote(r rune) (Quote, bool) {
	q, ok := d.Quotes[r]
	return q, ok
}

// IsNewline reports whether r terminates a physical line. Both Unix and
// classic Mac line endings are accepted.
func IsNewline(r rune) bool {
	return r == '\n' || r == '\r'
}

// EscapeValue returns the character an escape sequence stands for.
func EscapeValue(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'f':
		return '\f'
	default:
		return r
	}
}
