// Package lang holds the policy DSL's lexer, grammar, and AST. The grammar
// is expressed as participle struct tags rather than a
// hand-rolled recursive-descent parser.
package lang

import "github.com/alecthomas/participle/v2/lexer"

// Rule order matters: participle's simple lexer tries alternatives in the
// order given, so the two comment forms ("// to end of line" and
// "/* ... */") must be listed before the single-slash Regex rule, or a line
// comment would be lexed as an (invalid) regex literal.
var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*([^*]|\*[^/])*\*/`},
	{Name: "Keyword", Pattern: `(?i)\b(PRIORITY|LOW|MEDIUM|HIGH|CRITICAL|WHEN|THEN|AND|OR|NOT|IS|NULL|ASSERT|SET|TO|APPLY|CONTAINS|MATCHES|TRUE|FALSE)\b`},
	{Name: "Operator", Pattern: `==|!=|<=|>=|<|>`},
	{Name: "Regex", Pattern: `/(?:\\.|[^/\\\n])*/[a-zA-Z]*`},
	{Name: "Float", Pattern: `[-+]?\d+\.\d+(?:[eE][-+]?\d+)?|[-+]?\d+[eE][-+]?\d+`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Punct", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})
