// Package expr implements the condition language used by file rules.
//
// The grammar is deliberately closed:
//
//	expr    := or
//	or      := and { "||" and }
//	and     := unary { "&&" unary }
//	unary   := "!" unary | primary
//	primary := "(" expr ")" | operand [ ("==" | "!=") operand ]
//	operand := IDENT | STRING | "true" | "false"
//
// Expressions are parsed once, type-checked against the declared variables
// with Check, and evaluated against resolved variables with Eval.
package expr
