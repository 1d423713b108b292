/*
Package compiler is the back end of the Simple language compiler.

Process of compilation

Tree Text (s-expressions) ->
	parse ->
Abstract Syntax Tree (ast) ->
	resolve ->
Tree with identifiers bound to Symbols (symtab) ->
	check ->
Typed Tree with storage offsets ->
	generate ->
Assembly Text (asm)

Every pass reports user mistakes to one diag.Sink.
Code is generated only if the sink has no fatal diagnostics.
*/
package compiler
