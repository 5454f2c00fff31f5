// Package textfile parses the ccdb text ingest formats into a Document.
//
// Two layouts are supported, selected by Format:
//
//   - Columnar: one whitespace-delimited row per line; the first row fixes
//     the expected column count.
//   - NameValue: one "name value" pair per line, assembled into a single row
//     whose column order is the order the names were encountered.
//
// Both layouts share the line rules:
//
//	# comment            captured into Document.CommentLines
//	// comment           same, when Options.CComments is set ("//" becomes "#")
//	key = value          captured into Document.Metas
//	1 2 "a b" # note     cells 1, 2 and "a b"; "# note" is an inline comment
//
// Inconsistent rows never abort parsing. They are reported through
// Document.DataIsConsistent and Document.Problems so the caller decides.
package textfile
