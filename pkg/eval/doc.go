// Package eval provides the default expression and template adapters: a
// CEL-backed predicate evaluator and a text/template renderer with the
// sprig function library.
package eval
