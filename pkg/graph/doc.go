// Package graph defines the texture program model for relief.
// A program is an immutable DAG of solids, translations, texture
// operations, and groups, produced by evaluating a Lisp script.
package graph
