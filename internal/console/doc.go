// Package console drives a task registry from line-oriented input. It parses
// identifiers and text fields, dispatches commands and renders confirmations,
// records and errors to an output writer.
package console
