// Package flags provides shared pflag helpers for commands that accept
// constrained string values, including usage strings that highlight the
// default choice.
package flags
