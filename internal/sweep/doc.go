// Package sweep describes what a batch run covers: the sweep file
// (YAML, or JSON with comments), the configuration grid it expands to,
// and the validity predicate that decides which configurations are worth
// handing to CACTI at all.
//
// Check is a pure function; it returns every violated rule so that the
// pre-detected invalid stamp can list them all.
package sweep
