// Package preflight provides readiness checks for the external services and
// filesystem paths a pipeline run depends on.
//
// The run command calls RunAll before starting so a doomed run fails in
// seconds instead of after a long download; the "config validate" command
// uses the individual check functions to display readiness per concern.
package preflight
