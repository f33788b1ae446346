// Package runstore records pipeline runs in a SQLite database so past
// results stay inspectable from the history command.
package runstore
