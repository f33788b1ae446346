// Package notify delivers progress renderings and final results to the
// user. The Telegram backend edits a single status message in place; the
// console backend prints lines; the noop backend discards everything.
package notify
