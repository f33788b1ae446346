// Package main hosts the recap CLI entrypoint and command graph.
//
// The Cobra-based command tree assembles the caption, transcription, and
// summarization strategies from configuration and surfaces them as the run,
// summarize, history, bot, and config commands. It centralizes configuration
// resolution, run persistence, and structured logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
