// Package captions obtains text for a video from pre-existing caption tracks,
// without downloading any media. It prefers manually authored tracks over
// auto-generated ones, picks a language from an ordered preference list, and
// normalizes the timed-text payload to plain text.
package captions
