// Package transcribe produces a transcript for videos without captions. It
// downloads the audio with yt-dlp, uploads it to object storage, runs an
// asynchronous speech recognition job against the uploaded copy, and cleans
// the object up afterwards.
package transcribe
