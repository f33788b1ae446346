package captions

import "testing"

func TestNormalizeVTT(t *testing.T) {
	payload := []byte(`WEBVTT
Kind: captions
Language: en

1
00:00:01.000 --> 00:00:03.000
Hello <b>world</b>

2
00:00:03.000 --> 00:00:05.000
second line
`)
	got := Normalize(payload, "vtt")
	want := "Hello world second line"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeJSON3(t *testing.T) {
	payload := []byte(`{"events":[{"segs":[{"utf8":"Hello "},{"utf8":"world"}]},{"segs":[{"utf8":"\n"}]},{"segs":[{"utf8":"again"}]}]}`)
	got := Normalize(payload, "json3")
	want := "Hello world again"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeJSON3Invalid(t *testing.T) {
	if got := Normalize([]byte("not json"), "json3"); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestNormalizeTTML(t *testing.T) {
	payload := []byte(`<?xml version="1.0"?>
<tt xmlns="http://www.w3.org/ns/ttml">
<body><div>
<p begin="00:00:01.000" end="00:00:03.000">Hello world</p>
<p begin="00:00:03.000" end="00:00:05.000">again</p>
</div></body></tt>
`)
	got := Normalize(payload, "ttml")
	want := "Hello world again"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeStripsInlineTimestamps(t *testing.T) {
	payload := []byte("some text 00:00:01.000 trailing\n")
	got := Normalize(payload, "srt")
	want := "some text trailing"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeEmptyPayload(t *testing.T) {
	if got := Normalize(nil, "vtt"); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}
