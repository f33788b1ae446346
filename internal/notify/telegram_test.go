package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func telegramTestServer(t *testing.T, handler http.HandlerFunc) *TelegramClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewTelegramClient("test-token", WithTelegramBaseURL(server.URL))
}

func TestSendMessage(t *testing.T) {
	client := telegramTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var params map[string]any
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Errorf("decode params: %v", err)
		}
		if params["text"] != "hello" {
			t.Errorf("unexpected text %v", params["text"])
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":42}}`)
	})

	id, err := client.SendMessage(context.Background(), 1001, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != 42 {
		t.Fatalf("unexpected message id %d", id)
	}
}

func TestEditMessageSwallowsNotModified(t *testing.T) {
	client := telegramTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: message is not modified"}`)
	})

	if err := client.EditMessage(context.Background(), 1001, 42, "same text"); err != nil {
		t.Fatalf("expected not-modified to be swallowed, got %v", err)
	}
}

func TestEditMessageOtherErrorsPropagate(t *testing.T) {
	client := telegramTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: message to edit not found"}`)
	})

	err := client.EditMessage(context.Background(), 1001, 42, "text")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestTelegramSinkSendsThenEdits(t *testing.T) {
	var methods []string
	client := telegramTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		methods = append(methods, method)
		if method == "sendMessage" {
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":7}}`)
			return
		}
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	})

	sink := NewTelegramSink(client, 1001)
	if err := sink.Update(context.Background(), "first"); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := sink.Update(context.Background(), "second"); err != nil {
		t.Fatalf("second update: %v", err)
	}
	if err := sink.Done(context.Background(), "final"); err != nil {
		t.Fatalf("done: %v", err)
	}
	want := []string{"sendMessage", "editMessageText", "editMessageText"}
	if len(methods) != len(want) {
		t.Fatalf("unexpected call sequence %v", methods)
	}
	for i := range want {
		if methods[i] != want[i] {
			t.Fatalf("call %d: got %s, want %s", i, methods[i], want[i])
		}
	}
}

func TestSendDocument(t *testing.T) {
	client := telegramTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("chat_id") != "1001" {
			t.Errorf("unexpected chat_id %q", r.FormValue("chat_id"))
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			defer file.Close()
			if header.Filename != "summary.txt" {
				t.Errorf("unexpected filename %q", header.Filename)
			}
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":9}}`)
	})

	err := client.SendDocument(context.Background(), 1001, "summary.txt", []byte("content"), "your summary")
	if err != nil {
		t.Fatalf("send document: %v", err)
	}
}

func TestConsoleSinkPrintsEachLineOnce(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	if err := sink.Update(context.Background(), "one\ntwo"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := sink.Update(context.Background(), "one\ntwo\nthree"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := buf.String()
	if got != "one\ntwo\nthree\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
