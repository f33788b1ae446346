package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recap/internal/logging"
	"recap/internal/media"
	"recap/internal/services"
)

type fakeDownloader struct {
	err  error
	path string
}

func (f *fakeDownloader) DownloadAudio(ctx context.Context, ref media.Reference, destDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fakeStore struct {
	uploadErr error
	deleted   []string
	deleteErr error
}

func (f *fakeStore) Upload(ctx context.Context, localPath string) (string, string, error) {
	if f.uploadErr != nil {
		return "", "", f.uploadErr
	}
	return "audio_obj.m4a", "https://store.example.com/audio_obj.m4a?sig=x", nil
}

func (f *fakeStore) Delete(ctx context.Context, object string) error {
	f.deleted = append(f.deleted, object)
	return f.deleteErr
}

type fakeRecognizer struct {
	text string
	err  error
	url  string
}

func (f *fakeRecognizer) Transcribe(ctx context.Context, audioURL string) (string, error) {
	f.url = audioURL
	return f.text, f.err
}

func tempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio_x.m4a")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestStrategyHappyPath(t *testing.T) {
	audio := tempAudio(t)
	store := &fakeStore{}
	recognizer := &fakeRecognizer{text: "spoken words"}
	strategy := NewStrategy(&fakeDownloader{path: audio}, store, recognizer, t.TempDir(), logging.NewNop())

	var stages []string
	strategy.SetOnStage(func(message string) { stages = append(stages, message) })

	result, err := strategy.Transcribe(context.Background(), downloadRef(t))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if result.Text != "spoken words" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if recognizer.url != "https://store.example.com/audio_obj.m4a?sig=x" {
		t.Fatalf("recognizer did not receive signed URL: %q", recognizer.url)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "audio_obj.m4a" {
		t.Fatalf("uploaded object not cleaned up: %v", store.deleted)
	}
	if _, err := os.Stat(audio); !os.IsNotExist(err) {
		t.Fatalf("local audio not removed: %v", err)
	}
	want := []string{"downloading audio", "uploading audio", "recognizing speech"}
	if len(stages) != len(want) {
		t.Fatalf("unexpected stages %v", stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("stage %d: got %q, want %q", i, stages[i], want[i])
		}
	}
}

func TestStrategyDownloadFailure(t *testing.T) {
	strategy := NewStrategy(&fakeDownloader{err: errors.New("blocked")}, &fakeStore{}, &fakeRecognizer{}, t.TempDir(), logging.NewNop())

	_, err := strategy.Transcribe(context.Background(), downloadRef(t))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestStrategyCleansUpAfterRecognitionFailure(t *testing.T) {
	store := &fakeStore{}
	recognizer := &fakeRecognizer{err: &RemoteJobError{Code: "X", Message: "Y"}}
	strategy := NewStrategy(&fakeDownloader{path: tempAudio(t)}, store, recognizer, t.TempDir(), logging.NewNop())

	_, err := strategy.Transcribe(context.Background(), downloadRef(t))
	if !errors.Is(err, services.ErrRemoteJob) {
		t.Fatalf("expected remote job error, got %v", err)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected cleanup despite failure, got %v", store.deleted)
	}
}

func TestStrategyUploadFailureSkipsRecognition(t *testing.T) {
	store := &fakeStore{uploadErr: errors.New("forbidden")}
	recognizer := &fakeRecognizer{}
	strategy := NewStrategy(&fakeDownloader{path: tempAudio(t)}, store, recognizer, t.TempDir(), logging.NewNop())

	_, err := strategy.Transcribe(context.Background(), downloadRef(t))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if recognizer.url != "" {
		t.Fatal("recognizer should not run after a failed upload")
	}
	if len(store.deleted) != 0 {
		t.Fatalf("nothing was uploaded, nothing to delete: %v", store.deleted)
	}
}

func TestStrategyKeepAudio(t *testing.T) {
	audio := tempAudio(t)
	strategy := NewStrategy(&fakeDownloader{path: audio}, &fakeStore{}, &fakeRecognizer{text: "words"}, t.TempDir(), logging.NewNop())
	strategy.KeepAudio(true)

	if _, err := strategy.Transcribe(context.Background(), downloadRef(t)); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if _, err := os.Stat(audio); err != nil {
		t.Fatalf("audio should survive the run: %v", err)
	}
}

func TestStrategyStageAudioKeepsEverything(t *testing.T) {
	audio := tempAudio(t)
	store := &fakeStore{}
	recognizer := &fakeRecognizer{}
	strategy := NewStrategy(&fakeDownloader{path: audio}, store, recognizer, t.TempDir(), logging.NewNop())

	path, signedURL, err := strategy.StageAudio(context.Background(), downloadRef(t))
	if err != nil {
		t.Fatalf("stage audio: %v", err)
	}
	if path != audio {
		t.Fatalf("unexpected audio path %q", path)
	}
	if signedURL != "https://store.example.com/audio_obj.m4a?sig=x" {
		t.Fatalf("unexpected signed URL %q", signedURL)
	}
	if recognizer.url != "" {
		t.Fatal("recognition should not run while staging")
	}
	if len(store.deleted) != 0 {
		t.Fatalf("staged object must survive: %v", store.deleted)
	}
	if _, err := os.Stat(audio); err != nil {
		t.Fatalf("local audio must survive staging: %v", err)
	}
}

func TestStrategyTranscribeURL(t *testing.T) {
	recognizer := &fakeRecognizer{text: "direct words"}
	strategy := NewStrategy(&fakeDownloader{}, &fakeStore{}, recognizer, t.TempDir(), logging.NewNop())

	result, err := strategy.TranscribeURL(context.Background(), "https://cdn.example.com/a.mp3")
	if err != nil {
		t.Fatalf("transcribe url: %v", err)
	}
	if result.Text != "direct words" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if recognizer.url != "https://cdn.example.com/a.mp3" {
		t.Fatalf("unexpected url %q", recognizer.url)
	}
}
