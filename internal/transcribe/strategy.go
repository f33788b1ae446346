package transcribe

import (
	"context"
	"log/slog"
	"os"

	"recap/internal/logging"
	"recap/internal/media"
	"recap/internal/proxy"
	"recap/internal/services"
)

// Result is the transcript plus the intermediate artifacts that produced it.
type Result struct {
	Text      string
	AudioPath string
	Object    string
}

// Strategy runs the full fallback path: download the audio, upload it to
// object storage, recognize speech against the signed URL, then delete the
// uploaded copy. Download routing is handled by the downloader itself. The
// store and recognizer clients carry direct transports because both
// endpoints break behind SOCKS forwards; the upload and recognition calls
// additionally run inside a no-proxy scope so nothing else spawned within
// them inherits the acquisition proxy.
type Strategy struct {
	downloader  Downloader
	store       ObjectStore
	recognizer  SpeechToText
	downloadDir string
	keepAudio   bool
	logger      *slog.Logger
	onStage     func(message string)
}

// Stage notes emitted through the OnStage callback as each phase starts.
// Callers key run-history transitions off these exact values.
const (
	NoteDownloading = "downloading audio"
	NoteUploading   = "uploading audio"
	NoteRecognizing = "recognizing speech"
)

// NewStrategy wires the three collaborators together.
func NewStrategy(downloader Downloader, store ObjectStore, recognizer SpeechToText, downloadDir string, logger *slog.Logger) *Strategy {
	return &Strategy{
		downloader:  downloader,
		store:       store,
		recognizer:  recognizer,
		downloadDir: downloadDir,
		logger:      logging.NewComponentLogger(logger, "transcribe"),
	}
}

// KeepAudio disables deletion of the local audio file after a run.
func (s *Strategy) KeepAudio(keep bool) { s.keepAudio = keep }

// SetOnStage registers a callback that receives a human-readable note as
// each phase starts. Used for progress reporting.
func (s *Strategy) SetOnStage(fn func(message string)) { s.onStage = fn }

// Transcribe runs the download-upload-recognize sequence for ref. The
// uploaded object is deleted on every outcome once recognition has been
// attempted; deletion failures are logged, not returned.
func (s *Strategy) Transcribe(ctx context.Context, ref media.Reference) (*Result, error) {
	s.note(NoteDownloading)
	audioPath, err := s.downloader.DownloadAudio(ctx, ref, s.downloadDir)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "download", "", err)
	}
	s.logger.Info("audio downloaded", logging.String("path", audioPath))
	if !s.keepAudio {
		defer s.removeLocal(audioPath)
	}

	var text string
	var object string
	err = proxy.Do(ctx, s.logger, proxy.None(), func(ctx context.Context) error {
		s.note(NoteUploading)
		obj, signedURL, err := s.store.Upload(ctx, audioPath)
		if err != nil {
			return services.Wrap(services.ErrTransient, "transcribe", "upload", "", err)
		}
		object = obj
		s.logger.Info("audio uploaded", logging.String("object", object))
		defer s.removeRemote(object)

		s.note(NoteRecognizing)
		text, err = s.recognizer.Transcribe(ctx, signedURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Result{Text: text, AudioPath: audioPath, Object: object}, nil
}

// StageAudio downloads and uploads the audio without recognizing it. The
// local file and the uploaded object are both kept so the caller can hand
// the signed URL to another tool; the URL expires with the store's TTL.
func (s *Strategy) StageAudio(ctx context.Context, ref media.Reference) (audioPath, signedURL string, err error) {
	s.note(NoteDownloading)
	audioPath, err = s.downloader.DownloadAudio(ctx, ref, s.downloadDir)
	if err != nil {
		return "", "", services.Wrap(services.ErrTransient, "transcribe", "download", "", err)
	}
	s.logger.Info("audio downloaded", logging.String("path", audioPath))

	err = proxy.Do(ctx, s.logger, proxy.None(), func(ctx context.Context) error {
		s.note(NoteUploading)
		object, url, err := s.store.Upload(ctx, audioPath)
		if err != nil {
			return services.Wrap(services.ErrTransient, "transcribe", "upload", "", err)
		}
		s.logger.Info("audio uploaded", logging.String("object", object))
		signedURL = url
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return audioPath, signedURL, nil
}

// TranscribeURL skips the download and recognizes an already-hosted audio
// file directly.
func (s *Strategy) TranscribeURL(ctx context.Context, audioURL string) (*Result, error) {
	var text string
	err := proxy.Do(ctx, s.logger, proxy.None(), func(ctx context.Context) error {
		s.note(NoteRecognizing)
		var err error
		text, err = s.recognizer.Transcribe(ctx, audioURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Result{Text: text}, nil
}

func (s *Strategy) note(message string) {
	if s.onStage != nil {
		s.onStage(message)
	}
}

func (s *Strategy) removeLocal(path string) {
	if err := os.Remove(path); err != nil {
		s.logger.Warn("failed to remove local audio", logging.String("path", path), logging.Error(err))
	}
}

// removeRemote runs outside the request context so cancellation cannot leave
// objects behind.
func (s *Strategy) removeRemote(object string) {
	if err := s.store.Delete(context.Background(), object); err != nil {
		s.logger.Warn("failed to delete uploaded object", logging.String("object", object), logging.Error(err))
	}
}
