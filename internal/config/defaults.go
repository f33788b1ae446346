package config

const (
	defaultDownloadDir      = "~/.local/share/recap/downloads"
	defaultResultsDir       = "~/.local/share/recap/results"
	defaultLogDir           = "~/.local/share/recap/logs"
	defaultDownloadFormat   = "bestaudio/best"
	defaultDownloadTimeout  = 900
	defaultSignedURLTTL     = 24
	defaultASRBaseURL       = "https://dashscope.aliyuncs.com/api/v1"
	defaultASRModel         = "paraformer-v2"
	defaultASRPollInterval  = 5
	defaultASRWaitTimeout   = 1800
	defaultSummaryBaseURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	defaultSummaryModel     = "qwen-plus"
	defaultSummaryTimeout   = 60
	defaultMinEditSeconds   = 3
	defaultHeartbeatSeconds = 10
	defaultWindowLines      = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

const defaultSystemPrompt = "You are a professional content summarization assistant. " +
	"Summarize the key points of the following content concisely, keeping all " +
	"information but making it shorter. If the summary comes out in English, " +
	"translate it into Chinese before replying."

const defaultUserPrompt = "请总结以下文本内容："

func defaultCaptionLanguages() []string {
	return []string{"zh-Hans", "zh-CN", "zh", "en"}
}

func defaultCaptionFormats() []string {
	return []string{"vtt", "ttml", "srv3", "srv2", "srv1", "json3"}
}

func defaultLanguageHints() []string {
	return []string{"zh", "en"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			ResultsDir:  defaultResultsDir,
			LogDir:      defaultLogDir,
		},
		Captions: Captions{
			Languages: defaultCaptionLanguages(),
			Formats:   defaultCaptionFormats(),
		},
		Download: Download{
			Format:         defaultDownloadFormat,
			TimeoutSeconds: defaultDownloadTimeout,
		},
		Storage: Storage{
			SignedURLTTLHours: defaultSignedURLTTL,
		},
		ASR: ASR{
			BaseURL:             defaultASRBaseURL,
			Model:               defaultASRModel,
			LanguageHints:       defaultLanguageHints(),
			PollIntervalSeconds: defaultASRPollInterval,
			WaitTimeoutSeconds:  defaultASRWaitTimeout,
		},
		Summary: Summary{
			BaseURL:        defaultSummaryBaseURL,
			Model:          defaultSummaryModel,
			TimeoutSeconds: defaultSummaryTimeout,
			SystemPrompt:   defaultSystemPrompt,
			UserPrompt:     defaultUserPrompt,
		},
		Progress: Progress{
			MinEditSeconds:   defaultMinEditSeconds,
			HeartbeatSeconds: defaultHeartbeatSeconds,
			WindowLines:      defaultWindowLines,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
