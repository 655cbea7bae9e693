package config

import (
	"fmt"
	"time"
)

type Config struct {
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	Summarizer    SummarizerConfig    `yaml:"summarizer"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Summarization SummarizationConfig `yaml:"summarization"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	FFmpeg        FFmpegConfig        `yaml:"ffmpeg"`
	Caption       CaptionConfig       `yaml:"caption"`
	Paths         PathsConfig         `yaml:"paths"`
	Logging       LoggingConfig       `yaml:"logging"`
	Performance   PerformanceConfig   `yaml:"performance"`
	Watcher       WatcherConfig       `yaml:"watcher"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Report        ReportConfig        `yaml:"report"`
}

type OpenAIConfig struct {
	APIKey             string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL            string `yaml:"base_url" env:"OPENAI_BASE_URL"`
	TranscriptionModel string `yaml:"transcription_model"`
	ChatModel          string `yaml:"chat_model"`
}

type GeminiConfig struct {
	APIKeys []string `yaml:"api_keys" env:"GEMINI_API_KEYS" envSeparator:","`
	Model   string   `yaml:"model"`
}

type SummarizerConfig struct {
	// Provider is "openai" or "gemini".
	Provider string `yaml:"provider" env:"SUMMARIZER_PROVIDER"`
}

// RetryConfig is the rate-limit backoff policy of one external call.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxJitter   time.Duration `yaml:"max_jitter"`
}

type TranscriptionConfig struct {
	Retry     RetryConfig   `yaml:"retry"`
	GraceWait time.Duration `yaml:"grace_wait"`
	Timeout   time.Duration `yaml:"timeout"`
}

type SummarizationConfig struct {
	Retry       RetryConfig   `yaml:"retry"`
	Timeout     time.Duration `yaml:"timeout"`
	// Temperature defaults to 0.7; an explicit 0 is kept.
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type PipelineConfig struct {
	ChunkDuration time.Duration `yaml:"chunk_duration"`
	// SegmentDelay defaults to 2s; an explicit 0 disables it.
	SegmentDelay *time.Duration `yaml:"segment_delay"`
	// RemoveSource deletes the uploaded video when the job ends.
	RemoveSource *bool `yaml:"remove_source"`
}

type FFmpegConfig struct {
	BinaryPath   string `yaml:"binary_path" env:"FFMPEG_PATH"`
	SampleRate   int    `yaml:"sample_rate"`
	VideoBitrate string `yaml:"video_bitrate"`
	AudioCodec   string `yaml:"audio_codec"`
	Encoder      string `yaml:"encoder"`
	Preset       string `yaml:"preset"`
}

type CaptionConfig struct {
	MaxLineChars int    `yaml:"max_line_chars"`
	FontSize     int    `yaml:"font_size"`
	FontColor    string `yaml:"font_color"`
	BoxColor     string `yaml:"box_color"`
	BottomMargin int    `yaml:"bottom_margin"`
}

type PathsConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	Temp   string `yaml:"temp"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type PerformanceConfig struct {
	MaxConcurrent        int `yaml:"max_concurrent"`
	MaxConcurrentRenders int `yaml:"max_concurrent_renders"`
}

type WatcherConfig struct {
	// SettleInterval is how often a new upload's size is polled; the file is
	// handed off once two polls agree.
	SettleInterval time.Duration `yaml:"settle_interval"`
}

type MetricsConfig struct {
	// Port 0 disables the metrics server.
	Port int `yaml:"port" env:"METRICS_PORT"`
}

type ReportConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Delay returns the pause between consecutive segment transcriptions.
func (p PipelineConfig) Delay() time.Duration {
	if p.SegmentDelay == nil {
		return 2 * time.Second
	}
	return *p.SegmentDelay
}

// SamplingTemperature returns the configured temperature, 0.7 when unset.
func (s SummarizationConfig) SamplingTemperature() float64 {
	if s.Temperature == nil {
		return 0.7
	}
	return *s.Temperature
}

// ShouldRemoveSource reports whether the source upload is part of the job's
// cleanup. Defaults to true.
func (p PipelineConfig) ShouldRemoveSource() bool {
	return p.RemoveSource == nil || *p.RemoveSource
}

func (c *Config) Validate() error {
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output is required")
	}

	if c.Summarizer.Provider == "" {
		c.Summarizer.Provider = "openai"
	}
	switch c.Summarizer.Provider {
	case "openai":
	case "gemini":
		if len(c.Gemini.APIKeys) == 0 {
			return fmt.Errorf("gemini.api_keys is required when summarizer.provider is gemini")
		}
	default:
		return fmt.Errorf("summarizer.provider must be openai or gemini, got %q", c.Summarizer.Provider)
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (or set OPENAI_API_KEY)")
	}

	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = "whisper-1"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4-turbo-preview"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}

	c.Transcription.Retry.applyDefaults()
	if c.Transcription.GraceWait == 0 {
		c.Transcription.GraceWait = 30 * time.Second
	}
	if c.Transcription.Timeout == 0 {
		c.Transcription.Timeout = 2 * time.Minute
	}

	c.Summarization.Retry.applyDefaults()
	if c.Summarization.Timeout == 0 {
		c.Summarization.Timeout = 30 * time.Second
	}
	if t := c.Summarization.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("summarization.temperature must be between 0 and 2")
	}
	if c.Summarization.MaxTokens == 0 {
		c.Summarization.MaxTokens = 500
	}

	if c.Pipeline.ChunkDuration == 0 {
		c.Pipeline.ChunkDuration = 300 * time.Second
	}
	if c.Pipeline.ChunkDuration < time.Second {
		return fmt.Errorf("pipeline.chunk_duration must be at least 1s")
	}
	if d := c.Pipeline.SegmentDelay; d != nil && *d < 0 {
		return fmt.Errorf("pipeline.segment_delay must not be negative")
	}

	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.FFmpeg.SampleRate == 0 {
		c.FFmpeg.SampleRate = 16000
	}
	if c.FFmpeg.Encoder == "" {
		c.FFmpeg.Encoder = "libx264"
	}
	if c.FFmpeg.VideoBitrate == "" {
		c.FFmpeg.VideoBitrate = "5M"
	}
	if c.FFmpeg.AudioCodec == "" {
		c.FFmpeg.AudioCodec = "copy"
	}
	if c.FFmpeg.Preset == "" {
		c.FFmpeg.Preset = "medium"
	}

	if c.Caption.MaxLineChars == 0 {
		c.Caption.MaxLineChars = 50
	}
	if c.Caption.FontSize == 0 {
		c.Caption.FontSize = 24
	}
	if c.Caption.FontColor == "" {
		c.Caption.FontColor = "white"
	}
	if c.Caption.BoxColor == "" {
		c.Caption.BoxColor = "black@0.5"
	}
	if c.Caption.BottomMargin == 0 {
		c.Caption.BottomMargin = 40
	}

	if c.Paths.Input == "" {
		c.Paths.Input = "data/input"
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = "data/temp"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Performance.MaxConcurrent == 0 {
		c.Performance.MaxConcurrent = 2
	}
	if c.Performance.MaxConcurrentRenders == 0 {
		c.Performance.MaxConcurrentRenders = 1
	}
	if c.Watcher.SettleInterval == 0 {
		c.Watcher.SettleInterval = 500 * time.Millisecond
	}

	return nil
}

func (r *RetryConfig) applyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = 15 * time.Second
	}
	if r.MaxJitter == 0 {
		r.MaxJitter = 500 * time.Millisecond
	}
}
