package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/recap-flow/internal/config"
	"github.com/nguyentantai21042004/recap-flow/internal/failure"
	"github.com/nguyentantai21042004/recap-flow/internal/logger"
	"github.com/nguyentantai21042004/recap-flow/internal/report"
	"github.com/nguyentantai21042004/recap-flow/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFFmpeg stands in for ffmpeg. It creates the files each invocation would
// produce and can be told to fail a stage.
type fakeFFmpeg struct {
	mu sync.Mutex

	duration      time.Duration // length of the source media
	chunk         time.Duration
	fail          map[string]error
	partialSplit  int  // segment files written before a split failure
	skipRender    bool // exit 0 without writing the rendered video
	failHardware  bool // fail any render not using libx264
	calls         []string
	renderEncoder []string
}

func (f *fakeFFmpeg) Execute(_ context.Context, _ string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stage := stageOf(args)
	f.calls = append(f.calls, stage)
	out := args[len(args)-1]

	switch stage {
	case "extract":
		if err := f.fail[stage]; err != nil {
			return "", err
		}
		return "", os.WriteFile(out, []byte("wav"), 0644)

	case "split":
		if err := f.fail[stage]; err != nil {
			for i := 0; i < f.partialSplit; i++ {
				_ = os.WriteFile(fmt.Sprintf(out, i), []byte("wav"), 0644)
			}
			return "", err
		}
		n := int((f.duration + f.chunk - 1) / f.chunk)
		for i := 0; i < n; i++ {
			if err := os.WriteFile(fmt.Sprintf(out, i), []byte("wav"), 0644); err != nil {
				return "", err
			}
		}
		return "", nil

	default:
		enc := args[slices.Index(args, "-c:v")+1]
		f.renderEncoder = append(f.renderEncoder, enc)
		if err := f.fail[stage]; err != nil {
			return "", err
		}
		if f.failHardware && enc != softwareEncoder {
			return "", &executor.CommandError{Name: "ffmpeg", ExitCode: 1, Stderr: "no such encoder"}
		}
		if f.skipRender {
			return "", nil
		}
		return "", os.WriteFile(out, []byte("mp4"), 0644)
	}
}

func (f *fakeFFmpeg) stages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func stageOf(args []string) string {
	switch {
	case slices.Contains(args, "-vn"):
		return "extract"
	case slices.Contains(args, "segment"):
		return "split"
	default:
		return "render"
	}
}

// fakeTranscriber returns the base name of each segment it is given.
type fakeTranscriber struct {
	err   error
	paths []string
	seen  []bool // whether the segment file existed when transcribed
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	f.paths = append(f.paths, filepath.Base(audioPath))
	f.seen = append(f.seen, fileExists(audioPath))
	if f.err != nil {
		return "", f.err
	}
	return strings.TrimSuffix(filepath.Base(audioPath), ".wav"), nil
}

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
	input   string
}

func (f *fakeSummarizer) Summarize(_ context.Context, transcript string) (string, error) {
	f.calls++
	f.input = transcript
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type fakeReport struct {
	err error
}

func (f *fakeReport) Write(_ context.Context, _ report.Report, outputPath string) error {
	if err := os.WriteFile(outputPath, []byte("docx"), 0644); err != nil {
		return err
	}
	return f.err
}

type fixture struct {
	proc   *implProcessor
	ff     *fakeFFmpeg
	tr     *fakeTranscriber
	sum    *fakeSummarizer
	source string
	temp   string
	output string
	slept  []time.Duration
	closed []string // artifacts tracked by the finished job
}

func newFixture(t *testing.T, duration time.Duration) *fixture {
	t.Helper()

	root := t.TempDir()
	f := &fixture{
		temp:   filepath.Join(root, "temp"),
		output: filepath.Join(root, "output"),
		source: filepath.Join(root, "input", "lecture.mp4"),
	}
	for _, dir := range []string{f.temp, f.output, filepath.Dir(f.source)} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	require.NoError(t, os.WriteFile(f.source, []byte("mp4"), 0644))

	cfg := &config.Config{
		OpenAI: config.OpenAIConfig{APIKey: "sk-test"},
		Paths:  config.PathsConfig{Input: filepath.Dir(f.source), Output: f.output, Temp: f.temp},
	}
	require.NoError(t, cfg.Validate())

	f.ff = &fakeFFmpeg{duration: duration, chunk: cfg.Pipeline.ChunkDuration, fail: map[string]error{}}
	f.tr = &fakeTranscriber{}
	f.sum = &fakeSummarizer{summary: "A short summary of the lecture."}

	f.proc = New(cfg, f.ff, f.tr, f.sum, nil, logger.NewNop()).(*implProcessor)
	f.proc.sleep = func(_ context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}
	f.proc.onClose = func(j *job) {
		f.closed = j.tracked()
	}
	return f
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestProcess_TwelveMinuteVideo(t *testing.T) {
	f := newFixture(t, 12*time.Minute)

	res, err := f.proc.Process(context.Background(), f.source)
	require.NoError(t, err)

	assert.Equal(t, []string{"segment_000.wav", "segment_001.wav", "segment_002.wav"}, f.tr.paths)
	assert.Equal(t, []bool{true, true, true}, f.tr.seen)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, f.slept)
	assert.Equal(t, "segment_000 segment_001 segment_002", res.Transcript)
	assert.Equal(t, res.Transcript, f.sum.input)
	assert.Equal(t, "A short summary of the lecture.", res.Summary)
	assert.Equal(t, []string{"extract", "split", "render"}, f.ff.stages())

	assert.NotEmpty(t, res.JobID)
	assert.Equal(t, filepath.Join(f.output, "lecture_"+res.JobID+"_summary.mp4"), res.VideoPath)
	assert.FileExists(t, res.VideoPath)
	assert.Empty(t, res.ReportPath)

	// Only the rendered video survives.
	assert.NoFileExists(t, f.source)
	assert.Empty(t, dirEntries(t, f.temp))
	assert.Equal(t, []string{filepath.Base(res.VideoPath)}, dirEntries(t, f.output))
}

func TestProcess_ShortVideoSingleSegment(t *testing.T) {
	f := newFixture(t, 45*time.Second)

	res, err := f.proc.Process(context.Background(), f.source)
	require.NoError(t, err)

	assert.Equal(t, []string{"segment_000.wav"}, f.tr.paths)
	assert.Empty(t, f.slept)
	assert.Equal(t, "segment_000", res.Transcript)
}

func TestProcess_KeepSource(t *testing.T) {
	f := newFixture(t, time.Minute)
	keep := false
	f.proc.cfg.Pipeline.RemoveSource = &keep

	_, err := f.proc.Process(context.Background(), f.source)
	require.NoError(t, err)
	assert.FileExists(t, f.source)
}

func TestProcess_FailureCleansUp(t *testing.T) {
	upstream := failure.New(failure.KindRateLimitExceeded, "rate limit exceeded after 3 attempts", nil)
	cmdErr := &executor.CommandError{Name: "ffmpeg", ExitCode: 1, Stderr: "Invalid data"}

	tests := []struct {
		name       string
		setup      func(f *fixture)
		wantKind   failure.Kind
		wantStages []string
		wantSum    int
	}{
		{
			name:       "extract",
			setup:      func(f *fixture) { f.ff.fail["extract"] = cmdErr },
			wantKind:   failure.KindAudioExtraction,
			wantStages: []string{"extract"},
		},
		{
			name:       "split",
			setup:      func(f *fixture) { f.ff.fail["split"] = cmdErr },
			wantKind:   failure.KindAudioSplit,
			wantStages: []string{"extract", "split"},
		},
		{
			name:       "transcribe",
			setup:      func(f *fixture) { f.tr.err = upstream },
			wantKind:   failure.KindRateLimitExceeded,
			wantStages: []string{"extract", "split"},
		},
		{
			name: "summarize",
			setup: func(f *fixture) {
				f.sum.err = failure.New(failure.KindSummarizationFailed, "empty content", nil)
			},
			wantKind:   failure.KindSummarizationFailed,
			wantStages: []string{"extract", "split"},
			wantSum:    1,
		},
		{
			name:       "render",
			setup:      func(f *fixture) { f.ff.fail["render"] = cmdErr },
			wantKind:   failure.KindVideoRendering,
			wantStages: []string{"extract", "split", "render"},
			wantSum:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 7*time.Minute)
			tt.setup(f)

			res, err := f.proc.Process(context.Background(), f.source)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.wantKind, failure.KindOf(err))
			assert.Equal(t, tt.wantStages, f.ff.stages())
			assert.Equal(t, tt.wantSum, f.sum.calls)

			require.NotEmpty(t, f.closed)
			for _, path := range f.closed {
				assert.NoFileExists(t, path)
			}
			assert.NoFileExists(t, f.source)
			assert.Empty(t, dirEntries(t, f.temp))
			assert.Empty(t, dirEntries(t, f.output))
		})
	}
}

func TestProcess_TranscriberErrorUnchanged(t *testing.T) {
	f := newFixture(t, time.Minute)
	want := failure.New(failure.KindTimeout, "transcription timed out", context.DeadlineExceeded)
	f.tr.err = want

	_, err := f.proc.Process(context.Background(), f.source)
	assert.Same(t, want, err)
}

func TestProcess_RenderWithoutOutput(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.ff.skipRender = true

	_, err := f.proc.Process(context.Background(), f.source)
	assert.True(t, failure.Is(err, failure.KindVideoRenderingFailed))
	assert.Empty(t, dirEntries(t, f.output))
}

func TestProcess_SoftwareFallback(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.proc.cfg.FFmpeg.Encoder = "h264_videotoolbox"
	f.ff.failHardware = true

	res, err := f.proc.Process(context.Background(), f.source)
	require.NoError(t, err)
	assert.Equal(t, []string{"h264_videotoolbox", "libx264"}, f.ff.renderEncoder)
	assert.FileExists(t, res.VideoPath)
}

func TestProcess_SoftwareEncoderNoFallback(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.ff.fail["render"] = errors.New("exit status 1")

	_, err := f.proc.Process(context.Background(), f.source)
	assert.True(t, failure.Is(err, failure.KindVideoRendering))
	assert.Equal(t, []string{"libx264"}, f.ff.renderEncoder)
}

func TestProcess_Report(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.proc.report = &fakeReport{}

	res, err := f.proc.Process(context.Background(), f.source)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.output, "lecture_"+res.JobID+"_report.docx"), res.ReportPath)
	assert.FileExists(t, res.ReportPath)
	assert.FileExists(t, res.VideoPath)
}

func TestProcess_ReportFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.proc.report = &fakeReport{err: errors.New("disk full")}

	res, err := f.proc.Process(context.Background(), f.source)
	require.NoError(t, err)
	assert.Empty(t, res.ReportPath)
	assert.Equal(t, []string{filepath.Base(res.VideoPath)}, dirEntries(t, f.output))
}

func TestProcess_CancelledBetweenSegments(t *testing.T) {
	f := newFixture(t, 10*time.Minute)
	f.proc.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, err := f.proc.Process(context.Background(), f.source)
	assert.True(t, failure.Is(err, failure.KindTimeout))
	assert.Len(t, f.tr.paths, 1)
	assert.Empty(t, dirEntries(t, f.temp))
}

func TestSplitAudio_PartialOutputsRemoved(t *testing.T) {
	f := newFixture(t, 10*time.Minute)
	f.ff.fail["split"] = errors.New("exit status 1")
	f.ff.partialSplit = 2

	j := newJob(f.source, f.temp, logger.NewNop())
	require.NoError(t, os.MkdirAll(j.workDir, 0755))

	_, err := f.proc.splitAudio(context.Background(), j, filepath.Join(j.workDir, "audio.wav"))
	assert.True(t, failure.Is(err, failure.KindAudioSplit))

	left, err := listSegments(j.workDir)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestListSegments_NumericOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"segment_1000.wav", "segment_002.wav", "segment_999.wav", "audio.wav"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	segments, err := listSegments(dir)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	var names []string
	for i, s := range segments {
		assert.Equal(t, i, s.Index)
		names = append(names, filepath.Base(s.Path))
	}
	assert.Equal(t, []string{"segment_002.wav", "segment_999.wav", "segment_1000.wav"}, names)
}

func TestTranscript(t *testing.T) {
	acc := newTranscript(3)
	acc.set(0, "hello")
	acc.set(2, "world")

	_, err := acc.String()
	assert.True(t, failure.Is(err, failure.KindTranscriptionFailed))

	acc.set(1, " there ")
	text, err := acc.String()
	require.NoError(t, err)
	assert.Equal(t, "hello  there  world", text)
}

func TestJobCleanup(t *testing.T) {
	dir := t.TempDir()
	j := newJob(filepath.Join(dir, "in.mp4"), dir, logger.NewNop())
	require.NoError(t, os.MkdirAll(j.workDir, 0755))

	kept := filepath.Join(dir, "kept.mp4")
	gone := filepath.Join(j.workDir, "audio.wav")
	require.NoError(t, os.WriteFile(kept, nil, 0644))
	require.NoError(t, os.WriteFile(gone, nil, 0644))

	j.track(kept, gone, filepath.Join(dir, "never-created.wav"), gone)
	j.keep(kept)
	assert.Len(t, j.tracked(), 3)

	j.cleanup(context.Background())
	j.cleanup(context.Background())

	assert.FileExists(t, kept)
	assert.NoFileExists(t, gone)
	assert.NoDirExists(t, j.workDir)
}
