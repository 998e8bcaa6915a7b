package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ssupscaler/internal/execshell"
	"ssupscaler/internal/media"
	"ssupscaler/internal/pipeline"
)

func scrape(testInstance *testing.T, path string) (int, string) {
	testInstance.Helper()
	recorder := httptest.NewRecorder()
	NewRouter().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder.Code, recorder.Body.String()
}

func TestMetricsExist(testInstance *testing.T) {
	testCases := []struct {
		name   string
		metric interface{}
	}{
		{"FilesProcessedTotal", FilesProcessedTotal},
		{"FileDuration", FileDuration},
		{"QueueLength", QueueLength},
		{"FramesProcessedTotal", FramesProcessedTotal},
		{"CommandsInFlight", CommandsInFlight},
		{"CommandDuration", CommandDuration},
		{"CommandFailuresTotal", CommandFailuresTotal},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.NotNil(testInstance, testCase.metric)
		})
	}
}

func TestObserversExportSeries(testInstance *testing.T) {
	pipelineObserver := NewPipelineObserver()
	pipelineObserver.FileFinished(media.KindVideo, pipeline.StatusCompleted, 90*time.Second)
	pipelineObserver.FileFinished(media.KindImage, pipeline.StatusFailed, time.Second)
	pipelineObserver.FrameProcessed(false)
	pipelineObserver.FrameProcessed(true)
	pipelineObserver.QueueLength(4)

	ffmpeg := execshell.ShellCommand{Executable: "/usr/bin/ffmpeg"}
	realesrgan := execshell.ShellCommand{Executable: "/opt/realesrgan-ncnn-vulkan"}
	commandObserver := NewCommandObserver()
	commandObserver.CommandStarted(ffmpeg)
	commandObserver.CommandCompleted(ffmpeg, execshell.ExecutionResult{ExitCode: 1}, 2*time.Second)
	commandObserver.CommandStarted(realesrgan)
	commandObserver.CommandExecutionFailed(realesrgan, errors.New("exec format error"))

	code, body := scrape(testInstance, "/metrics")
	require.Equal(testInstance, http.StatusOK, code)

	expectedSeries := []string{
		`ssupscaler_files_processed_total{kind="video",status="completed"}`,
		`ssupscaler_files_processed_total{kind="image",status="failed"}`,
		`ssupscaler_file_duration_seconds_count{kind="video"}`,
		`ssupscaler_frames_processed_total{result="upscaled"}`,
		`ssupscaler_frames_processed_total{result="fallback"}`,
		`ssupscaler_queue_length 4`,
		`ssupscaler_commands_in_flight 0`,
		`ssupscaler_command_duration_seconds_count{tool="ffmpeg"}`,
		`ssupscaler_command_failures_total{reason="exit",tool="ffmpeg"}`,
		`ssupscaler_command_failures_total{reason="start",tool="realesrgan-ncnn-vulkan"}`,
	}
	for _, series := range expectedSeries {
		require.Contains(testInstance, body, series)
	}
	require.NotContains(testInstance, body, `ssupscaler_file_duration_seconds_count{kind="image"}`)
}

func TestCommandFailureReasons(testInstance *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "start", err: errors.New("exec: not found"), expected: ReasonStart},
		{name: "cancelled", err: context.Canceled, expected: ReasonCancelled},
		{name: "timeout", err: context.DeadlineExceeded, expected: ReasonTimeout},
		{name: "wrapped_cancel", err: fmt.Errorf("frame_000001.png: %w", context.Canceled), expected: ReasonCancelled},
	}

	commandObserver := NewCommandObserver()
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			command := execshell.ShellCommand{Executable: "/opt/reason-" + testCase.name}
			commandObserver.CommandStarted(command)
			commandObserver.CommandExecutionFailed(command, testCase.err)

			_, body := scrape(testInstance, "/metrics")
			for _, reason := range []string{ReasonStart, ReasonCancelled, ReasonTimeout} {
				series := fmt.Sprintf(`ssupscaler_command_failures_total{reason=%q,tool="reason-%s"} 1`, reason, testCase.name)
				if reason == testCase.expected {
					require.Contains(testInstance, body, series)
				} else {
					require.NotContains(testInstance, body, series)
				}
			}
		})
	}
}

func TestHealthz(testInstance *testing.T) {
	code, body := scrape(testInstance, "/healthz")
	require.Equal(testInstance, http.StatusOK, code)
	require.Equal(testInstance, "ok\n", body)

	recorder := httptest.NewRecorder()
	NewRouter().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	require.Equal(testInstance, http.StatusMethodNotAllowed, recorder.Code)
}

func TestServerLifecycle(testInstance *testing.T) {
	server, err := Listen("127.0.0.1:0", zap.NewNop())
	require.NoError(testInstance, err)

	executionContext, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- server.Serve(executionContext)
	}()

	response, err := http.Get("http://" + server.Address() + "/healthz")
	require.NoError(testInstance, err)
	body, err := io.ReadAll(response.Body)
	response.Body.Close()
	require.NoError(testInstance, err)
	require.Equal(testInstance, "ok\n", string(body))

	cancel()
	select {
	case err := <-served:
		require.NoError(testInstance, err)
	case <-time.After(10 * time.Second):
		testInstance.Fatal("server did not shut down")
	}
}
