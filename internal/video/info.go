package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ssupscaler/internal/execshell"
)

// ErrNoVideoStream is returned when ffprobe finds no video stream.
var ErrNoVideoStream = errors.New("no video stream found")

// Executor runs a subprocess to completion.
type Executor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Info describes a probed video file.
type Info struct {
	Path      string
	FileSize  int64
	Width     int
	Height    int
	Duration  float64
	FrameRate float64
	Frames    int
	Codec     string
	Format    string
	Bitrate   int64
	HasAudio  bool
}

type ffprobeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		FrameCount   string `json:"nb_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Bitrate  string `json:"bit_rate"`
		Format   string `json:"format_name"`
	} `json:"format"`
}

// Prober reads stream metadata with ffprobe.
type Prober struct {
	executor    Executor
	ffprobePath string
}

// NewProber creates a prober using the ffprobe at ffprobePath.
func NewProber(executor Executor, ffprobePath string) *Prober {
	return &Prober{executor: executor, ffprobePath: ffprobePath}
}

// Probe returns metadata for the video at path.
func (prober *Prober) Probe(executionContext context.Context, path string) (Info, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}

	command := execshell.ShellCommand{
		Executable: prober.ffprobePath,
		Details: execshell.CommandDetails{
			Arguments: []string{"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path},
		},
	}
	result, err := prober.executor.Execute(executionContext, command)
	if err != nil {
		return Info{}, fmt.Errorf("failed to run ffprobe: %w", err)
	}

	info, err := ParseProbeOutput([]byte(result.StandardOutput))
	if err != nil {
		return Info{}, err
	}
	info.Path = path
	info.FileSize = fileInfo.Size()
	return info, nil
}

// ParseProbeOutput decodes ffprobe's JSON document.
func ParseProbeOutput(output []byte) (Info, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return Info{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := Info{Format: probe.Format.Format}
	foundVideo := false
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.Codec = stream.CodecName
			info.FrameRate = ParseFrameRate(stream.AvgFrameRate)
			if info.FrameRate == 0 {
				info.FrameRate = ParseFrameRate(stream.RFrameRate)
			}
			if frames, err := strconv.Atoi(stream.FrameCount); err == nil {
				info.Frames = frames
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if !foundVideo {
		return Info{}, ErrNoVideoStream
	}

	if duration, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = duration
	}
	if bitrate, err := strconv.ParseInt(probe.Format.Bitrate, 10, 64); err == nil {
		info.Bitrate = bitrate
	}
	if info.Frames == 0 && info.Duration > 0 && info.FrameRate > 0 {
		info.Frames = int(info.Duration*info.FrameRate + 0.5)
	}
	return info, nil
}

// ParseFrameRate converts ffprobe rates such as "30000/1001" or "25" to a
// number. Unparseable or undefined ("0/0") rates yield 0.
func ParseFrameRate(rate string) float64 {
	numerator, denominator, isFraction := strings.Cut(strings.TrimSpace(rate), "/")
	value, err := strconv.ParseFloat(numerator, 64)
	if err != nil {
		return 0
	}
	if !isFraction {
		return value
	}
	divisor, err := strconv.ParseFloat(denominator, 64)
	if err != nil || divisor == 0 {
		return 0
	}
	return value / divisor
}
