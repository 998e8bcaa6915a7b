package ui

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"ssupscaler/internal/logging"
	"ssupscaler/internal/pipeline"
)

// Console turns pipeline events into terminal output. Interactive consoles
// draw a progress bar for the current file; plain consoles print a line every
// ten percent so the output stays readable when redirected.
type Console struct {
	out         io.Writer
	journal     *logging.Journal
	interactive bool

	bar        *progressbar.ProgressBar
	file       string
	lastDecile int
	overall    pipeline.Event
	errors     int
}

// NewConsole creates a console writing to out and recording log lines in journal.
func NewConsole(out io.Writer, journal *logging.Journal, interactive bool) *Console {
	return &Console{out: out, journal: journal, interactive: interactive, lastDecile: -1}
}

// Journal returns the activity log the console writes to.
func (console *Console) Journal() *logging.Journal {
	return console.journal
}

// Errors returns how many error events were shown.
func (console *Console) Errors() int {
	return console.errors
}

// Consume handles events until the channel is closed.
func (console *Console) Consume(events <-chan pipeline.Event) {
	for event := range events {
		console.Handle(event)
	}
}

// Handle renders a single event.
func (console *Console) Handle(event pipeline.Event) {
	switch event.Kind {
	case pipeline.EventLog:
		console.Log(event.Message)
	case pipeline.EventError:
		console.errors++
		console.logStyled("❌ Error: "+event.Message, ErrorStyle)
	case pipeline.EventProgress:
		console.progress(event)
	case pipeline.EventFinished:
		console.finishFile()
	case pipeline.EventOverall:
		console.overall = event
		if event.Processed > 0 {
			console.println(mutedStyle.Render(overallLine(event)))
		}
	case pipeline.EventBatchDone:
		console.finishFile()
		if event.Stopped {
			console.logStyled("Processing stopped by user", WarningStyle)
			return
		}
		console.logStyled("✅ Processing completed! Total time: "+FormatTime(event.Elapsed.Seconds()), SuccessStyle)
	}
}

// Log records message in the journal and prints it.
func (console *Console) Log(message string) {
	console.logStyled(message, lipgloss.NewStyle())
}

func (console *Console) logStyled(message string, style lipgloss.Style) {
	entry := console.journal.Add(message)
	console.println(style.Render(entry.String()))
}

func (console *Console) println(line string) {
	if console.bar != nil {
		console.bar.Clear()
	}
	fmt.Fprintln(console.out, line)
}

func (console *Console) progress(event pipeline.Event) {
	if event.File != console.file {
		console.finishFile()
		console.file = event.File
		if console.interactive {
			console.bar = console.newBar(event.File)
		}
	}

	if console.interactive {
		console.bar.Set(event.Percent)
		return
	}
	decile := event.Percent / 10
	if decile > console.lastDecile {
		console.lastDecile = decile
		fmt.Fprintf(console.out, "  %s %d%%\n", filepath.Base(event.File), event.Percent)
	}
}

func (console *Console) finishFile() {
	if console.bar != nil {
		console.bar.Finish()
		fmt.Fprintln(console.out)
		console.bar = nil
	}
	console.file = ""
	console.lastDecile = -1
}

func (console *Console) newBar(file string) *progressbar.ProgressBar {
	description := filepath.Base(file)
	if console.overall.Total > 0 {
		description = fmt.Sprintf("[%d/%d] %s", console.overall.Processed+1, console.overall.Total, description)
	}
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(console.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func overallLine(event pipeline.Event) string {
	return fmt.Sprintf("Overall: %d%% (%d/%d) | Elapsed: %s | Remaining: %s",
		event.Percent, event.Processed, event.Total,
		FormatTime(event.Elapsed.Seconds()), FormatTime(event.Remaining.Seconds()))
}
