package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Reporter logs cleanup progress through zerolog and, when running inside
// GitHub Actions, also emits workflow commands so messages surface as
// annotations on the job summary.
type Reporter struct {
	logger zerolog.Logger

	mu       sync.Mutex
	commands io.Writer // nil disables workflow commands
}

// NewReporter creates a reporter. Pass a non-nil commands writer (usually
// os.Stdout) to emit GitHub Actions workflow commands.
func NewReporter(logger zerolog.Logger, commands io.Writer) *Reporter {
	return &Reporter{
		logger:   logger,
		commands: commands,
	}
}

// Debug reports per-item progress.
func (r *Reporter) Debug(msg string) {
	r.logger.Debug().Msg(msg)
	r.command("debug", "", msg)
}

// Info reports page-level progress.
func (r *Reporter) Info(msg string) {
	r.logger.Info().Msg(msg)
	if r.commands != nil {
		r.write(msg + "\n")
	}
}

// Notice reports the run summary, attributed to source.
func (r *Reporter) Notice(msg, source string) {
	r.logger.Info().Str("level_hint", "notice").Str("source", source).Msg(msg)
	params := ""
	if source != "" {
		params = "file=" + escapeProperty(source)
	}
	r.command("notice", params, msg)
}

// Warning reports conditions that stopped the run early without failing it.
func (r *Reporter) Warning(msg string) {
	r.logger.Warn().Msg(msg)
	r.command("warning", "", msg)
}

// Error reports a failed operation.
func (r *Reporter) Error(msg string) {
	r.logger.Error().Msg(msg)
	r.command("error", "", msg)
}

func (r *Reporter) command(name, params, msg string) {
	if r.commands == nil {
		return
	}
	if params != "" {
		name += " " + params
	}
	r.write(fmt.Sprintf("::%s::%s\n", name, escapeData(msg)))
}

func (r *Reporter) write(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.commands, line)
}

// escapeData escapes a workflow command message.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}

// escapeProperty escapes a workflow command property value.
func escapeProperty(s string) string {
	s = escapeData(s)
	s = strings.ReplaceAll(s, ":", "%3A")
	return strings.ReplaceAll(s, ",", "%2C")
}
