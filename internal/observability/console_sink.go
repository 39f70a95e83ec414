package observability

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/bluzky/prana/internal/executor"
)

// ConsoleSink is a Middleware handler (§6.4) that logs every lifecycle
// event through zerolog, mirroring the teacher's ConsoleLogger event-type
// switch (internal/infrastructure/monitoring/console_logger.go) but built
// on structured zerolog fields instead of fmt.Sprintf. When stdout is a
// real terminal it renders through zerolog's ConsoleWriter over a
// colorable writer so ANSI codes survive on Windows consoles too;
// otherwise it falls back to plain JSON lines, which is what a log
// shipper in production actually wants.
type ConsoleSink struct {
	log zerolog.Logger
}

// NewConsoleSink builds a sink writing to w (os.Stdout if nil).
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	var out io.Writer = w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: colorable.NewColorable(f), TimeFormat: "15:04:05"}
	}
	return &ConsoleSink{log: zerolog.New(out).With().Timestamp().Logger()}
}

// Handle satisfies executor.MiddlewareHandler.
func (s *ConsoleSink) Handle(kind executor.EventKind, payload map[string]any) {
	evt := s.log.Info()
	if kind == executor.EventNodeFailed || kind == executor.EventWorkflowFailed {
		evt = s.log.Error()
	}
	for k, v := range payload {
		evt = evt.Interface(k, v)
	}
	evt.Str("event", string(kind)).Msg(fmt.Sprintf("prana: %s", kind))
}
