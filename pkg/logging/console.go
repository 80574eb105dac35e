package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// DebugEnv enables stack traces on errors and dumps every event field when set
const DebugEnv = "SELFBUILD_DEBUG"

// ConsoleWriter renders zerolog's JSON events as "[LABEL]: message" lines. Informational
// and trace lines go to Out, warnings and errors to Err.
type ConsoleWriter struct {
	Out     io.Writer
	Err     io.Writer
	NoColor bool

	buffer strings.Builder
	lock   sync.Mutex
}

func NewConsoleWriter(noColor bool) *ConsoleWriter {
	return &ConsoleWriter{
		Out:     os.Stdout,
		Err:     os.Stderr,
		NoColor: noColor,
	}
}

func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	err = d.Decode(&evt)
	if err != nil {
		return n, eris.Wrapf(err, "cannot decode event: %s", p)
	}

	out := w.Out
	w.buffer.Reset()
	switch evt[zerolog.LevelFieldName] {
	case "panic":
		fallthrough
	case "fatal":
		fallthrough
	case "error":
		out = w.Err
		w.buffer.WriteString("[red][bold][ERROR]:[reset] ")
	case "warn":
		out = w.Err
		w.buffer.WriteString("[yellow][bold][WARNING]:[reset] ")
	case "debug":
		fallthrough
	case "trace":
		w.buffer.WriteString("[blue][TRACE]:[reset] ")
	default:
		w.buffer.WriteString("[green][bold][INFO]:[reset] ")
	}

	msg, _ := evt[zerolog.MessageFieldName].(string)
	w.buffer.WriteString(msg)

	errorDetails, ok := evt[zerolog.ErrorFieldName]
	if ok {
		w.buffer.WriteString(": [red]")
		w.buffer.WriteString(fmt.Sprint(errorDetails))
		w.buffer.WriteString("[reset]")
	}

	if os.Getenv(DebugEnv) != "" {
		names := make([]string, 0, len(evt))
		for name := range evt {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			w.buffer.WriteString(fmt.Sprintf("\n  %s: %+v", name, evt[name]))
		}
	}

	w.buffer.WriteString("\n")
	colorize := colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: w.NoColor,
	}

	_, err = io.WriteString(out, colorize.Color(w.buffer.String()))
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func init() {
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, os.Getenv(DebugEnv) != "")
	}
}
