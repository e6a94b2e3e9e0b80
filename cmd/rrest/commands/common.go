// Package commands provides CLI command handlers for rrest.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v4"

	"github.com/erraggy/rrest/dispatch"
	"github.com/erraggy/rrest/internal/httputil"
)

// Output format constants
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidateOutputFormat returns an error for an unknown output format.
func ValidateOutputFormat(format string) error {
	if format != FormatText && format != FormatJSON && format != FormatYAML {
		return fmt.Errorf("invalid format '%s'. Valid formats: %s, %s, %s", format, FormatText, FormatJSON, FormatYAML)
	}
	return nil
}

// OutputStructured writes data to w as JSON or YAML.
func OutputStructured(w io.Writer, data any, format string) error {
	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		out, err = json.MarshalIndent(data, "", "  ")
	case FormatYAML:
		out, err = yaml.Marshal(data)
	default:
		return fmt.Errorf("invalid format for structured output: %s", format)
	}
	if err != nil {
		return fmt.Errorf("marshaling to %s: %w", format, err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// NewLogger returns the console logger of the CLI, writing to stderr.
func NewLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).Level(level).With().Timestamp().Logger()
}

// Echo answers a validated request with what the pipeline made of it: the
// typed parameters and the decoded body. Formats that cannot carry a
// structured value get an empty body.
var Echo = dispatch.HandlerFunc(func(_ context.Context, req *dispatch.Request, resp *dispatch.Response) error {
	if !httputil.IsStructured(resp.Format()) {
		return resp.SetContent("")
	}
	return resp.SetContent(map[string]any{
		"params": req.Params(),
		"body":   req.Body(),
	})
})
