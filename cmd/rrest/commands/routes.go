package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/erraggy/rrest/apispec"
	"github.com/erraggy/rrest/internal/httputil"
	"github.com/erraggy/rrest/loader"
)

// RouteInfo describes one route of a document.
type RouteInfo struct {
	Method        string   `json:"method" yaml:"method"`
	Path          string   `json:"path" yaml:"path"`
	Resource      string   `json:"resource" yaml:"resource"`
	SuccessStatus int      `json:"successStatus,omitempty" yaml:"successStatus,omitempty"`
	AuthTypes     []string `json:"authTypes,omitempty" yaml:"authTypes,omitempty"`
}

// ListRoutes describes every route of doc. A route without a single
// success status reports 0.
func ListRoutes(doc apispec.Document) []RouteInfo {
	specs := doc.Routes()
	out := make([]RouteInfo, 0, len(specs))
	for _, s := range specs {
		info := RouteInfo{
			Method:    s.Method(),
			Path:      s.RoutePath(),
			Resource:  s.ResourcePath(),
			AuthTypes: s.AuthTypes(),
		}
		if codes := httputil.SuccessStatuses(s.StatusCodes()); len(codes) == 1 {
			info.SuccessStatus = codes[0]
		}
		out = append(out, info)
	}
	return out
}

// HandleRoutes loads source and writes its routes to w.
func HandleRoutes(ctx context.Context, w io.Writer, source, format string) error {
	if err := ValidateOutputFormat(format); err != nil {
		return err
	}
	doc, err := loader.Load(ctx, source)
	if err != nil {
		return err
	}
	routes := ListRoutes(doc)
	if format != FormatText {
		return OutputStructured(w, routes, format)
	}

	info := doc.Info()
	if _, err := fmt.Fprintf(w, "%s %s (%s)\n\n", info.Title, info.Version, info.Format); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "METHOD\tPATH\tSTATUS\tAUTH")
	for _, r := range routes {
		status := "-"
		if r.SuccessStatus != 0 {
			status = strconv.Itoa(r.SuccessStatus)
		}
		auth := strings.Join(r.AuthTypes, ",")
		if auth == "" {
			auth = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Method, r.Path, status, auth)
	}
	return tw.Flush()
}
