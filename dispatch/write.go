package dispatch

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/erraggy/rrest/rresterrors"
)

// ErrorBody is the JSON document written for a rejected request.
type ErrorBody struct {
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Errors  []rresterrors.Error `json:"errors,omitempty"`
}

// NewErrorBody describes err.
func NewErrorBody(err error) ErrorBody {
	return ErrorBody{
		Status:  rresterrors.StatusCode(err),
		Message: err.Error(),
		Errors:  rresterrors.List(err),
	}
}

// WriteError writes err as a JSON ErrorBody with its HTTP status. A 405
// carries the Allow header.
func WriteError(w http.ResponseWriter, err error) {
	body := NewErrorBody(err)

	var notAllowed *rresterrors.MethodNotAllowedError
	if errors.As(err, &notAllowed) && len(notAllowed.Allowed) > 0 {
		w.Header().Set("Allow", strings.Join(notAllowed.Allowed, ", "))
	}

	data, mErr := json.MarshalNoEscape(body)
	if mErr != nil {
		http.Error(w, body.Message, body.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Status)
	_, _ = w.Write(data)
}

// WriteResponse writes the status, headers and body of resp. A file set
// with SetFile is streamed instead of the serialized content.
func WriteResponse(w http.ResponseWriter, resp *Response) {
	for k, vs := range resp.Header() {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if resp.ContentType() != "" {
		w.Header().Set("Content-Type", resp.ContentType())
	}
	if resp.Location() != "" {
		w.Header().Set("Location", resp.Location())
	}

	if path := resp.File(); path != "" {
		f, err := os.Open(path)
		if err != nil {
			WriteError(w, err)
			return
		}
		defer f.Close()
		w.WriteHeader(resp.Status())
		_, _ = io.Copy(w, f)
		return
	}

	w.WriteHeader(resp.Status())
	_, _ = w.Write(resp.Body())
}
