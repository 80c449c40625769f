package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/koustreak/datrigen/internal/errs"
)

// StatusError is the cause of every error built from a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

// StatusCode returns the HTTP status behind err, or 0 when err did not come
// from a response.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errs.Body
	// non-JSON bodies fall back to the status text
	_ = json.Unmarshal(raw, &body)

	return errs.FromBody(resp.StatusCode, body, &StatusError{Code: resp.StatusCode, Body: string(raw)})
}
