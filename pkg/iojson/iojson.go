// Package iojson writes command output as JSON and reads JSON input from
// a file flag or a pipe.
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// failure is written to the error stream when a value cannot be encoded,
// so scripts reading stderr still get JSON.
type failure struct {
	Message string `json:"message"`
	Data    struct {
		JSONError string `json:"json_error"`
	} `json:"data"`
}

func encode(w, ew io.Writer, obj any, indent bool) error {
	var (
		bits []byte
		err  error
	)
	if indent {
		bits, err = json.MarshalIndent(obj, "", "  ")
	} else {
		bits, err = json.Marshal(obj)
	}

	if err != nil {
		var f failure
		f.Message = fmt.Sprintf("cannot encode %T as JSON", obj)
		f.Data.JSONError = err.Error()
		if line, merr := json.Marshal(f); merr == nil {
			_, _ = fmt.Fprintln(ew, string(line))
		}
		return fmt.Errorf("encode %T: %w", obj, err)
	}

	bits = append(bits, '\n')
	_, err = w.Write(bits)
	return err
}

// WriteWith writes obj to w as indented JSON. Encoding failures are
// reported as a JSON object on ew and returned.
func WriteWith(w, ew io.Writer, obj any) error {
	return encode(w, ew, obj, true)
}

// Write is WriteWith on stdout and stderr.
func Write(obj any) error {
	return WriteWith(os.Stdout, os.Stderr, obj)
}

// WriteLineWith writes obj as one compact line, for NDJSON streams.
func WriteLineWith(w, ew io.Writer, obj any) error {
	return encode(w, ew, obj, false)
}

// WriteLine is WriteLineWith on stdout and stderr.
func WriteLine(obj any) error {
	return WriteLineWith(os.Stdout, os.Stderr, obj)
}
