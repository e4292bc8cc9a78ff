package backup

import (
	"archive/zip"
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
)

// maxRecordSize bounds one encoded record. Games with long notes exceed bufio's default.
const maxRecordSize = 16 << 20

// recordWriter appends JSON lines of T to one archive member.
type recordWriter[T any] struct {
	enc *json.Encoder
	n   int
}

func newRecordWriter[T any](zw *zip.Writer, name string) (*recordWriter[T], error) {
	w, err := zw.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &recordWriter[T]{enc: enc}, nil
}

func (w *recordWriter[T]) write(v T) error {
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	w.n++
	return nil
}

// writeRecords writes items as one archive member and stores the record count in n.
func writeRecords[T any](zw *zip.Writer, name string, items []T, n *int) error {
	w, err := newRecordWriter[T](zw, name)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := w.write(item); err != nil {
			return err
		}
	}
	*n = w.n
	return nil
}

// RecordError locates a record that could not be decoded.
type RecordError struct {
	File string
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.File, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// readRecords yields the records of one archive member in order. Blank lines are
// skipped. Iteration stops at the first error; a missing member yields fs.ErrNotExist.
func readRecords[T any](fsys fs.FS, name string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		f, err := fsys.Open(name)
		if err != nil {
			yield(zero, err)
			return
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 64<<10), maxRecordSize)
		line := 0
		for sc.Scan() {
			line++
			if len(sc.Bytes()) == 0 {
				continue
			}
			var v T
			if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
				yield(zero, &RecordError{File: name, Line: line, Err: err})
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(zero, &RecordError{File: name, Line: line + 1, Err: err})
		}
	}
}

// countRecords counts the decodable records of one archive member. Errors name the
// member.
func countRecords(fsys fs.FS, name string) (int, error) {
	n := 0
	for _, err := range readRecords[json.RawMessage](fsys, name) {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return n, fmt.Errorf("%s: missing from archive", name)
			}
			return n, err
		}
		n++
	}
	return n, nil
}
