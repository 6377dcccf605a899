// Package csvfile provides a CSV file connector, an extractor that reads
// one offset/limit window of the matching rows and an appending loader.
package csvfile

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
)

// Config holds file settings decoded from connector params.
type Config struct {
	Path string `mapstructure:"path" validate:"required"`
	// Delimiter is a single character. Defaults to ",".
	Delimiter string `mapstructure:"delimiter"`
	// Header reports whether the first line names the columns. Defaults to true.
	Header *bool `mapstructure:"header"`
	// Columns names the columns of a headerless file.
	Columns []string `mapstructure:"columns"`
	// TrimSpace strips leading space from fields.
	TrimSpace bool `mapstructure:"trim_space"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Delimiter == "" {
		c.Delimiter = ","
	}
	if c.Header == nil {
		header := true
		c.Header = &header
	}
}

// Validate checks the path and delimiter.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.Configuration("csv: path is required")
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return errors.Configurationf("csv: delimiter must be one character, got %q", c.Delimiter)
	}
	if !*c.Header && len(c.Columns) == 0 {
		return errors.Configuration("csv: columns are required when header is false")
	}
	return nil
}

// File is the stream a csv connector hands to jobs. Reads open the file
// afresh. Appends are serialized.
type File struct {
	cfg   Config
	comma rune

	mu sync.Mutex
}

func newFile(cfg Config) *File {
	r, _ := utf8.DecodeRuneInString(cfg.Delimiter)
	return &File{cfg: cfg, comma: r}
}

// Path returns the file path.
func (f *File) Path() string { return f.cfg.Path }

// Scan calls fn for every data row in file order. It stops at the first
// error returned by fn and returns it.
func (f *File) Scan(ctx context.Context, fn func(job.Record) error) error {
	fh, err := os.Open(f.cfg.Path)
	if err != nil {
		return err
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.Comma = f.comma
	r.TrimLeadingSpace = f.cfg.TrimSpace
	r.ReuseRecord = true

	columns := f.cfg.Columns
	if *f.cfg.Header {
		head, err := r.Read()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		columns = append([]string(nil), head...)
	}
	r.FieldsPerRecord = len(columns)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := r.Read()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		rec := make(job.Record, len(columns))
		for i, col := range columns {
			rec[col] = row[i]
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Append writes records at the end of the file, creating it with a header
// line when it does not exist yet. Columns come from the config, else from
// the existing header, else from the sorted keys of the first record.
func (f *File) Append(records []job.Record) error {
	if len(records) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	columns, exists, err := f.columns()
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		columns = records[0].Columns()
	}

	fh, err := os.OpenFile(f.cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := csv.NewWriter(fh)
	w.Comma = f.comma
	if !exists && *f.cfg.Header {
		if err := w.Write(columns); err != nil {
			_ = fh.Close()
			return err
		}
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = text(rec[col])
		}
		if err := w.Write(row); err != nil {
			_ = fh.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

// columns returns the configured or existing header and whether the file
// already has content.
func (f *File) columns() ([]string, bool, error) {
	info, err := os.Stat(f.cfg.Path)
	if stderrors.Is(err, os.ErrNotExist) {
		return f.cfg.Columns, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if info.Size() == 0 {
		return f.cfg.Columns, false, nil
	}
	if len(f.cfg.Columns) > 0 || !*f.cfg.Header {
		return f.cfg.Columns, true, nil
	}

	fh, err := os.Open(f.cfg.Path)
	if err != nil {
		return nil, true, err
	}
	defer fh.Close()
	r := csv.NewReader(fh)
	r.Comma = f.comma
	head, err := r.Read()
	if err != nil {
		return nil, true, err
	}
	return head, true, nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
