package stopfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tour-synthesis-service/internal/domain"
)

// Writer appends CSV records to a file through a buffered writer.
type Writer struct {
	path string
	f    *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	n    int
}

// Create truncates path (creating parent directories) and returns a writer.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create %q: mkdir: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", path, err)
	}
	buf := bufio.NewWriterSize(f, 1<<16)
	return &Writer{path: path, f: f, buf: buf, csv: csv.NewWriter(buf)}, nil
}

func (w *Writer) write(rec []string) error {
	if err := w.csv.Write(rec); err != nil {
		return fmt.Errorf("write %q record %d: %w", w.path, w.n+1, err)
	}
	w.n++
	return nil
}

func (w *Writer) WriteStop(s domain.Stop) error { return w.write(EncodeStop(s)) }

func (w *Writer) WriteTraveler(t domain.Traveler) error { return w.write(EncodeTraveler(t)) }

func (w *Writer) WriteTour(t *domain.Tour) error { return w.write(EncodeTour(t)) }

// Count of records written so far.
func (w *Writer) Count() int { return w.n }

// Close flushes buffered records and closes the file.
func (w *Writer) Close() error {
	w.csv.Flush()
	err := w.csv.Error()
	if ferr := w.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close %q: %w", w.path, err)
	}
	return nil
}

// Reader streams CSV records from a file.
type Reader struct {
	path string
	f    *os.File
	csv  *csv.Reader
	line int
}

func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	r := csv.NewReader(bufio.NewReaderSize(f, 1<<16))
	r.FieldsPerRecord = -1
	r.ReuseRecord = false
	return &Reader{path: path, f: f, csv: r}, nil
}

func (r *Reader) next() ([]string, error) {
	rec, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", r.path, err)
	}
	r.line++
	return rec, nil
}

// NextStop returns the next node record or io.EOF.
func (r *Reader) NextStop() (domain.Stop, error) {
	rec, err := r.next()
	if err != nil {
		return domain.Stop{}, err
	}
	s, err := DecodeStop(rec)
	if err != nil {
		return s, fmt.Errorf("%s:%d: %w", r.path, r.line, err)
	}
	return s, nil
}

// NextTraveler returns the next carried traveler record or io.EOF.
func (r *Reader) NextTraveler() (domain.Traveler, error) {
	rec, err := r.next()
	if err != nil {
		return domain.Traveler{}, err
	}
	t, err := DecodeTraveler(rec)
	if err != nil {
		return t, fmt.Errorf("%s:%d: %w", r.path, r.line, err)
	}
	return t, nil
}

// NextTravelerInput returns the next upstream traveler record, numbered by line.
func (r *Reader) NextTravelerInput() (domain.Traveler, error) {
	rec, err := r.next()
	if err != nil {
		return domain.Traveler{}, err
	}
	t, err := DecodeTravelerInput(rec, int64(r.line))
	if err != nil {
		return t, fmt.Errorf("%s:%d: %w", r.path, r.line, err)
	}
	return t, nil
}

// NextRecord returns the raw next record or io.EOF.
func (r *Reader) NextRecord() ([]string, error) { return r.next() }

func (r *Reader) Close() error { return r.f.Close() }

// ReadStops loads a whole stop file. Intended for small files and tests.
func ReadStops(path string) ([]domain.Stop, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []domain.Stop
	for {
		s, err := r.NextStop()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
}

// WriteStops writes stops to a new file.
func WriteStops(path string, stops []domain.Stop) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	for _, s := range stops {
		if err := w.WriteStop(s); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
