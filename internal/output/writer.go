// internal/output/writer.go - Output writing implementation
package output

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileWriter writes output to a file with optional compression
type FileWriter struct {
	formatter   Formatter
	destination Destination
}

// NewFileWriter creates a new file-based writer
func NewFileWriter(config *WriterConfig, destination string) (*FileWriter, error) {
	formatter, err := NewFormatter(config.Format, config.Pretty)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	dest, err := newFileDestination(destination, config.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to create file destination: %w", err)
	}

	return &FileWriter{
		formatter:   formatter,
		destination: dest,
	}, nil
}

// Write formats v and writes it to the destination
func (w *FileWriter) Write(v any) error {
	data, err := w.formatter.Format(v)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	if _, err := w.destination.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	return nil
}

// Name returns the path actually written, including any .gz suffix
func (w *FileWriter) Name() string {
	return w.destination.Name()
}

// Close closes the writer and underlying destination
func (w *FileWriter) Close() error {
	return w.destination.Close()
}

// StreamWriter writes output to a stream such as standard output
type StreamWriter struct {
	formatter Formatter
	out       io.Writer
}

// NewStreamWriter creates a writer on out
func NewStreamWriter(format Format, pretty bool, out io.Writer) (*StreamWriter, error) {
	formatter, err := NewFormatter(format, pretty)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	return &StreamWriter{formatter: formatter, out: out}, nil
}

// Write formats v and writes it followed by a newline
func (w *StreamWriter) Write(v any) error {
	data, err := w.formatter.Format(v)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("write to stream failed: %w", err)
	}

	// Add newline for readability
	_, err = w.out.Write([]byte("\n"))
	return err
}

// Close is a no-op for stream writers
func (w *StreamWriter) Close() error {
	return nil
}

// NewWriter creates the appropriate writer; "" and "-" mean standard output
func NewWriter(config *WriterConfig, destination string) (Writer, error) {
	if destination == "" || destination == "-" {
		return NewStreamWriter(config.Format, config.Pretty, os.Stdout)
	}
	return NewFileWriter(config, destination)
}

// WriteFile writes v to path in one call and returns the path written
func WriteFile(config *WriterConfig, path string, v any) (string, error) {
	w, err := NewFileWriter(config, path)
	if err != nil {
		return "", err
	}

	if err := w.Write(v); err != nil {
		w.Close()
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", w.Name(), err)
	}

	return w.Name(), nil
}

// Open opens path for reading, decompressing .gz files transparently
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}

	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
	}

	return &gzipFile{Reader: gz, file: file}, nil
}

// ReadFile reads the whole of path, decompressing .gz files transparently
func ReadFile(path string) ([]byte, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// fileDestination implements the Destination interface for file output
type fileDestination struct {
	file   *os.File
	writer io.WriteCloser
	name   string
	size   int64
}

// newFileDestination creates a new file destination with optional compression
func newFileDestination(path string, compression bool) (*fileDestination, error) {
	if compression && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	var writer io.WriteCloser = file
	if compression {
		writer = gzip.NewWriter(file)
	}

	return &fileDestination{
		file:   file,
		writer: writer,
		name:   path,
	}, nil
}

// Write implements io.Writer
func (d *fileDestination) Write(p []byte) (n int, err error) {
	n, err = d.writer.Write(p)
	d.size += int64(n)
	return n, err
}

// Close implements io.Closer
func (d *fileDestination) Close() error {
	if d.writer != d.file {
		if err := d.writer.Close(); err != nil {
			d.file.Close()
			return err
		}
	}
	return d.file.Close()
}

// Name returns the destination file path
func (d *fileDestination) Name() string {
	return d.name
}

// Size returns the number of bytes written
func (d *fileDestination) Size() int64 {
	return d.size
}
