package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/EarthScope/sac2mseed/pkg/codec"
)

// RecordFileConfig configures a RecordFile.
type RecordFileConfig struct {
	FilePath string
	// FsyncInterval delays the fsync after a write; zero syncs every
	// record.
	FsyncInterval time.Duration
	BufferSize    int
	// Truncate discards an existing file instead of appending to it.
	Truncate bool
}

// RecordFile appends packed records back to back to a file.
type RecordFile struct {
	file       *os.File
	writer     *bufio.Writer
	fsyncTimer *time.Timer
	config     RecordFileConfig
	mutex      sync.Mutex
	offset     int64
	count      int
}

// NewRecordFile opens the file for appending, creating it and its
// directory if needed.
func NewRecordFile(config RecordFileConfig) (*RecordFile, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if config.Truncate {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(config.FilePath, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open record file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat record file: %w", err)
	}

	size := config.BufferSize
	if size <= 0 {
		size = 64 * 1024
	}
	w := &RecordFile{
		file:   file,
		writer: bufio.NewWriterSize(file, size),
		config: config,
		offset: stat.Size(),
	}

	if config.FsyncInterval > 0 {
		w.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			w.mutex.Lock()
			defer w.mutex.Unlock()
			_ = w.sync()
		})
	}
	return w, nil
}

// WriteRecord appends one record.
func (w *RecordFile) WriteRecord(rec []byte) error {
	if !codec.IsValidHeader(rec) {
		return fmt.Errorf("refusing to write %d bytes without a record header", len(rec))
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	n, err := w.writer.Write(rec)
	w.offset += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.count++

	if w.config.FsyncInterval == 0 {
		return w.sync()
	}
	w.fsyncTimer.Reset(w.config.FsyncInterval)
	return nil
}

// Sync flushes buffered records and fsyncs the file.
func (w *RecordFile) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *RecordFile) sync() error {
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return w.file.Sync()
}

// Close syncs and closes the file.
func (w *RecordFile) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}
	if err := w.sync(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// Size returns the file size including buffered records.
func (w *RecordFile) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Count returns the number of records written since opening.
func (w *RecordFile) Count() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.count
}

// Path returns the file path.
func (w *RecordFile) Path() string {
	return w.config.FilePath
}
