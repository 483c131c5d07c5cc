package reader

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tms-reader/backend/internal/models"
)

// ErrBadDataDir means the configured data directory is missing or is not a
// directory. Construction fails immediately with this error.
var ErrBadDataDir = errors.New("data directory missing or not a directory")

// DataReader reads a directory of TMS-4 data files. The file index is built
// once at construction and is immutable; Read re-reads file contents from
// disk on every call, so repeated calls over an unchanged directory produce
// identical results.
type DataReader struct {
	dataDir string
	format  Format
	// files in discovery order (lexical filename order, which os.ReadDir
	// guarantees, so discovery is deterministic across platforms).
	files []models.LoggerFile
	byID  map[int64]struct{}
}

// New scans dataDir (non-recursive) for files matching the vendor naming
// pattern and builds the logger index. Files that do not match the pattern
// are ignored.
func New(dataDir string, format Format) (*DataReader, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadDataDir, dataDir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBadDataDir, dataDir)
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dataDir, err)
	}

	r := &DataReader{
		dataDir: dataDir,
		format:  format,
		files:   make([]models.LoggerFile, 0, len(entries)),
		byID:    make(map[int64]struct{}),
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := format.FilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			// Pattern guarantees digits; an overflow here is a bogus file.
			continue
		}
		r.files = append(r.files, models.LoggerFile{
			LoggerID: id,
			Name:     entry.Name(),
			Path:     filepath.Join(dataDir, entry.Name()),
		})
		r.byID[id] = struct{}{}
	}

	return r, nil
}

// DataDir returns the scanned directory.
func (r *DataReader) DataDir() string {
	return r.dataDir
}

// FileCount returns the number of discovered data files.
func (r *DataReader) FileCount() int {
	return len(r.files)
}

// Loggers returns the discovered logger IDs, sorted ascending.
func (r *DataReader) Loggers() []int64 {
	ids := make([]int64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CheckMissing returns the expected logger IDs for which no file was
// discovered, sorted ascending. The result depends only on set membership,
// not on the order of expected.
func (r *DataReader) CheckMissing(expected []int64) []int64 {
	missing := make([]int64, 0)
	seen := make(map[int64]struct{}, len(expected))
	for _, id := range expected {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := r.byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// Read parses every discovered file, in discovery order, into one result.
// Malformed lines are skipped and recorded on the result; a file that
// disappears or becomes unreadable aborts the whole read.
func (r *DataReader) Read() (*models.ReadResult, error) {
	result := models.NewReadResult()

	for _, lf := range r.files {
		if err := r.readFile(lf, result); err != nil {
			return nil, err
		}
		result.FilesRead++
	}

	return result, nil
}

// readFile parses one file into result. File handles are scoped here so
// every exit path, including parse failures, releases them.
func (r *DataReader) readFile(lf models.LoggerFile, result *models.ReadResult) error {
	f, err := os.Open(lf.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", lf.Name, err)
	}
	defer f.Close()

	// Source file mtime travels with every record as read_time.
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", lf.Name, err)
	}
	readTime := info.ModTime()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	dataLines := 0
	for scanner.Scan() {
		lineNum++
		if lineNum <= r.format.HeaderLines {
			continue
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		// Lolly writes a literal marker file when a logger had no data.
		if dataLines == 0 && strings.TrimSpace(line) == r.format.EmptyFileMarker {
			fmt.Printf("[Reader] Empty file %s\n", lf.Name)
			result.Notes = append(result.Notes, fmt.Sprintf("empty file: %s", lf.Name))
			return nil
		}
		dataLines++

		rec, rowErr := r.parseLine(lf, lineNum, line, readTime)
		if rowErr != nil {
			result.Skipped = append(result.Skipped, *rowErr)
			continue
		}
		result.Records = append(result.Records, rec)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", lf.Name, err)
	}

	return nil
}
