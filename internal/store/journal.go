package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"legalcrawl/internal/logging"
)

// journal is a write-ahead log of pending enqueue records, framed exactly
// like the teacher's DiskQueue ([CRC32][LENGTH][DATA]\n), so an enqueue
// that crashes between the journal append and the SQLite commit is
// replayed on the next Open instead of silently lost.
type journal struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	logger *logging.Logger
}

type journalRecord struct {
	Domain string `json:"domain"`
	Source string `json:"source"`
}

func openJournal(path string, logger *logging.Logger) (*journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	return &journal{path: path, file: f, logger: logger}, nil
}

// append writes one framed record and fsyncs before returning, so the
// enqueue call can be considered durable before the SQLite insert runs.
func (j *journal) append(rec journalRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	crc := crc32.ChecksumIEEE(data)
	line := fmt.Sprintf("%08x%08x%s\n", crc, len(data), data)
	if _, err := j.file.WriteString(line); err != nil {
		return fmt.Errorf("write journal record: %w", err)
	}
	return j.file.Sync()
}

// replay reads every valid framed record in the journal from the start,
// skipping corrupt frames with a warning rather than failing startup.
func (j *journal) replay() ([]journalRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek journal: %w", err)
	}

	var records []journalRecord
	scanner := bufio.NewScanner(j.file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 16 {
			continue
		}
		crcHex, lenHex, dataStr := line[0:8], line[8:16], line[16:]

		expectedCRC, err := strconv.ParseUint(crcHex, 16, 32)
		if err != nil {
			j.logger.Warn("invalid crc in journal", map[string]interface{}{"error": err.Error()})
			continue
		}
		dataLen, err := strconv.ParseUint(lenHex, 16, 32)
		if err != nil || len(dataStr) != int(dataLen) {
			j.logger.Warn("length mismatch in journal", map[string]interface{}{"line_len": len(line)})
			continue
		}
		if crc32.ChecksumIEEE([]byte(dataStr)) != uint32(expectedCRC) {
			j.logger.Warn("crc mismatch in journal, skipping record", nil)
			continue
		}

		var rec journalRecord
		if err := json.Unmarshal([]byte(dataStr), &rec); err != nil {
			j.logger.Warn("failed to unmarshal journal record", map[string]interface{}{"error": err.Error()})
			continue
		}
		records = append(records, rec)
	}
	if _, err := j.file.Seek(0, io.SeekEnd); err != nil {
		return records, fmt.Errorf("seek journal to end: %w", err)
	}
	return records, scanner.Err()
}

// truncate clears the journal once every record in it has been durably
// committed into SQLite, so replay on the next startup has nothing left
// to do in the common case.
func (j *journal) truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.file.Truncate(0); err != nil {
		return err
	}
	_, err := j.file.Seek(0, io.SeekStart)
	return err
}

func (j *journal) close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
