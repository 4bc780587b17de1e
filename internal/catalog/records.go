package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coral-mesh/listquery/internal/constants"
	"github.com/coral-mesh/listquery/internal/safe"
)

// LoadRecords reads JSON objects from path, which may be at most
// constants.MaxDatasetFileSize bytes. Files ending in .jsonl or .ndjson
// hold one object per line; any other file holds a single JSON array.
func LoadRecords(path string) ([]Record, error) {
	data, err := safe.ReadFile(path, constants.MaxDatasetFileSize)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return decodeLines(data)
	default:
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		if records == nil {
			records = []Record{}
		}
		return records, nil
	}
}

func decodeLines(data []byte) ([]Record, error) {
	records := []Record{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(text, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
