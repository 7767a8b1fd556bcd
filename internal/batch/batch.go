// Package batch reads question items and writes answers in the JSONL
// batch contract: one JSON object per line, blank lines skipped.
package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"hybridqa/internal/types"
)

// ReadItems parses question items from r. Malformed lines are hard
// errors: a bad batch file should abort before any model or store
// work happens.
func ReadItems(r io.Reader) ([]types.QuestionItem, error) {
	var items []types.QuestionItem
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item types.QuestionItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("line %d: invalid item: %w", lineNo, err)
		}
		if item.ID == "" {
			return nil, fmt.Errorf("line %d: item missing id", lineNo)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}
	return items, nil
}

// ReadItemsFile reads question items from the file at path.
func ReadItemsFile(path string) ([]types.QuestionItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()
	return ReadItems(f)
}

// WriteAnswers emits one JSON line per answer, in input order.
func WriteAnswers(w io.Writer, answers []types.Answer) error {
	enc := json.NewEncoder(w)
	for _, a := range answers {
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("failed to write answer %s: %w", a.ID, err)
		}
	}
	return nil
}

// WriteAnswersFile writes answers to the file at path, truncating any
// previous contents.
func WriteAnswersFile(path string, answers []types.Answer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	return WriteAnswers(f, answers)
}
