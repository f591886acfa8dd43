package model

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/leafscan/internal/disease"
)

// LoadLabels reads a class list from a JSON array (.json) or a text file
// with one label per line.
func LoadLabels(path string) ([]disease.Label, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	var names []string
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	} else {
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				names = append(names, line)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("scan labels: %w", err)
		}
	}

	labels := make([]disease.Label, len(names))
	for i, n := range names {
		l, err := disease.Parse(n)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", i, err)
		}
		labels[i] = l
	}
	return labels, nil
}

// columnRemap returns, for each vocabulary position, the model output column
// holding that label. The labels must be a permutation of the vocabulary.
func columnRemap(labels []disease.Label) ([]int, error) {
	if len(labels) != disease.NumClasses {
		return nil, fmt.Errorf("expected %d labels, got %d", disease.NumClasses, len(labels))
	}
	remap := make([]int, disease.NumClasses)
	for i := range remap {
		remap[i] = -1
	}
	for col, l := range labels {
		idx, ok := disease.Index(l)
		if !ok {
			return nil, fmt.Errorf("unknown label %q", l)
		}
		if remap[idx] >= 0 {
			return nil, fmt.Errorf("duplicate label %q", l)
		}
		remap[idx] = col
	}
	return remap, nil
}
