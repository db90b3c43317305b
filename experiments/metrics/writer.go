package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Writer persists evaluation results in the format the leaderboard reads.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Save writes {"<phase>": mean, ...} to path, creating parent directories as
// needed. Phases without samples are written as null. A failure is logged and
// returned, never panicked.
func (w *Writer) Save(path string, acc *Accumulator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while saving: %v", r)
		}
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("unable to save the results")
		}
	}()

	if acc == nil {
		return fmt.Errorf("no accumulator to save")
	}

	data, err := json.Marshal(acc.Means())
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	path, err = filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}

	log.Info().Str("path", path).Msg("stored evaluation results")
	return nil
}

// Load reads a results file written by Save.
func Load(path string) (map[string]*float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}
	results := map[string]*float64{}
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode results file: %w", err)
	}
	return results, nil
}
