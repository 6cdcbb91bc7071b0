package island

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"
	"github.com/pelletier/go-toml/v2"

	"workshop-optimizer/internal/gamedata"
)

// Load reads settings from a TOML file. A missing file yields New(). Values
// that do not fit the data set are clamped or dropped rather than failing.
func Load(path string, d *gamedata.Data, logger *slog.Logger) (*Island, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("island: no settings file, using defaults", "path", path)
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("island: read %s: %w", path, err)
	}

	is := &Island{}
	if err := toml.Unmarshal(raw, is); err != nil {
		return nil, fmt.Errorf("island: parse %s: %w", path, err)
	}
	is.sanitize(d, logger)
	return is, nil
}

// FromJSON decodes settings sent by a client, using the compact field names
// of the JSON encoding. Empty input yields New(). Values are sanitized as in
// Load.
func FromJSON(raw []byte, d *gamedata.Data, logger *slog.Logger) (*Island, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return New(), nil
	}
	is := &Island{}
	if err := json.Unmarshal(raw, is); err != nil {
		return nil, fmt.Errorf("island: decode: %w", err)
	}
	is.sanitize(d, logger)
	return is, nil
}

// Save writes settings to path atomically.
func (is *Island) Save(path string) error {
	data, err := toml.Marshal(is)
	if err != nil {
		return fmt.Errorf("island: encode: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("island: write %s: %w", path, err)
	}
	return nil
}
