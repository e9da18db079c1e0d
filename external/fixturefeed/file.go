package fixturefeed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/fixture"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"gopkg.in/yaml.v3"
)

// FileSource reads a schedule file (.json, .yaml or .yml) on every call, so edits are picked
// up between runs.
type FileSource struct {
	path   string
	logger *logging.Logger
}

func NewFileSource(path string, logger *logging.Logger) *FileSource {
	if logger == nil {
		logger = logging.Default()
	}
	return &FileSource{path: strings.TrimSpace(path), logger: logger}
}

func (s *FileSource) ListFixtures(ctx context.Context, query fixture.Query) ([]fixture.Fixture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.path == "" {
		return nil, fmt.Errorf("%w: fixture file path is not configured", usecase.ErrSourceUnavailable)
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, crerr.Mark(crerr.Wrapf(err, "read fixture file %s", s.path), usecase.ErrSourceUnavailable)
	}

	var records []record
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		records, err = decodeYAML(raw)
	default:
		records, err = decodeFeed(raw)
	}
	if err != nil {
		return nil, crerr.Mark(crerr.Wrapf(err, "decode fixture file %s", s.path), usecase.ErrSourceUnavailable)
	}

	fixtures, skipped := assemble(records, query)
	for _, skipErr := range skipped {
		s.logger.WarnContext(ctx, "skip invalid fixture from file", "path", s.path, "error", skipErr)
	}
	return fixtures, nil
}

func decodeYAML(raw []byte) ([]record, error) {
	var env envelope
	if err := yaml.Unmarshal(raw, &env); err == nil {
		return env.Fixtures, nil
	}
	var records []record
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}
