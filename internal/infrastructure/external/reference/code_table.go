package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// codeRecord is one entry in the code table file
type codeRecord struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CodeTable implements port.CodeValidator over a JSON table of known
// diagnosis and procedure codes.
type CodeTable struct {
	codes  map[string]codeRecord
	logger *zap.Logger
}

// NewCodeTable loads the code table from a JSON file
func NewCodeTable(path string, logger *zap.Logger) (*CodeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load code table: %w", err)
	}

	var file struct {
		Codes []codeRecord `json:"codes"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse code table: %w", err)
	}

	codes := make(map[string]codeRecord, len(file.Codes))
	for _, c := range file.Codes {
		codes[strings.ToUpper(c.Code)] = c
	}

	logger.Info("Code table loaded",
		zap.String("path", path),
		zap.Int("codes", len(codes)))

	return &CodeTable{codes: codes, logger: logger}, nil
}

// Validate checks each code against the table, preserving input order
func (t *CodeTable) Validate(ctx context.Context, codes []string) ([]entity.CodeCheck, error) {
	checks := make([]entity.CodeCheck, 0, len(codes))
	for _, code := range codes {
		check := entity.CodeCheck{Code: code}
		if rec, ok := t.codes[strings.ToUpper(code)]; ok {
			check.Valid = true
			check.Description = rec.Description
		}
		checks = append(checks, check)
	}
	return checks, nil
}

// Verify interface compliance
var _ port.CodeValidator = (*CodeTable)(nil)
