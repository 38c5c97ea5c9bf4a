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

// providerRecord is one entry in the provider directory file
type providerRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Active    bool     `json:"active"`
	Specialty string   `json:"specialty"`
	Services  []string `json:"services"`
}

// ProviderDirectory implements port.ProviderRegistry over a JSON
// directory file loaded once at startup.
type ProviderDirectory struct {
	providers map[string]providerRecord
	logger    *zap.Logger
}

// NewProviderDirectory loads the provider directory from a JSON file
func NewProviderDirectory(path string, logger *zap.Logger) (*ProviderDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider directory: %w", err)
	}

	var file struct {
		Providers []providerRecord `json:"providers"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse provider directory: %w", err)
	}

	providers := make(map[string]providerRecord, len(file.Providers))
	for _, p := range file.Providers {
		providers[p.ID] = p
	}

	logger.Info("Provider directory loaded",
		zap.String("path", path),
		zap.Int("providers", len(providers)))

	return &ProviderDirectory{providers: providers, logger: logger}, nil
}

// Verify checks the provider exists, is active, and offers a specialty
// matching the requested service. A provider listing no services is
// treated as a specialty match.
func (d *ProviderDirectory) Verify(ctx context.Context, providerID, requestedService string) (*entity.ProviderCheck, error) {
	check := &entity.ProviderCheck{ProviderID: providerID}

	p, ok := d.providers[providerID]
	if !ok {
		return check, nil
	}

	check.Found = true
	check.Active = p.Active
	check.Specialty = p.Specialty

	if len(p.Services) == 0 {
		check.SpecialtyMatch = true
		return check, nil
	}

	want := strings.ToLower(requestedService)
	for _, s := range p.Services {
		if strings.ToLower(s) == want {
			check.SpecialtyMatch = true
			break
		}
	}

	return check, nil
}

// Verify interface compliance
var _ port.ProviderRegistry = (*ProviderDirectory)(nil)
