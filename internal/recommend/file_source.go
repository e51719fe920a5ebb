package recommend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/storage"
)

var _ domain.RouteSource = (*FileSource)(nil)

// FileSource reads recommendation exports from an artifact store:
// a CSV with header customer_id,route_1,...,route_N and a JSON array
// holding the fallback list.
type FileSource struct {
	store        storage.Store
	topRoutes    string
	fallbackFile string
}

func NewFileSource(store storage.Store, topRoutes, fallbackFile string) *FileSource {
	return &FileSource{store: store, topRoutes: topRoutes, fallbackFile: fallbackFile}
}

func (s *FileSource) TopRoutes(ctx context.Context) (map[string][]string, error) {
	rc, err := s.store.Get(ctx, s.topRoutes)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadTopRoutes(rc)
}

func (s *FileSource) FallbackRoutes(ctx context.Context) ([]string, error) {
	data, err := storage.ReadAll(ctx, s.store, s.fallbackFile)
	if err != nil {
		return nil, err
	}
	var routes []string
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("recommend: failed to decode %s: %w", s.fallbackFile, err)
	}
	return routes, nil
}

// ReadTopRoutes parses the wide CSV export. Empty route cells are skipped.
func ReadTopRoutes(r io.Reader) (map[string][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("recommend: failed to read header: %w", err)
	}
	if len(header) < 2 || strings.TrimSpace(header[0]) != "customer_id" {
		return nil, errors.New("recommend: header must start with customer_id followed by route columns")
	}

	out := make(map[string][]string)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("recommend: failed to read row: %w", err)
		}
		id := strings.TrimSpace(rec[0])
		if id == "" {
			continue
		}
		routes := make([]string, 0, len(rec)-1)
		for _, cell := range rec[1:] {
			if cell = strings.TrimSpace(cell); cell != "" {
				routes = append(routes, cell)
			}
		}
		out[id] = routes
	}
	return out, nil
}
