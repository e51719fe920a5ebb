package clusters

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/growthlab/backend/internal/domain"
)

// Accepted header names per column. The second spelling is the one written by
// the segmentation notebooks.
var (
	customerColumn  = []string{"customer_id", "fk_contact"}
	clusterColumn   = []string{"cluster", "grupo"}
	countColumn     = []string{"customer_count", "qtd"}
	recencyColumn   = []string{"mean_recency", "recency_mean"}
	frequencyColumn = []string{"mean_frequency", "frequency_mean"}
	monetaryColumn  = []string{"mean_monetary", "monetary_mean"}
)

// ReadAssignments reads a customer_id,cluster snapshot. A customer listed
// twice keeps its last cluster.
func ReadAssignments(r io.Reader) (map[string]string, error) {
	cr, header, err := open(r)
	if err != nil {
		return nil, err
	}
	idIdx, err := header.index(customerColumn)
	if err != nil {
		return nil, err
	}
	clIdx, err := header.index(clusterColumn)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("clusters: failed to read assignments: %w", err)
		}
		id := strings.TrimSpace(rec[idIdx])
		if id == "" {
			continue
		}
		out[id] = strings.TrimSpace(rec[clIdx])
	}
	return out, nil
}

// ReadAggregates reads the per-cluster summary table in file order.
func ReadAggregates(r io.Reader) ([]domain.ClusterAggregate, error) {
	cr, header, err := open(r)
	if err != nil {
		return nil, err
	}
	idx := make([]int, 5)
	for i, names := range [][]string{clusterColumn, countColumn, recencyColumn, frequencyColumn, monetaryColumn} {
		if idx[i], err = header.index(names); err != nil {
			return nil, err
		}
	}

	var out []domain.ClusterAggregate
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("clusters: failed to read aggregates: %w", err)
		}

		a := domain.ClusterAggregate{Cluster: strings.TrimSpace(rec[idx[0]])}
		count, err := parseFloat(rec[idx[1]])
		if err != nil {
			return nil, fmt.Errorf("clusters: line %d: customer count: %w", line, err)
		}
		a.CustomerCount = int(count)
		if a.MeanRecency, err = parseFloat(rec[idx[2]]); err != nil {
			return nil, fmt.Errorf("clusters: line %d: recency: %w", line, err)
		}
		if a.MeanFrequency, err = parseFloat(rec[idx[3]]); err != nil {
			return nil, fmt.Errorf("clusters: line %d: frequency: %w", line, err)
		}
		if a.MeanMonetary, err = parseFloat(rec[idx[4]]); err != nil {
			return nil, fmt.Errorf("clusters: line %d: monetary: %w", line, err)
		}
		out = append(out, a)
	}
	return out, nil
}

type header map[string]int

func open(r io.Reader) (*csv.Reader, header, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	names, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("clusters: empty csv")
		}
		return nil, nil, fmt.Errorf("clusters: failed to read header: %w", err)
	}

	h := make(header, len(names))
	for i, n := range names {
		n = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(n, "\ufeff")))
		if _, dup := h[n]; !dup {
			h[n] = i
		}
	}
	return cr, h, nil
}

func (h header) index(names []string) (int, error) {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i, nil
		}
	}
	return 0, fmt.Errorf("clusters: missing column %q", names[0])
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
