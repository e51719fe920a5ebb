package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"
)

// Kind selects the link function of a linear artifact.
type Kind string

const (
	KindLogistic Kind = "logistic"
	KindLinear   Kind = "linear"
)

// Artifact is the on-disk form of a linear model exported by the training
// pipeline. Features records the column order the model was fitted on.
type Artifact struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Kind         Kind      `json:"kind"`
	Features     []string  `json:"features"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// Linear scores in-process: intercept + w·x, passed through a sigmoid for
// logistic artifacts.
type Linear struct {
	artifact Artifact
}

// LoadLinear decodes an artifact and checks that its feature columns are
// exactly want, in order.
func LoadLinear(r io.Reader, want []string) (*Linear, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("model: failed to decode artifact: %w", err)
	}
	if a.Kind != KindLogistic && a.Kind != KindLinear {
		return nil, fmt.Errorf("model: artifact %q has unknown kind %q", a.Name, a.Kind)
	}
	if len(a.Coefficients) != len(a.Features) {
		return nil, fmt.Errorf("model: artifact %q has %d coefficients for %d features",
			a.Name, len(a.Coefficients), len(a.Features))
	}
	if err := checkColumns(a.Features, want); err != nil {
		return nil, fmt.Errorf("model: artifact %q: %w", a.Name, err)
	}
	return &Linear{artifact: a}, nil
}

func checkColumns(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("expects %d features, service sends %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("feature %d is %q, service sends %q", i, got[i], want[i])
		}
	}
	return nil
}

func (m *Linear) Score(_ context.Context, x []float64) (float64, error) {
	if len(x) != len(m.artifact.Coefficients) {
		return 0, errors.New("model: feature vector length mismatch")
	}
	z := m.artifact.Intercept
	for i, w := range m.artifact.Coefficients {
		z += w * x[i]
	}
	if m.artifact.Kind == KindLogistic {
		return 1 / (1 + math.Exp(-z)), nil
	}
	return z, nil
}

// Name returns "name@version" for logging.
func (m *Linear) Name() string {
	if m.artifact.Version == "" {
		return m.artifact.Name
	}
	return m.artifact.Name + "@" + m.artifact.Version
}
