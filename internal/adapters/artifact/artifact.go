// Package artifact loads the persisted normalizer and classifier that back
// the risk scorer.
package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/internal/domain/scoring"
)

// Supported estimator kinds.
const (
	ScalerStandard     = "standard"
	ScalerMinMax       = "minmax"
	ClassifierLogistic = "logistic"
)

// document mirrors the YAML layout of a model bundle.
type document struct {
	Version    string        `koanf:"version"`
	Features   []string      `koanf:"features"`
	Scaler     scalerDoc     `koanf:"scaler"`
	Classifier classifierDoc `koanf:"classifier"`
}

type scalerDoc struct {
	Kind  string    `koanf:"kind"`
	Mean  []float64 `koanf:"mean"`
	Scale []float64 `koanf:"scale"`
	Min   []float64 `koanf:"min"`
}

type classifierDoc struct {
	Kind         string    `koanf:"kind"`
	Coefficients []float64 `koanf:"coefficients"`
	Intercept    float64   `koanf:"intercept"`
}

// Bundle is a loaded, immutable model: one normalizer and one classifier fit
// on model.FeatureNames.
type Bundle struct {
	version    string
	path       string
	normalizer scoring.Normalizer
	classifier scoring.Classifier
}

// Version identifies the artifact.
func (b *Bundle) Version() string { return b.version }

// Path is the file the bundle was read from.
func (b *Bundle) Path() string { return b.path }

// Normalizer returns the fitted scaler.
func (b *Bundle) Normalizer() scoring.Normalizer { return b.normalizer }

// Classifier returns the fitted classifier.
func (b *Bundle) Classifier() scoring.Classifier { return b.classifier }

// Load reads and validates a model bundle from a YAML file.
func Load(_ context.Context, path string) (*Bundle, error) {
	const op = "artifact.load"

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrLoadArtifact, err)
	}

	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrLoadArtifact, err)
	}

	b, err := build(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}
	b.path = path
	return b, nil
}

func build(doc document) (*Bundle, error) {
	if strings.TrimSpace(doc.Version) == "" {
		return nil, invalid("version must not be empty")
	}
	if err := checkFeatureOrder(doc.Features); err != nil {
		return nil, err
	}

	normalizer, err := buildScaler(doc.Scaler)
	if err != nil {
		return nil, err
	}
	classifier, err := buildClassifier(doc.Classifier)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		version:    doc.Version,
		normalizer: normalizer,
		classifier: classifier,
	}, nil
}

// checkFeatureOrder rejects artifacts fit on a different column order.
func checkFeatureOrder(names []string) error {
	if len(names) != model.FeatureCount {
		return invalid(fmt.Sprintf("expected %d features, got %d", model.FeatureCount, len(names)))
	}
	for i, name := range names {
		if name != model.FeatureNames[i] {
			return invalid(fmt.Sprintf("feature %d is %q, expected %q", i, name, model.FeatureNames[i]))
		}
	}
	return nil
}

func buildScaler(doc scalerDoc) (scoring.Normalizer, error) {
	switch strings.ToLower(doc.Kind) {
	case ScalerStandard:
		mean, err := vector("scaler.mean", doc.Mean)
		if err != nil {
			return nil, err
		}
		scale, err := vector("scaler.scale", doc.Scale)
		if err != nil {
			return nil, err
		}
		return &StandardScaler{Mean: mean, Scale: scale}, nil
	case ScalerMinMax:
		scale, err := vector("scaler.scale", doc.Scale)
		if err != nil {
			return nil, err
		}
		minimum, err := vector("scaler.min", doc.Min)
		if err != nil {
			return nil, err
		}
		return &MinMaxScaler{Scale: scale, Min: minimum}, nil
	default:
		return nil, invalid(fmt.Sprintf("unsupported scaler kind %q", doc.Kind))
	}
}

func buildClassifier(doc classifierDoc) (scoring.Classifier, error) {
	switch strings.ToLower(doc.Kind) {
	case ClassifierLogistic:
		coef, err := vector("classifier.coefficients", doc.Coefficients)
		if err != nil {
			return nil, err
		}
		return &LogisticRegression{Coefficients: coef, Intercept: doc.Intercept}, nil
	default:
		return nil, invalid(fmt.Sprintf("unsupported classifier kind %q", doc.Kind))
	}
}

func vector(name string, values []float64) (model.FeatureVector, error) {
	var v model.FeatureVector
	if len(values) != model.FeatureCount {
		return v, invalid(fmt.Sprintf("%s: expected %d values, got %d", name, model.FeatureCount, len(values)))
	}
	copy(v[:], values)
	return v, nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArtifact, msg)
}
