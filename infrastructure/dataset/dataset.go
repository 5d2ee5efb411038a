package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/santiagotion/sentinel-sub001/application/queries"
	"github.com/santiagotion/sentinel-sub001/application/services"
	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
)

// Format is a dataset file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Dataset is every record a visualization can be built from
type Dataset struct {
	Accounts      []entities.AccountRecord      `json:"accounts" yaml:"accounts"`
	Events        []entities.EventRecord        `json:"events" yaml:"events"`
	Relationships []entities.RelationshipRecord `json:"relationships" yaml:"relationships"`
	Milestones    []entities.Milestone          `json:"milestones" yaml:"milestones"`
	Phases        []entities.Phase              `json:"phases" yaml:"phases"`
}

// FormatFor picks the format from a file extension
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", pkgerrors.NewValidationError(
			fmt.Sprintf("unsupported dataset format %q", filepath.Ext(path)),
		).WithDetail("path", path)
	}
}

// LoadFile reads a dataset from a JSON or YAML file
func LoadFile(path string) (*Dataset, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	ds, err := Load(file, format)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to load dataset %s", path)
	}
	return ds, nil
}

// Load decodes a dataset. An empty document is an empty dataset.
func Load(r io.Reader, format Format) (*Dataset, error) {
	ds := &Dataset{}

	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(ds)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(ds)
	default:
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("unsupported dataset format %q", format))
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, pkgerrors.NewValidationError("malformed dataset").WithCause(err)
	}

	ds.normalize()
	return ds, nil
}

// normalize lower-cases significance grades that name a known grade.
// Unknown grades are kept and render as minor.
func (d *Dataset) normalize() {
	for i := range d.Milestones {
		if sig, err := entities.ParseSignificance(string(d.Milestones[i].Significance)); err == nil {
			d.Milestones[i].Significance = sig
		}
	}
}

// GraphInput returns the records the force layout is built from
func (d *Dataset) GraphInput() services.GraphInput {
	return services.GraphInput{
		Accounts:      d.Accounts,
		Events:        d.Events,
		Relationships: d.Relationships,
	}
}

// TimelineQuery returns the projection query for a width x height area
func (d *Dataset) TimelineQuery(width, height float64) queries.ProjectTimelineQuery {
	return queries.ProjectTimelineQuery{
		Events:     entities.TimelineEvents(d.Events),
		Milestones: d.Milestones,
		Phases:     d.Phases,
		Width:      width,
		Height:     height,
	}
}
