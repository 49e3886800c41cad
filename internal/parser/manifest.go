package parser

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conorfennell/knoldeck/internal/validation"
)

// ManifestFile is the name of a deck's manifest inside its source directory.
const ManifestFile = "deck.yaml"

// Manifest describes a deck: its fields, templates and optionally some
// inline notes. Further notes come from markdown files next to it.
type Manifest struct {
	ID        string            `yaml:"id" validate:"required"`
	IDNum     int64             `yaml:"id_num" validate:"gte=0"`
	Name      string            `yaml:"name"`
	Desc      string            `yaml:"desc"`
	Fields    []string          `yaml:"fields" validate:"required,min=1,unique,dive,required"`
	Watch     []string          `yaml:"watch" validate:"unique"`
	Meta      map[string]string `yaml:"meta"`
	Templates []TemplateSpec    `yaml:"templates" validate:"dive"`
	Notes     []NoteSpec        `yaml:"notes" validate:"dive"`
	// NoteFiles lists glob patterns, relative to the manifest, of markdown
	// note files. Defaults to every *.md file under the directory.
	NoteFiles []string `yaml:"note_files"`
}

// TemplateSpec is a template entry of a manifest.
type TemplateSpec struct {
	ID       string `yaml:"id" validate:"required"`
	Question string `yaml:"question" validate:"required"`
	Answer   string `yaml:"answer" validate:"required"`
	Type     string `yaml:"type" validate:"omitempty,oneof=basic reverse cloze"`
	Style    string `yaml:"style"`
}

// NoteSpec is an inline note. Keys other than id and templates are content.
type NoteSpec struct {
	ID        string            `yaml:"id" validate:"required"`
	Templates []string          `yaml:"templates"`
	Content   map[string]string `yaml:",inline"`
}

// ParseManifestFile reads and validates the manifest at path.
func ParseManifestFile(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m, err := ParseManifest(file)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	v, err := validation.New("yaml")
	if err != nil {
		return nil, err
	}
	if err := v.Struct(m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Records converts the manifest's inline notes to NoteRecords.
func (m *Manifest) Records() []NoteRecord {
	records := make([]NoteRecord, 0, len(m.Notes))
	for _, n := range m.Notes {
		records = append(records, NoteRecord{ID: n.ID, Content: n.Content, Templates: n.Templates})
	}
	return records
}
