package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/datrigen/internal/errs"
)

// Document is the on-disk and on-the-wire envelope for several schemas.
type Document struct {
	Schemas []*SchemaInfo `json:"schemas" yaml:"schemas"`
}

// LoadFile reads a metadata fixture. The format is picked from the
// extension: .json, or .yaml / .yml.
func LoadFile(path string) ([]*SchemaInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "metadata file not found", err)
		}
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read metadata file", err)
	}

	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, "unsupported metadata file extension: "+path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to decode metadata file "+path, err)
	}
	return doc.Schemas, nil
}

// Encode renders schemas in the given format ("json" or "yaml").
func Encode(format string, schemas []*SchemaInfo) ([]byte, error) {
	doc := Document{Schemas: schemas}
	switch format {
	case "json":
		return json.MarshalIndent(doc, "", "  ")
	case "yaml", "yml", "":
		return yaml.Marshal(doc)
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, "unsupported output format: "+format)
	}
}
