// Package document loads invoice files: the kind and stage of the document
// plus its domain attribute tree, optionally with line items kept in a
// separate CSV or XLSX file.
//
//	kind: domestic
//	stage: proforma
//	items_file: items.csv
//	invoice:
//	  issue_date: 2024-03-05
//	  type: gross
//	  customer:
//	    name: ACME
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/ifirma-client/internal/config"
	"github.com/ginjaninja78/ifirma-client/internal/csvparser"
	"github.com/ginjaninja78/ifirma-client/internal/types"
	"github.com/ginjaninja78/ifirma-client/internal/xlsxparser"
)

// Extensions lists the invoice file extensions Load understands.
var Extensions = []string{".yaml", ".yml", ".json"}

// Document is one loaded invoice file.
type Document struct {
	Path       string
	Kind       types.DocumentKind
	Stage      types.DocumentStage
	Attributes map[string]any

	// ItemsFile is the resolved line item file, empty when the items are
	// inline.
	ItemsFile string
}

type file struct {
	Kind      string         `yaml:"kind" json:"kind"`
	Stage     string         `yaml:"stage" json:"stage"`
	ItemsFile string         `yaml:"items_file" json:"items_file"`
	Invoice   map[string]any `yaml:"invoice" json:"invoice"`
}

// IsDocument reports whether path has an invoice file extension.
func IsDocument(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load reads an invoice file. Line items from items_file replace any
// inline "items".
func Load(path string, items config.ItemsSettings) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice file: %w", err)
	}

	var f file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse invoice file: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse invoice file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported invoice file type %q", filepath.Ext(path))
	}

	kind, err := types.ParseDocumentKind(f.Kind)
	if err != nil {
		return nil, err
	}
	stage, err := types.ParseDocumentStage(f.Stage)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Path:       path,
		Kind:       kind,
		Stage:      stage,
		Attributes: f.Invoice,
	}
	if doc.Attributes == nil {
		doc.Attributes = map[string]any{}
	}

	if f.ItemsFile != "" {
		itemsPath := f.ItemsFile
		if !filepath.IsAbs(itemsPath) {
			itemsPath = filepath.Join(filepath.Dir(path), itemsPath)
		}
		rows, err := LoadItems(itemsPath, items)
		if err != nil {
			return nil, fmt.Errorf("failed to load items from %s: %w", f.ItemsFile, err)
		}
		doc.ItemsFile = itemsPath
		doc.Attributes["items"] = rows.Items()
	}

	return doc, nil
}

// LoadItems reads a CSV or XLSX line item file.
func LoadItems(path string, settings config.ItemsSettings) (*csvparser.ItemsData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return csvparser.Parse(path, settings)
	case ".xlsx", ".xlsm":
		return xlsxparser.Parse(path, settings)
	default:
		return nil, fmt.Errorf("unsupported items file type %q", filepath.Ext(path))
	}
}
