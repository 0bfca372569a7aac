package client

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

var (
	ErrEmptyDocument = errors.New("catalog document is empty")
	ErrUnknownFormat = errors.New("unknown catalog document format")
)

// ParseFormat maps a configured format name to a Format; "" means detect.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return "", nil
	case "xml":
		return FormatXML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// DetectFormat picks a format from the source name, falling back to the first
// significant byte of the payload.
func DetectFormat(source string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(source)) {
	case ".xml":
		return FormatXML, nil
	case ".json":
		return FormatJSON, nil
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) == 0 {
		return "", ErrEmptyDocument
	}

	switch trimmed[0] {
	case '<':
		return FormatXML, nil
	case '{':
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: payload starts with %q", ErrUnknownFormat, trimmed[0])
	}
}

// DecodeDocument turns raw bytes into the unvalidated document tree.
func DecodeDocument(data []byte, format Format) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	if format == "" {
		detected, err := DetectFormat("", data)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	doc := &Document{Format: format}

	switch format {
	case FormatXML:
		if err := xml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode XML catalog: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode JSON catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	log.Debugf("Decoded %s catalog document with %d services", format, len(doc.Services))
	return doc, nil
}
