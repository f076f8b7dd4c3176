package omeconfig

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrLegacyBindTag indicates a rendered document still carries the
// deprecated <Server.bind> spelling.
var ErrLegacyBindTag = errors.New("document contains <Server.bind> tags; use <Bind> instead")

// Validate performs a structural sanity check on a rendered document.
//
// It token-decodes the XML, rejects leftover legacy <Server.bind>
// spellings, and requires a root-level <Type> equal to "origin", which
// catches misconfigurations that would break origin-mode APIs. It is an
// opt-in pass; the renderer itself never parses the document.
func Validate(doc []byte) error {
	if bytes.Contains(doc, []byte("<Server.bind>")) || bytes.Contains(doc, []byte("</Server.bind>")) {
		return ErrLegacyBindTag
	}

	decoder := xml.NewDecoder(bytes.NewReader(doc))
	depth := 0
	var serverType string

	for {
		tok, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("parse document: %w", err)
		}

		switch element := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && element.Name.Local == "Type" {
				var value string
				if err := decoder.DecodeElement(&value, &element); err != nil {
					return fmt.Errorf("decode <Type>: %w", err)
				}
				serverType = strings.TrimSpace(value)
				depth-- // DecodeElement consumes the end tag.
			}
		case xml.EndElement:
			depth--
		}
	}

	if serverType == "" {
		return errors.New("missing root-level <Type> field")
	}
	if serverType != "origin" {
		return fmt.Errorf("unexpected <Type> %q; expected origin", serverType)
	}

	return nil
}
