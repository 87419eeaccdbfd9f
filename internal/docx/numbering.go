// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"encoding/xml"
	"io"
	"strconv"
)

// numbering resolves Word list definitions to list kinds. The numbering
// part maps concrete numIds to abstract definitions, which carry a number
// format per indentation level.
type numbering struct {
	formats map[string]map[int]string // numId -> ilvl -> numFmt
}

// ordered reports whether the given list level renders ordered items.
// Unknown definitions default to unordered, which is also how documents
// without a numbering part degrade.
func (n numbering) ordered(numID string, ilvl int) bool {
	levels, ok := n.formats[numID]
	if !ok {
		return false
	}
	format, ok := levels[ilvl]
	if !ok {
		return false
	}
	return format != "bullet" && format != "none"
}

// parseNumbering reads word/numbering.xml. Only abstractNum/lvl/numFmt and
// num/abstractNumId are consulted; level overrides inside num elements are
// ignored.
func parseNumbering(r io.Reader) (numbering, error) {
	dec := xml.NewDecoder(r)
	abstract := map[string]map[int]string{}
	concrete := map[string]string{}

	var curAbstract string
	var curLevel int
	var curNumID string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return numbering{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "abstractNum":
				curAbstract = attr(t, "abstractNumId")
				abstract[curAbstract] = map[int]string{}
			case "lvl":
				if curAbstract != "" {
					curLevel, _ = strconv.Atoi(attr(t, "ilvl"))
				}
			case "numFmt":
				if curAbstract != "" {
					abstract[curAbstract][curLevel] = attr(t, "val")
				}
			case "num":
				curNumID = attr(t, "numId")
			case "abstractNumId":
				if curNumID != "" {
					concrete[curNumID] = attr(t, "val")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "abstractNum":
				curAbstract = ""
			case "num":
				curNumID = ""
			}
		}
	}

	formats := make(map[string]map[int]string, len(concrete))
	for numID, abstractID := range concrete {
		if levels, ok := abstract[abstractID]; ok {
			formats[numID] = levels
		}
	}
	return numbering{formats: formats}, nil
}
