// Package document - visit record document codec
package document

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/alwitt/karte/models"
	"gopkg.in/yaml.v3"
)

// delimiter the metadata block start and end marker line
const delimiter = "---"

// bodyHeading heading line opening the body of a document
const bodyHeading = "# 記録本文"

// utf8BOM byte order mark some editors prepend
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MetadataKeys the expected metadata block keys, in write order
var MetadataKeys = []string{
	"patient_name", "patient_id", "visit_date", "prescription", "S", "O", "A", "P",
}

// ParseFailure the document does not carry a well-formed metadata block
type ParseFailure struct {
	// Reason what is wrong with the document
	Reason string
	// Err underlying parser error, if any
	Err error
}

func (e *ParseFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document parse failure: %s [%s]", e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("document parse failure: %s", e.Reason)
}

func (e *ParseFailure) Unwrap() error {
	return e.Err
}

// IsParseFailure whether the error is caused by a ParseFailure
func IsParseFailure(err error) bool {
	var pf *ParseFailure
	return errors.As(err, &pf)
}

// Parsed a decoded document
type Parsed struct {
	// Note structured fields. Fields whose key is absent are empty.
	Note models.ClinicalNote
	// Missing expected metadata keys absent from the document
	Missing []string
	// Body the text following the metadata block, verbatim
	Body string
	// Layout the recognized body layout
	Layout Layout
}

// metadataBlock metadata block as read; nil means the key was absent
type metadataBlock struct {
	PatientName  *string `yaml:"patient_name"`
	PatientID    *string `yaml:"patient_id"`
	VisitDate    *string `yaml:"visit_date"`
	Prescription *string `yaml:"prescription"`
	Subjective   *string `yaml:"S"`
	Objective    *string `yaml:"O"`
	Assessment   *string `yaml:"A"`
	Plan         *string `yaml:"P"`
}

/*
Encode serialize a clinical note into a document

The document is decoded again before it is returned; a note whose fields would not come
back unchanged is refused.

	@param note models.ClinicalNote - the note
	@returns the document content
*/
func Encode(note models.ClinicalNote) ([]byte, error) {
	block, err := yaml.Marshal(metadataNode(note))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata block [%w]", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(block)
	buf.WriteString(delimiter + "\n")
	buf.WriteString("\n" + bodyHeading + "\n\n")
	for _, section := range soapSections(note) {
		fmt.Fprintf(&buf, "- %s: %s\n", section.label, section.value)
	}

	parsed, err := Decode(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("encoded document does not decode [%w]", err)
	}
	if parsed.Note != note {
		return nil, fmt.Errorf("encoded document does not reproduce the note")
	}
	return buf.Bytes(), nil
}

// metadataNode the metadata block of a note as a YAML mapping, keys in write order
func metadataNode(note models.ClinicalNote) *yaml.Node {
	values := []string{
		note.PatientName,
		note.PatientID,
		note.VisitDate,
		note.Prescription,
		note.Subjective,
		note.Objective,
		note.Assessment,
		note.Plan,
	}
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for idx, key := range MetadataKeys {
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{
				Kind: yaml.ScalarNode, Tag: "!!str", Value: values[idx], Style: valueStyle(values[idx]),
			},
		)
	}
	return mapping
}

// forceQuoteChars characters a block scalar can not carry unchanged
const forceQuoteChars = "\t\r\u0085\u2028\u2029\ufeff"

// valueStyle pick the scalar style of a metadata value
//
// Multi-line values are written as literal blocks when every line survives block
// indentation unchanged, and double quoted otherwise. Zero lets the emitter choose
// between plain and quoted for single line values.
func valueStyle(value string) yaml.Style {
	if strings.ContainsAny(value, forceQuoteChars) {
		return yaml.DoubleQuotedStyle
	}
	if !strings.Contains(value, "\n") {
		if strings.TrimSpace(value) != value {
			return yaml.DoubleQuotedStyle
		}
		return 0
	}
	if strings.HasPrefix(value, "\n") || strings.HasPrefix(value, " ") ||
		strings.HasSuffix(value, "\n\n") {
		return yaml.DoubleQuotedStyle
	}
	for _, line := range strings.Split(strings.TrimSuffix(value, "\n"), "\n") {
		if strings.TrimRight(line, " ") != line {
			return yaml.DoubleQuotedStyle
		}
	}
	return yaml.LiteralStyle
}

/*
Decode parse a document into its structured fields and body

The metadata block must open on the first line and close at the first following line
that is exactly the delimiter. Encode never emits a value line that is exactly the
delimiter, and refuses any document it can not decode back to the same note.

	@param content []byte - the document content
	@returns the parsed document
*/
func Decode(content []byte) (Parsed, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	firstLine, rest, found := cutLine(content)
	if !isDelimiterLine(firstLine) {
		return Parsed{}, &ParseFailure{Reason: "metadata block start marker missing"}
	}
	if !found {
		return Parsed{}, &ParseFailure{Reason: "metadata block end marker missing"}
	}

	// Find the end marker
	var block []byte
	var body []byte
	closed := false
	remaining := rest
	offset := 0
	for len(remaining) > 0 {
		line, next, _ := cutLine(remaining)
		if isDelimiterLine(line) {
			block = rest[:offset]
			body = next
			closed = true
			break
		}
		offset += len(remaining) - len(next)
		remaining = next
	}
	if !closed {
		return Parsed{}, &ParseFailure{Reason: "metadata block end marker missing"}
	}

	var meta metadataBlock
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return Parsed{}, &ParseFailure{Reason: "metadata block is not a valid mapping", Err: err}
	}

	bullets := parseBullets(string(body))
	parsed := Parsed{Body: string(body), Layout: detectLayout(bullets)}

	take := func(key string, value *string, fallback *string) string {
		if value != nil {
			return *value
		}
		if fallback != nil {
			return *fallback
		}
		parsed.Missing = append(parsed.Missing, key)
		return ""
	}
	parsed.Note = models.ClinicalNote{
		PatientName:  take("patient_name", meta.PatientName, nil),
		PatientID:    take("patient_id", meta.PatientID, nil),
		VisitDate:    take("visit_date", meta.VisitDate, nil),
		Prescription: take("prescription", meta.Prescription, nil),
		Subjective:   take("S", meta.Subjective, bullets.inlineValue("S")),
		Objective:    take("O", meta.Objective, bullets.inlineValue("O")),
		Assessment:   take("A", meta.Assessment, bullets.inlineValue("A")),
		Plan:         take("P", meta.Plan, bullets.inlineValue("P")),
	}

	return parsed, nil
}

// cutLine split off the first line, without its line terminator
func cutLine(content []byte) (line []byte, rest []byte, found bool) {
	line, rest, found = bytes.Cut(content, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, found
}

func isDelimiterLine(line []byte) bool {
	return string(line) == delimiter
}
