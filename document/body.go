package document

import (
	"regexp"
	"strings"

	"github.com/alwitt/karte/models"
)

// Layout body layout of a document
type Layout string

const (
	// LayoutTemplate body is the fixed skeleton with empty SOAP bullets
	LayoutTemplate Layout = "template"
	// LayoutInline body carries the SOAP values inline in the bullets
	LayoutInline Layout = "inline"
	// LayoutFreeform body has no recognizable SOAP bullets
	LayoutFreeform Layout = "freeform"
)

// soapLabels SOAP bullet labels in body order
var soapLabels = []string{"S", "O", "A", "P"}

// bulletLine matches the first line of a SOAP bullet
var bulletLine = regexp.MustCompile(`^- ([SOAP]):(?: (.*))?$`)

type soapSection struct {
	label string
	value string
}

func soapSections(note models.ClinicalNote) []soapSection {
	return []soapSection{
		{label: "S", value: note.Subjective},
		{label: "O", value: note.Objective},
		{label: "A", value: note.Assessment},
		{label: "P", value: note.Plan},
	}
}

// bodyBullets SOAP bullet values found in a body, keyed by label
type bodyBullets map[string]string

// inlineValue the bullet value for a label, nil if the bullet is absent or empty
func (b bodyBullets) inlineValue(label string) *string {
	value, ok := b[label]
	if !ok || value == "" {
		return nil
	}
	return &value
}

// parseBullets collect SOAP bullets from a body
//
// A bullet value runs until the next SOAP bullet or the end of the body, so
// multi-line values written by Encode are recovered.
func parseBullets(body string) bodyBullets {
	result := bodyBullets{}
	current := ""
	var lines []string
	flush := func() {
		if current != "" {
			result[current] = strings.TrimRight(strings.Join(lines, "\n"), "\n")
		}
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if match := bulletLine.FindStringSubmatch(line); match != nil {
			if _, seen := result[match[1]]; !seen && match[1] != current {
				flush()
				current = match[1]
				lines = []string{match[2]}
				continue
			}
		}
		if current != "" {
			lines = append(lines, line)
		}
	}
	flush()
	return result
}

func detectLayout(bullets bodyBullets) Layout {
	if len(bullets) == 0 {
		return LayoutFreeform
	}
	for _, label := range soapLabels {
		if bullets[label] != "" {
			return LayoutInline
		}
	}
	return LayoutTemplate
}
