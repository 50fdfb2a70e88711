package document

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// placeholderName name component used when the patient name is empty
const placeholderName = "noname"

// documentExtension file extension of a document
const documentExtension = ".md"

/*
DocumentName compute the document name of a record

The name is "<YYYY-MM-DD>_<sanitized patient name>.md". When an earlier attempt
collided with an existing document, attempt n > 0 appends "_<n+1>" to the name.

	@param created time.Time - record creation time
	@param patientName string - patient name
	@param attempt int - naming attempt, starting from 0
	@returns the document name
*/
func DocumentName(created time.Time, patientName string, attempt int) string {
	name := fmt.Sprintf("%s_%s", created.Format("2006-01-02"), SanitizeNameComponent(patientName))
	if attempt > 0 {
		name = fmt.Sprintf("%s_%d", name, attempt+1)
	}
	return name + documentExtension
}

// SanitizeNameComponent make a string safe to use as part of a file or object name
func SanitizeNameComponent(raw string) string {
	normalized := norm.NFC.String(strings.TrimSpace(raw))
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return '_'
		case unicode.IsControl(r):
			return '_'
		case strings.ContainsRune(`\/:*?"<>|`, r):
			return '_'
		}
		return r
	}, normalized)
	if sanitized == "" {
		return placeholderName
	}
	return sanitized
}
