package document

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

/*
RenderHTML render a document body from Markdown into HTML

	@param body string - document body
	@returns the HTML
*/
func RenderHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("failed to render document body [%w]", err)
	}
	return buf.String(), nil
}
