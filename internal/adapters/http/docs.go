package httpadapter

import (
	"bytes"
	_ "embed"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed api.md
var apiMarkdown []byte

const docsHead = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Alina Support Bot API</title></head>
<body>
`

const docsTail = `</body>
</html>
`

// renderDocs converts the embedded API reference to an HTML page.
func renderDocs() []byte {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert(apiMarkdown, &body); err != nil {
		body.Reset()
		body.WriteString("<pre>")
		body.Write(apiMarkdown)
		body.WriteString("</pre>")
	}

	var page bytes.Buffer
	page.WriteString(docsHead)
	page.Write(body.Bytes())
	page.WriteString(docsTail)
	return page.Bytes()
}
