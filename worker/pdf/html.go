package pdf

import (
	"regexp"
	"strings"
)

var blankLine = regexp.MustCompile(`\n\s*\n`)

// escaper neutralizes markup in manuscript text. Escaping & as well as <
// keeps entity-looking sequences literal.
var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;")

const (
	htmlHead = `<!doctype html><html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<style>
@page{margin:2.54cm}
body{margin:2.54cm;font-family:"Times New Roman",serif;font-size:12pt;line-height:1.5;color:#0a0a0a}
.paper p{text-align:justify;margin:0 0 12pt 0;text-indent:1.27cm}
</style></head><body><div class="paper">`
	htmlTail = `</div></body></html>`
)

// BuildHTML renders the print intermediate: a standalone page with one <p>
// per blank-line-delimited paragraph and fixed manuscript styling.
func BuildHTML(contentText string) string {
	var b strings.Builder
	b.WriteString(htmlHead)
	for _, p := range splitParagraphs(contentText) {
		b.WriteString("<p>")
		b.WriteString(escaper.Replace(p))
		b.WriteString("</p>")
	}
	b.WriteString(htmlTail)
	return b.String()
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range blankLine.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
