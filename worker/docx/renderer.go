package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	godocx "github.com/fumiama/go-docx"
	docxtpl "github.com/lukasjarosch/go-docx"
	"go.uber.org/zap"
)

var (
	ErrTemplateFetch  = errors.New("template fetch failed")
	ErrTemplateRender = errors.New("template render failed")
	ErrRender         = errors.New("docx render failed")
)

var blankLine = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits manuscript text on blank-line boundaries, trimming
// each paragraph and dropping empty ones.
func SplitParagraphs(text string) []string {
	var out []string
	for _, p := range blankLine.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Renderer produces the DOCX artifact for a job, either from a journal
// template or as a plain formatted document.
type Renderer struct {
	logger *zap.Logger
	client *http.Client
}

func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *Renderer) Render(ctx context.Context, contentText string, mapping map[string]any, templateURL string) ([]byte, error) {
	if templateURL != "" {
		return r.renderTemplate(ctx, contentText, mapping, templateURL)
	}
	return r.renderPlain(contentText)
}

// renderPlain builds a justified Times New Roman 12pt document, one block per
// paragraph. An empty manuscript still yields one empty paragraph so the
// document body is never empty.
func (r *Renderer) renderPlain(contentText string) ([]byte, error) {
	paragraphs := SplitParagraphs(contentText)

	doc := godocx.New().WithDefaultTheme()
	if len(paragraphs) == 0 {
		doc.AddParagraph()
	}
	for _, p := range paragraphs {
		para := doc.AddParagraph().Justification("both")
		// Size is in half-points: 24 is 12pt.
		para.AddText(p).Size("24").Font("Times New Roman", "Times New Roman", "Times New Roman", "")
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	r.logger.Info("Plain DOCX rendered",
		zap.Int("paragraphs", len(paragraphs)),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

// renderTemplate fetches the journal template and substitutes {placeholder}
// tokens: content is bound to the manuscript text, mapping entries are merged
// in as additional bindings.
func (r *Renderer) renderTemplate(ctx context.Context, contentText string, mapping map[string]any, templateURL string) ([]byte, error) {
	raw, err := r.fetchTemplate(ctx, templateURL)
	if err != nil {
		return nil, err
	}

	doc, err := docxtpl.OpenBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: open template: %v", ErrTemplateRender, err)
	}

	values := docxtpl.PlaceholderMap{"content": contentText}
	for k, v := range mapping {
		values[k] = v
	}

	if err := doc.ReplaceAll(values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	if name, ok := unboundPlaceholder(buf.Bytes()); ok {
		return nil, fmt.Errorf("%w: unbound placeholder {%s}", ErrTemplateRender, name)
	}

	r.logger.Info("Template DOCX rendered",
		zap.String("template_url", templateURL),
		zap.Int("bindings", len(values)),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}

func (r *Renderer) fetchTemplate(ctx context.Context, templateURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, templateURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateFetch, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d from %s", ErrTemplateFetch, resp.StatusCode, templateURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTemplateFetch, err)
	}
	return data, nil
}

var (
	xmlTags            = regexp.MustCompile(`<[^>]*>`)
	placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_.-]+)\}`)
)

// unboundPlaceholder scans the rendered document for a leftover {token}.
// Headers and footers carry placeholders too, so every text part is checked.
// A template that references a binding we never supplied must fail the job
// instead of shipping the token to the client.
func unboundPlaceholder(docxBytes []byte) (string, bool) {
	zr, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		return "", false
	}

	for _, f := range zr.File {
		if !placeholderPart(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		text := xmlTags.ReplaceAllString(string(data), "")
		if m := placeholderPattern.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func placeholderPart(name string) bool {
	if name == "word/document.xml" {
		return true
	}
	if !strings.HasSuffix(name, ".xml") {
		return false
	}
	return strings.HasPrefix(name, "word/header") || strings.HasPrefix(name, "word/footer")
}
