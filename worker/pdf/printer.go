package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

var ErrPDFRender = errors.New("pdf render failed")

// A4 paper in inches, as the print API expects.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// Printer turns manuscript text into a paginated A4 PDF through a headless
// browser's print pipeline. Browser and page are created and torn down per
// job so a wedged render cannot leak into the next one.
type Printer struct {
	logger    *zap.Logger
	bin       string
	noSandbox bool
	timeout   time.Duration
}

func NewPrinter(logger *zap.Logger, bin string, noSandbox bool, timeout time.Duration) *Printer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Printer{
		logger:    logger,
		bin:       bin,
		noSandbox: noSandbox,
		timeout:   timeout,
	}
}

func (p *Printer) Render(ctx context.Context, contentText string) ([]byte, error) {
	html := BuildHTML(contentText)

	l := launcher.New().Headless(true)
	if p.bin != "" {
		l = l.Bin(p.bin)
	}
	if p.noSandbox {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch browser: %v", ErrPDFRender, err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect browser: %v", ErrPDFRender, err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: open page: %v", ErrPDFRender, err)
	}
	defer page.Close()

	// The document is static HTML with no external resources, so having the
	// content set is the readiness signal; no network-idle wait.
	page = page.Timeout(p.timeout)
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("%w: load content: %v", ErrPDFRender, err)
	}

	width, height := a4Width, a4Height
	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		PaperWidth:      &width,
		PaperHeight:     &height,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: print: %v", ErrPDFRender, err)
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: read stream: %v", ErrPDFRender, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrPDFRender)
	}

	p.logger.Info("PDF rendered", zap.Int("bytes", len(data)))
	return data, nil
}
