// Package snapshot renders a widget page to a raster image with a headless
// browser.
package snapshot

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Format is an output image format.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpg"
)

// ParseFormat maps a file extension or flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// Selector is the element captured from the page.
const Selector = ".timeline-view"

// Options tunes a capture.
type Options struct {
	Width   int
	Height  int
	Quality int
	Timeout time.Duration
	// ExecPath overrides the browser binary.
	ExecPath string
	Logger   Logger
}

// Logger receives progress messages. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

func (o Options) logf(format string, v ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, v...)
	}
}

// Capture loads page in a headless browser and returns a PNG screenshot
// of the widget element.
func Capture(ctx context.Context, page string, opts Options) ([]byte, error) {
	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(page))

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
	)
	if opts.Width > 0 && opts.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var buf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(dataURI),
		chromedp.WaitVisible(Selector, chromedp.ByQuery),
		chromedp.Screenshot(Selector, &buf, chromedp.ByQuery),
	}

	opts.logf("[DEBUG] capturing %s (%d bytes of markup)", Selector, len(page))
	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return nil, fmt.Errorf("capturing snapshot: %w", err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("capturing snapshot: empty screenshot")
	}
	return buf, nil
}

// Encode writes a PNG screenshot to w in the requested format.
func Encode(w io.Writer, shot []byte, format Format, quality int) error {
	switch format {
	case PNG:
		if _, err := io.Copy(w, bytes.NewReader(shot)); err != nil {
			return fmt.Errorf("writing png: %w", err)
		}
		return nil

	case JPEG:
		img, err := png.Decode(bytes.NewReader(shot))
		if err != nil {
			return fmt.Errorf("decoding screenshot: %w", err)
		}
		if quality < 1 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("encoding jpeg: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported image format %q", format)
	}
}

// Render captures page and writes it to w as format.
func Render(ctx context.Context, w io.Writer, page string, format Format, opts Options) error {
	shot, err := Capture(ctx, page, opts)
	if err != nil {
		return err
	}
	if err := Encode(w, shot, format, opts.Quality); err != nil {
		return err
	}
	opts.logf("[INFO] wrote %s snapshot", strings.ToUpper(string(format)))
	return nil
}
