// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/sassoftware/viya-pdf-view/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// PageThumbnail is the result of processing one page.
type PageThumbnail struct {
	Page      int
	Thumbnail *Thumbnail // nil when the page has no thumbnail
	Info      PageInfo
	// Ops is the number of content operators run while displaying the page.
	Ops int
	Err error
}

// PageRenderer processes a single page.
// Different strategies handle errors differently (strict vs. best-effort).
type PageRenderer interface {
	RenderPage(ctx context.Context, page *Page) (PageThumbnail, error)
}

// StrictRenderer enforces strict parsing.
// If any page fails, the entire run fails.
type StrictRenderer struct {
	cfg *Config
}

func (s *StrictRenderer) RenderPage(ctx context.Context, page *Page) (PageThumbnail, error) {
	return renderPage(ctx, s.cfg, page)
}

// BestEffortRenderer tolerates errors.
// A failed page yields an entry carrying the error and nothing else.
type BestEffortRenderer struct {
	cfg *Config
}

func (b *BestEffortRenderer) RenderPage(ctx context.Context, page *Page) (PageThumbnail, error) {
	res, err := renderPage(ctx, b.cfg, page)
	if err != nil {
		// In best-effort mode, ignore errors and continue.
		logger.Debug("BestEffortRenderer: failed to process page, ignoring error", "page", page.Num(), "err", err, true)
		return PageThumbnail{Page: page.Num(), Err: err}, nil
	}
	return res, nil
}

// nullDevice discards all output.
type nullDevice struct{}

func (nullDevice) UpsideDown() bool     { return false }
func (nullDevice) DrawLink(Link, Value) {}
func (nullDevice) Dump()                {}

func renderPage(ctx context.Context, cfg *Config, page *Page) (PageThumbnail, error) {
	res := PageThumbnail{Page: page.Num(), Info: page.Info(cfg.DPI)}
	if !page.IsOk() {
		return res, fmt.Errorf("page %d has malformed Contents or Annots", page.Num())
	}

	var ops int
	err := page.Display(nullDevice{}, DisplayOptions{
		HDPI:       cfg.DPI,
		VDPI:       cfg.DPI,
		Crop:       true,
		AbortCheck: func() bool { return ctx.Err() != nil },
		NewGfx:     ContentGfxFactory(func(string, []Value) { ops++ }),
	})
	if err != nil {
		return res, fmt.Errorf("display page %d: %w", page.Num(), err)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Ops = ops

	thumb, err := page.LoadThumbnail(cfg.thumbnailOptions()...)
	if err != nil {
		return res, fmt.Errorf("page %d: %w", page.Num(), err)
	}
	res.Thumbnail = thumb
	return res, nil
}

// Processor runs the page pipeline over whole documents with concurrency
// control and delegates page-level work to the chosen PageRenderer.
type Processor struct {
	cfg      *Config
	sem      *semaphore.Weighted
	renderer PageRenderer
}

// NewProcessor validates the config and creates a new processor.
// Selects the correct PageRenderer (Strict or BestEffort).
func NewProcessor(cfg *Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var renderer PageRenderer
	switch cfg.ParsingMode {
	case Strict:
		renderer = &StrictRenderer{cfg: cfg}
	case BestEffort:
		renderer = &BestEffortRenderer{cfg: cfg}
	}

	logger.SetLogger(cfg.logFunc())
	logger.SetTrace(cfg.DebugOn)

	logger.Debug(fmt.Sprintf("Processor initialized: parsing_mode=%v, max_concurrent_pdfs=%d, max_workers_per_pdf=%d",
		cfg.ParsingMode, cfg.MaxConcurrentPDFs, cfg.MaxWorkersPerPDF), true)

	return &Processor{
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentPDFs)),
		renderer: renderer,
	}, nil
}

// Thumbnails processes every page of the document at path and returns the
// results in page order.
func (p *Processor) Thumbnails(ctx context.Context, path string) ([]PageThumbnail, error) {
	logger.Debug(fmt.Sprintf("Starting thumbnails: path=%s", path), true)

	if err := p.acquireSlot(ctx); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	f, r, err := Open(path)
	if err != nil {
		logger.Debug(fmt.Sprintf("Failed to open PDF: path=%s err=%v", path, err), true)
		return nil, err
	}
	defer f.Close()

	total := r.NumPage()
	logger.Debug(fmt.Sprintf("Total pages detected: path=%s pages=%d", path, total), true)

	out := make([]PageThumbnail, total)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.adjustWorkerCount(p.cfg.MaxWorkersPerPDF))
	for i := 1; i <= total; i++ {
		i := i
		g.Go(func() error {
			res, err := p.processPage(gctx, r, i)
			if err != nil {
				return fmt.Errorf("strict mode failed on page %d: %w", i, err)
			}
			out[i-1] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Debug(fmt.Sprintf("Thumbnails stopped: path=%s err=%v", path, err), true)
		return nil, err
	}
	logger.Debug(fmt.Sprintf("Thumbnails completed: path=%s pages=%d", path, total), true)
	return out, nil
}

// StreamThumbnails processes the document at path and emits the results in
// page order as they become available. The channel is closed when every
// page is done, or after the first failure in strict mode; the failing
// page is emitted with its Err set.
func (p *Processor) StreamThumbnails(ctx context.Context, path string) (<-chan PageThumbnail, error) {
	logger.Debug(fmt.Sprintf("Starting streaming thumbnails: path=%s", path), true)

	if err := p.acquireSlot(ctx); err != nil {
		return nil, err
	}

	f, r, err := Open(path)
	if err != nil {
		p.sem.Release(1)
		logger.Debug(fmt.Sprintf("Failed to open PDF for streaming: err=%v", err), true)
		return nil, err
	}

	total := r.NumPage()
	results := make(chan PageThumbnail, total)
	outCh := make(chan PageThumbnail)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.adjustWorkerCount(p.cfg.MaxWorkersPerPDF))
	go func() {
		for i := 1; i <= total; i++ {
			i := i
			g.Go(func() error {
				res, err := p.processPage(gctx, r, i)
				if err != nil {
					results <- PageThumbnail{Page: i, Err: err}
					return err
				}
				results <- res
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	go func() {
		defer p.sem.Release(1)
		defer f.Close()
		defer close(outCh)
		p.emitInOrder(ctx, results, outCh)
		// let the workers finish before the file is closed
		for range results {
		}
		logger.Debug(fmt.Sprintf("Streaming thumbnails completed: path=%s", path), true)
	}()

	return outCh, nil
}

// emitInOrder forwards results to outCh in page order. It stops after the
// first failed page.
func (p *Processor) emitInOrder(ctx context.Context, results <-chan PageThumbnail, outCh chan<- PageThumbnail) {
	pageBuffer := make(map[int]PageThumbnail)
	nextPage := 1
	for res := range results {
		pageBuffer[res.Page] = res
		for {
			next, ok := pageBuffer[nextPage]
			if !ok {
				break
			}
			select {
			case outCh <- next:
			case <-ctx.Done():
				return
			}
			delete(pageBuffer, nextPage)
			nextPage++
			if next.Err != nil && p.cfg.ParsingMode == Strict {
				logger.Debug(fmt.Sprintf("Strict mode error, stopping stream: page=%d err=%v", next.Page, next.Err), true)
				return
			}
		}
	}
}

// PageInfo writes a JSON report of every page of the document at path.
func (p *Processor) PageInfo(ctx context.Context, path string, w io.Writer) error {
	logger.Debug(fmt.Sprintf("Reading page info: path=%s", path), true)

	f, r, err := Open(path)
	if err != nil {
		logger.Error("failed to open PDF for page info", "path", path)
		return err
	}
	defer f.Close()

	total := r.NumPage()
	infos := make([]PageInfo, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := r.Page(i)
		if err != nil {
			if p.cfg.ParsingMode == Strict {
				return fmt.Errorf("page %d: %w", i, err)
			}
			infos = append(infos, PageInfo{Number: i})
			continue
		}
		infos = append(infos, page.Info(p.cfg.DPI))
	}
	if err := WritePageInfo(w, infos); err != nil {
		logger.Error("failed to write page info")
		return err
	}
	logger.Debug(fmt.Sprintf("Page info completed: path=%s", path), true)
	return nil
}

func (p *Processor) processPage(ctx context.Context, r *Reader, num int) (PageThumbnail, error) {
	page, err := r.Page(num)
	if err != nil {
		logger.Debug(fmt.Sprintf("Page load failed: page=%d err=%v", num, err), true)
		if p.cfg.ParsingMode == Strict {
			return PageThumbnail{}, err
		}
		return PageThumbnail{Page: num, Err: err}, nil
	}
	return p.renderWithRetries(ctx, page)
}

func (p *Processor) renderWithRetries(ctx context.Context, page *Page) (PageThumbnail, error) {
	var res PageThumbnail
	var err error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		ctxPage, cancel := context.WithTimeout(ctx, p.cfg.WorkerTimeout)
		res, err = p.renderer.RenderPage(ctxPage, page)
		cancel()
		if err == nil || errors.Is(err, ErrThumbnailDecode) || ctx.Err() != nil {
			break
		}
		logger.Debug(fmt.Sprintf("Retrying page: page=%d attempt=%d err=%v", page.Num(), attempt, err), true)
	}
	return res, err
}

func (p *Processor) acquireSlot(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		logger.Debug(fmt.Sprintf("Failed to acquire slot: err=%v", err), true)
		return fmt.Errorf("acquire slot: %w", err)
	}
	logger.Debug("Slot acquired successfully", true)
	return nil
}

func (p *Processor) adjustWorkerCount(maxWorkers int) int {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if n := runtime.NumCPU(); maxWorkers > n {
		maxWorkers = n
	}
	logger.Debug(fmt.Sprintf("Adjusted worker count: workers=%d", maxWorkers), true)
	return maxWorkers
}
