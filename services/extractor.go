// Package services drives one extraction request end to end:
// validate -> launch -> navigate -> extract -> clean up -> respond.
// Every failure is converted into a stage-tagged response; nothing from the
// scrape path ever reaches the transport layer as an error.
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"propextract/browser"
	"propextract/extract"
	"propextract/models"
)

// PageSession is the slice of a live browser session the extractor needs.
type PageSession interface {
	Navigate(ctx context.Context, url string) error
	WaitForContent(ctx context.Context)
	Content() (string, error)
	Close()
}

// SessionLauncher creates one disposable session per request.
type SessionLauncher interface {
	Launch(ctx context.Context) (PageSession, error)
}

// BrowserLauncher adapts browser.Manager to the SessionLauncher interface.
type BrowserLauncher struct {
	Manager *browser.Manager
}

func (b BrowserLauncher) Launch(ctx context.Context) (PageSession, error) {
	return b.Manager.Launch(ctx)
}

type Extractor struct {
	launcher SessionLauncher
	cascade  *extract.Cascade
}

func NewExtractor(launcher SessionLauncher, cascade *extract.Cascade) *Extractor {
	return &Extractor{launcher: launcher, cascade: cascade}
}

// Required exposes the active required-field policy.
func (e *Extractor) Required() []string {
	return e.cascade.Required()
}

// Extract runs the request state machine. The named return lets the panic
// safety net replace the response on the way out.
func (e *Extractor) Extract(ctx context.Context, url string) (resp *models.ExtractionResponse) {
	required := e.cascade.Required()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Unhandled panic extracting %s: %v", url, r)
			resp = models.ErrorResponse(url, models.SourceUnhandled, fmt.Sprintf("%v", r), required)
		}
	}()

	if url == "" {
		return models.ErrorResponse(url, models.SourceValidationError, "url is required", required)
	}

	start := time.Now()
	log.Printf("Extracting %s", url)

	sess, err := e.launcher.Launch(ctx)
	if err != nil {
		log.Printf("Browser launch failed for %s: %v", url, err)
		return models.ErrorResponse(url, models.SourceLaunchError, err.Error(), required)
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, url); err != nil {
		log.Printf("Navigation failed for %s: %v", url, err)
		return models.ErrorResponse(url, models.SourceNavigationError, err.Error(), required)
	}

	sess.WaitForContent(ctx)

	html, err := sess.Content()
	if err != nil {
		log.Printf("Content read failed for %s: %v", url, err)
		return models.ErrorResponse(url, models.SourceEvaluateError, err.Error(), required)
	}

	page, err := extract.NewPage(url, html)
	if err != nil {
		return models.ErrorResponse(url, models.SourceEvaluateError, err.Error(), required)
	}

	rec := e.cascade.Run(page)
	rec.URL = url
	rec.Timestamp = time.Now().UTC()

	missing := rec.Missing(required)
	log.Printf("Extracted %s in %.1fs (source=%s, missing=%v)", url, time.Since(start).Seconds(), rec.Source, missing)

	return &models.ExtractionResponse{
		PropertyRecord: rec,
		Success:        len(missing) == 0,
		Partial:        len(missing) > 0,
		Missing:        missing,
	}
}
