package services

import (
	"context"
	"errors"
	"testing"

	"propextract/extract"
	"propextract/models"
)

type stubSession struct {
	html       string
	navErr     error
	contentErr error
	closed     int
}

func (s *stubSession) Navigate(ctx context.Context, url string) error { return s.navErr }
func (s *stubSession) WaitForContent(ctx context.Context)             {}
func (s *stubSession) Content() (string, error) {
	if s.contentErr != nil {
		return "", s.contentErr
	}
	return s.html, nil
}
func (s *stubSession) Close() { s.closed++ }

type stubLauncher struct {
	sess      *stubSession
	launchErr error
	launches  int
}

func (l *stubLauncher) Launch(ctx context.Context) (PageSession, error) {
	l.launches++
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	return l.sess, nil
}

func newExtractor(l SessionLauncher) *Extractor {
	return NewExtractor(l, extract.NewCascade(nil, 12))
}

func TestExtract_ValidationError(t *testing.T) {
	launcher := &stubLauncher{}
	resp := newExtractor(launcher).Extract(context.Background(), "")

	if resp.Source != models.SourceValidationError {
		t.Fatalf("expected validation-error, got %s", resp.Source)
	}
	if launcher.launches != 0 {
		t.Fatalf("browser launched despite validation failure")
	}
	if resp.Error == "" {
		t.Fatalf("expected error message")
	}
}

func TestExtract_LaunchError(t *testing.T) {
	launcher := &stubLauncher{launchErr: errors.New("chromium exploded")}
	resp := newExtractor(launcher).Extract(context.Background(), "https://example.com/1")

	if resp.Success || resp.Partial {
		t.Fatalf("expected hard failure, got success=%v partial=%v", resp.Success, resp.Partial)
	}
	if resp.Source != models.SourceLaunchError {
		t.Fatalf("expected launch-error, got %s", resp.Source)
	}
	if resp.Error != "chromium exploded" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
}

func TestExtract_NavigationError_SessionClosed(t *testing.T) {
	sess := &stubSession{navErr: errors.New("net::ERR_TIMED_OUT")}
	launcher := &stubLauncher{sess: sess}
	resp := newExtractor(launcher).Extract(context.Background(), "https://example.com/2")

	if resp.Source != models.SourceNavigationError {
		t.Fatalf("expected navigation-error, got %s", resp.Source)
	}
	if sess.closed != 1 {
		t.Fatalf("expected session closed exactly once, got %d", sess.closed)
	}
	if len(resp.Missing) != len(models.DefaultRequiredFields) {
		t.Fatalf("expected all required fields missing, got %v", resp.Missing)
	}
}

func TestExtract_EvaluateError_SessionClosed(t *testing.T) {
	sess := &stubSession{contentErr: errors.New("target closed")}
	launcher := &stubLauncher{sess: sess}
	resp := newExtractor(launcher).Extract(context.Background(), "https://example.com/3")

	if resp.Source != models.SourceEvaluateError {
		t.Fatalf("expected evaluate-error, got %s", resp.Source)
	}
	if sess.closed != 1 {
		t.Fatalf("expected session closed exactly once, got %d", sess.closed)
	}
}

func TestExtract_PartialResult(t *testing.T) {
	sess := &stubSession{html: `<html><head>
		<title>10 Oak St, Windsor - Listed</title>
		<meta name="description" content="Asking $300,000 for this home.">
		</head><body>3 bedrooms and plenty of light.</body></html>`}
	launcher := &stubLauncher{sess: sess}
	resp := newExtractor(launcher).Extract(context.Background(), "https://example.com/4")

	if resp.Success {
		t.Fatalf("expected partial result, got full success")
	}
	if !resp.Partial {
		t.Fatalf("expected partial=true")
	}
	if resp.Price != 300000 || resp.Bedrooms != 3 {
		t.Fatalf("unexpected price/bedrooms %v/%v", resp.Price, resp.Bedrooms)
	}
	for _, f := range resp.Missing {
		if f == "price" || f == "bedrooms" {
			t.Fatalf("filled field %s reported missing", f)
		}
	}
	if sess.closed != 1 {
		t.Fatalf("expected session closed exactly once, got %d", sess.closed)
	}
}
