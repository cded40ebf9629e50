package pdftext

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Fetcher downloads tariff PDFs into per-region directories and extracts
// their text page by page.
type Fetcher struct {
	client  *http.Client
	baseDir string
	logger  *slog.Logger
}

func NewFetcher(client *http.Client, baseDir string, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if baseDir == "" {
		baseDir = "files"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, baseDir: baseDir, logger: logger}
}

// DownloadAndExtract fetches the document at link into
// <baseDir>/<region>/<title>.pdf and returns the destination path together
// with whatever text could be pulled out. Extraction is best-effort: pages
// that fail are skipped, and a fully image-based PDF yields empty text rather
// than an error about any single page.
func (f *Fetcher) DownloadAndExtract(ctx context.Context, region, title, link string) (string, string, error) {
	dir := filepath.Join(f.baseDir, sanitize(region))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("create region dir: %w", err)
	}

	name := sanitize(title)
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	dest := filepath.Join(dir, name)

	if err := f.download(ctx, link, dest); err != nil {
		f.logger.Error("pdftext.download_failed", "region", region, "link", link, "error", err)
		return dest, "", fmt.Errorf("download pdf: %w", err)
	}

	text, err := ExtractText(dest)
	if err != nil {
		f.logger.Error("pdftext.extract_failed", "path", dest, "error", err)
		return dest, "", fmt.Errorf("extract text: %w", err)
	}
	f.logger.Info("pdftext.extract_ok", "path", dest, "bytes", len(text))
	return dest, text, nil
}

func (f *Fetcher) download(ctx context.Context, link, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("fetch %s: status %d", link, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return fmt.Errorf("write file: %w", err)
	}
	return out.Close()
}

// ExtractText pulls plain text out of a PDF file, page by page. Pages whose
// extraction fails are skipped.
func ExtractText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

// sanitize keeps region/title-derived path segments inside their directory.
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	s = replacer.Replace(s)
	if s == "" {
		s = "unnamed"
	}
	return s
}
