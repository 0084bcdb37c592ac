package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/gpumon/internal/domain"
)

const defaultMaxBodyBytes = 8 << 20

// defaultHeaders are sent with every request next to the rotating user agent.
var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"DNT":                       "1",
	"Connection":                "close",
	"Upgrade-Insecure-Requests": "1",
}

// HTTP fetches documents with a plain net/http client.
type HTTP struct {
	client       *http.Client
	maxBodyBytes int64
	logger       *zap.Logger
}

func NewHTTP(timeout time.Duration, maxBodyBytes int64, logger *zap.Logger) *HTTP {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &HTTP{
		client:       &http.Client{Timeout: timeout},
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

func (f *HTTP) Fetch(ctx context.Context, url, userAgent string) domain.Outcome[[]byte] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Retry[[]byte](ClassifyError(err), 0)
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		return domain.Retry[[]byte](ClassifyError(err), 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		f.logger.Warn("reading body failed", zap.String("url", url), zap.Error(err))
		return domain.Retry[[]byte](ClassifyError(err), resp.StatusCode)
	}

	f.logger.Debug("fetched",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return outcomeFor(body, resp.StatusCode)
}
