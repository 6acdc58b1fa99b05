package repository

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"BrentShift/internal/domain/models"
	xhttp "BrentShift/pkg/http"
	applogger "BrentShift/pkg/logger"
)

// HTTPPriceSource pulls the Date,Price file from a remote endpoint, for
// deployments that refresh the series from a data vendor instead of shipping
// it on disk.
type HTTPPriceSource struct {
	url    string
	layout string
	client *xhttp.Client
	l      *applogger.Logger
}

func NewHTTPPriceSource(url, layout string, timeout time.Duration, l *applogger.Logger) *HTTPPriceSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPPriceSource{
		url:    url,
		layout: layout,
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:      l,
	}
}

func (s *HTTPPriceSource) Load(ctx context.Context) (models.PriceSeries, error) {
	if s.url == "" {
		return nil, fmt.Errorf("price url not configured")
	}

	var body []byte
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.url,
		Headers: map[string]string{
			"Accept": "text/csv",
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	series, err := decodePrices(bytes.NewReader(body), s.layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.url, err)
	}
	if s.l != nil {
		s.l.Info("price feed fetched",
			applogger.String("url", s.url),
			applogger.Int("rows", len(series)),
		)
	}
	return series, nil
}
