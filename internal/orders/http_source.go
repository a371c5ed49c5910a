package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/partnerhub/internal/config"
	"github.com/partnerhub/internal/logger"

	"golang.org/x/time/rate"
)

const (
	defaultPageSize      = 100
	defaultTimeout       = 10 * time.Second
	maxPages             = 1000
	requestsPerSecond    = 5
	errorBodyPreviewSize = 512
)

type invoicePage struct {
	Data     []Invoice `json:"data"`
	HasMore  bool      `json:"has_more"`
	NextPage int       `json:"next_page"`
}

// HTTPSource 通过 HTTP JSON 接口拉取发票
type HTTPSource struct {
	baseURL  string
	apiKey   string
	pageSize int
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPSource 创建订单源客户端，未配置地址时返回 nil
func NewHTTPSource(cfg config.OrderSourceConfig) *HTTPSource {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &HTTPSource{
		baseURL:  baseURL,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// ListUpdatedInvoices 分页拉取时间窗口内变化的发票
func (s *HTTPSource) ListUpdatedInvoices(ctx context.Context, since, until time.Time) ([]Invoice, error) {
	if s == nil {
		return nil, ErrSourceNotConfigured
	}
	out := make([]Invoice, 0)
	page := 1
	for i := 0; i < maxPages; i++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		result, err := s.fetchPage(ctx, since, until, page)
		if err != nil {
			return nil, err
		}
		out = append(out, result.Data...)
		if !result.HasMore || len(result.Data) == 0 {
			return out, nil
		}
		if result.NextPage > page {
			page = result.NextPage
		} else {
			page++
		}
	}
	logger.Warnw("order_source_page_limit_reached", "pages", maxPages, "invoices", len(out))
	return out, nil
}

func (s *HTTPSource) fetchPage(ctx context.Context, since, until time.Time, page int) (*invoicePage, error) {
	query := url.Values{}
	query.Set("updated_since", since.UTC().Format(time.RFC3339))
	query.Set("updated_until", until.UTC().Format(time.RFC3339))
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(s.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/invoices?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order source request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyPreviewSize))
		return nil, fmt.Errorf("order source returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var result invoicePage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("order source response decode failed: %w", err)
	}
	return &result, nil
}
