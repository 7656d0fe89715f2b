package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultTimeout применяется, когда вызывающий не задал таймаут явно.
const DefaultTimeout = 20 * time.Second

// Response — результат одного HTTP-вызова. Не-2xx статус не является
// ошибкой транспорта: адаптеры сами ветвятся по Status.
type Response struct {
	Status  int
	Headers http.Header
	Body    string

	jsonOnce sync.Once
	json     gjson.Result
}

// JSON лениво парсит тело как JSON. Невалидный JSON дает пустой результат,
// а не ошибку: опрос полей через gjson безопасен в любом случае.
func (r *Response) JSON() gjson.Result {
	r.jsonOnce.Do(func() {
		r.json = gjson.Parse(r.Body)
	})
	return r.json
}

// OK сообщает, попал ли статус в диапазон 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Transport — подменяемый HTTP-слой адаптеров. Ошибки возвращаются только
// при сетевых сбоях; любой полученный статус приходит в Response.
type Transport interface {
	Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error)
	Post(ctx context.Context, rawURL string, body []byte, headers map[string]string) (*Response, error)
	PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (*Response, error)
}

// HTTPTransport — боевая реализация поверх net/http с пулом соединений,
// рассчитанным на одновременный fan-out по многим платформам.
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (t *HTTPTransport) Get(ctx context.Context, rawURL string, headers map[string]string) (*Response, error) {
	return t.do(ctx, http.MethodGet, rawURL, nil, "", headers)
}

func (t *HTTPTransport) Post(ctx context.Context, rawURL string, body []byte, headers map[string]string) (*Response, error) {
	return t.do(ctx, http.MethodPost, rawURL, strings.NewReader(string(body)), "application/json", headers)
}

func (t *HTTPTransport) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) (*Response, error) {
	return t.do(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", headers)
}

func (t *HTTPTransport) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, rawURL, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	// Часть платформ отдает заглушку ботам без браузерного User-Agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", rawURL, err)
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    string(data),
	}, nil
}
