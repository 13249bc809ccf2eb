// Package floworkapi is the HTTP client for the Flowork server. Every page
// controller talks to the server through one injected *Client; there is no
// package-level instance.
package floworkapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/logger"
	"flowork/terminal/internal/metrics"
)

const (
	HeaderCSRF          = "X-CSRFToken"
	headerRequestedWith = "X-Requested-With"
	contentTypeJSON     = "application/json"

	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 8 << 20
)

type Options struct {
	HTTPClient *http.Client
	CSRFToken  string
	// SessionCookie is sent verbatim as the Cookie header.
	SessionCookie string
	// RPS caps outgoing requests per second. Zero disables throttling.
	RPS     float64
	Burst   int
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

type Client struct {
	base    *url.URL
	http    *http.Client
	cookie  string
	limiter *rate.Limiter
	log     *logger.Logger
	metrics *metrics.Metrics

	mu   sync.RWMutex
	csrf string
}

func New(baseURL string, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	limit, burst := rate.Inf, 1
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
		burst = opts.Burst
		if burst < 1 {
			burst = int(math.Ceil(opts.RPS))
		}
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		base:    base,
		http:    httpClient,
		cookie:  strings.TrimSpace(opts.SessionCookie),
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
		metrics: opts.Metrics,
		csrf:    strings.TrimSpace(opts.CSRFToken),
	}, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) CSRFToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrf
}

func (c *Client) SetCSRFToken(token string) {
	c.mu.Lock()
	c.csrf = strings.TrimSpace(token)
	c.mu.Unlock()
}

// FetchCSRFToken loads an HTML page and keeps the content of its
// <meta name="csrf-token"> tag for subsequent requests.
func (c *Client) FetchCSRFToken(ctx context.Context, pagePath string) (string, error) {
	target, err := c.resolve(pagePath)
	if err != nil {
		return "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "wait for rate limiter")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", errors.Wrap(err, "build csrf page request")
	}
	req.Header.Set("Accept", "text/html")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Endpoint: "csrf_page", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{Endpoint: "csrf_page", StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	token, err := csrfFromHTML(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.Wrap(err, "parse csrf page")
	}
	if token == "" {
		return "", errors.New("csrf-token meta tag not found")
	}
	c.SetCSRFToken(token)
	return token, nil
}

func csrfFromHTML(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", nil
			}
			return "", z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.Meta {
				continue
			}
			var name, content string
			for _, attr := range tok.Attr {
				switch strings.ToLower(attr.Key) {
				case "name":
					name = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if name == "csrf-token" {
				return strings.TrimSpace(content), nil
			}
		}
	}
}

type call struct {
	endpoint string
	method   string
	path     string
	body     any
	upload   *Upload
	out      any
	// raw skips the status=="success" check for bodies that use "status"
	// for something else (task progress) or carry no envelope at all.
	raw bool
}

func (c *Client) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", invalid("url", "요청 URL이 설정되지 않았습니다.")
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrapf(err, "parse url %q", ref)
	}
	return c.base.ResolveReference(u).String(), nil
}

func (c *Client) do(ctx context.Context, cl call) error {
	target, err := c.resolve(cl.path)
	if err != nil {
		return err
	}

	var (
		body        io.Reader
		contentType = contentTypeJSON
	)
	switch {
	case cl.upload != nil:
		buf, ct, err := cl.upload.encode()
		if err != nil {
			return err
		}
		body, contentType = buf, ct
	case cl.body != nil:
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return errors.Wrapf(err, "encode %s request", cl.endpoint)
		}
		body = bytes.NewReader(payload)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "wait for rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return errors.Wrapf(err, "build %s request", cl.endpoint)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(headerRequestedWith, "XMLHttpRequest")
	if token := c.CSRFToken(); token != "" {
		req.Header.Set(HeaderCSRF, token)
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	ctx = c.log.WithFields(ctx, map[string]any{"endpoint": cl.endpoint, "method": cl.method, "url": target})
	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveUpstream(cl.endpoint, time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.WithStack(ctxErr)
		}
		c.log.Warn(ctx, "upstream request failed")
		return &TransportError{Endpoint: cl.endpoint, Err: err}
	}
	defer resp.Body.Close()

	err = c.decode(cl, resp)
	if err != nil {
		c.log.Warn(c.log.WithField(ctx, "status", resp.StatusCode), UserMessage(err))
		return err
	}
	c.log.Debug(c.log.WithField(ctx, "status", resp.StatusCode), "upstream request done")
	return nil
}

func (c *Client) decode(cl call, resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Endpoint: cl.endpoint, StatusCode: resp.StatusCode, Status: statusText(resp), Err: err}
	}
	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	isJSON := strings.Contains(resp.Header.Get("Content-Type"), contentTypeJSON)

	if !isJSON && !ok {
		return &TransportError{Endpoint: cl.endpoint, StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	var env domain.Envelope
	envErr := json.Unmarshal(data, &env)
	if !ok {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("Server Error: %d", resp.StatusCode)
		}
		return errors.WithStack(&AppError{StatusCode: resp.StatusCode, Message: msg})
	}
	if !cl.raw && envErr == nil && env.Status != "" && !env.OK() {
		msg := env.Message
		if msg == "" {
			msg = "요청이 처리되지 않았습니다."
		}
		return errors.WithStack(&AppError{StatusCode: resp.StatusCode, Message: msg})
	}

	if cl.out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return &TransportError{
			Endpoint:   cl.endpoint,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			Err:        errors.Wrap(err, "decode response"),
		}
	}
	return nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}

// expand fills an id into a URL template. "{id}" and the numeric 999999
// placeholder are substituted; a template with neither is treated as a
// prefix and the id is appended.
func expand(tmpl string, id any) string {
	value := fmt.Sprint(id)
	switch {
	case strings.Contains(tmpl, "{id}"):
		return strings.ReplaceAll(tmpl, "{id}", value)
	case strings.Contains(tmpl, "999999"):
		return strings.Replace(tmpl, "999999", value, 1)
	default:
		return tmpl + value
	}
}

// message is the reply shape of endpoints that only confirm with a message.
type message struct {
	domain.Envelope
}

func (c *Client) post(ctx context.Context, endpoint, path string, body any) (string, error) {
	var out message
	if err := c.do(ctx, call{endpoint: endpoint, method: http.MethodPost, path: path, body: body, out: &out}); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) delete(ctx context.Context, endpoint, path string) (string, error) {
	var out message
	if err := c.do(ctx, call{endpoint: endpoint, method: http.MethodDelete, path: path, out: &out}); err != nil {
		return "", err
	}
	return out.Message, nil
}
