package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/ysmood/gson"

	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/crawl"
	"github.com/use-agent/shelfscan/models"
)

// maxStaticBody caps a fetched results page.
const maxStaticBody = 10 << 20

// ErrNoScript is returned by a static page for every script evaluation.
var ErrNoScript = errors.New("static page cannot run scripts")

// chromeH1Spec is a Chrome ClientHello with ALPN pinned to http/1.1, since
// http.Transport cannot speak h2 over a utls connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// StaticFetcher renders results pages with a plain HTTP GET and a Chrome
// TLS fingerprint. Nothing executes: lazy images stay unresolved and the
// lazy-load protocol degrades to a no-op.
type StaticFetcher struct {
	client *http.Client
	site   config.SiteConfig
	active atomic.Int32
}

// NewStaticFetcher builds a fetcher. proxy may be an http(s) proxy URL.
func NewStaticFetcher(site config.SiteConfig, proxy string, timeout time.Duration) *StaticFetcher {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("static: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	if proxy != "" {
		if u, err := url.Parse(proxy); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	return &StaticFetcher{
		client: &http.Client{Transport: transport, Timeout: timeout},
		site:   site,
	}
}

// Acquire hands out a fresh static page. Static pages share only the HTTP
// client, so there is no pool to wait on.
func (f *StaticFetcher) Acquire(ctx context.Context) (crawl.Renderer, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, categorizeError(err, "run canceled before a page was acquired")
	}
	f.active.Add(1)
	var once sync.Once
	release := func() { once.Do(func() { f.active.Add(-1) }) }
	return &staticPage{f: f}, release, nil
}

// Stats reports in-flight runs. MaxPages is zero: static runs are unbounded.
func (f *StaticFetcher) Stats() models.PoolStats {
	return models.PoolStats{ActivePages: int(f.active.Load())}
}

// staticPage holds the body of the last fetched URL.
type staticPage struct {
	f      *StaticFetcher
	mu     sync.Mutex
	markup string
}

func (p *staticPage) Navigate(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return categorizeError(err, "invalid results page URL")
	}
	req.Header.Set("User-Agent", p.f.site.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for k, v := range siteHeaders(p.f.site) {
		req.Header.Set(k, v)
	}

	resp, err := p.f.client.Do(req)
	if err != nil {
		return categorizeError(err, "results page request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticBody))
	if err != nil {
		return categorizeError(err, "failed to read results page")
	}

	p.mu.Lock()
	p.markup = string(body)
	p.mu.Unlock()

	if resp.StatusCode >= 400 {
		return categorizeError(fmt.Errorf("HTTP %d", resp.StatusCode), "results page returned an error status")
	}
	if ct := strings.ToLower(resp.Header.Get("Content-Type")); ct != "" && !strings.Contains(ct, "html") {
		return categorizeError(fmt.Errorf("content-type %q", ct), "results page is not HTML")
	}
	return nil
}

func (p *staticPage) RunScript(context.Context, string) (gson.JSON, error) {
	return gson.JSON{}, ErrNoScript
}

func (p *staticPage) WaitForCondition(context.Context, string, time.Duration) bool {
	return false
}

func (p *staticPage) SnapshotMarkup(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markup, nil
}
