package scraper

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockableTypes maps config names to protocol resource types. Images and
// scripts are absent: lazy-load completion needs both.
var blockableTypes = map[string]proto.NetworkResourceType{
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// adDomains are ad, tag-manager and session-replay hosts.
var adDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"facebook.net":          {},
	"adnxs.com":             {},
	"adsrvr.org":            {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"criteo.net":            {},
	"taboola.com":           {},
	"outbrain.com":          {},
	"hotjar.com":            {},
	"clarity.ms":            {},
	"analytics.tiktok.com":  {},
	"bat.bing.com":          {},
	"demdex.net":            {},
	"omtrdc.net":            {},
	"rlcdn.com":             {},
	"quantummetric.com":     {},
	"sc-static.net":         {},
}

// isAdDomain reports whether host or one of its parent domains is listed.
func isAdDomain(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for host != "" {
		if _, ok := adDomains[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			return false
		}
		host = host[i+1:]
	}
	return false
}

// blockedSet resolves configured resource type names, dropping the ones
// that cannot be blocked.
func blockedSet(names []string) map[proto.NetworkResourceType]struct{} {
	set := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		rt, ok := blockableTypes[name]
		if !ok {
			slog.Warn("resource type cannot be blocked, ignoring", "type", name)
			continue
		}
		set[rt] = struct{}{}
	}
	return set
}

// shouldBlock decides one intercepted request.
func shouldBlock(blocked map[proto.NetworkResourceType]struct{}, blockAds bool, rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := blocked[rt]; ok {
		return true
	}
	if !blockAds {
		return false
	}
	u, err := url.Parse(rawURL)
	return err == nil && isAdDomain(u.Hostname())
}

// mountBlocker intercepts every request on page and fails the blocked ones.
// It returns nil when nothing is blocked; otherwise the caller stops the
// router when the page goes back to the pool.
func mountBlocker(page *rod.Page, blocked map[proto.NetworkResourceType]struct{}, blockAds bool) *rod.HijackRouter {
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if shouldBlock(blocked, blockAds, h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()
	return router
}
