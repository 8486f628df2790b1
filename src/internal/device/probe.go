// Package device collects the coarse client metadata recorded on each session
// row. Everything here is best-effort audit data; nothing in it may block or
// fail a login.
package device

import (
	"context"
	"runtime"

	"github.com/sirupsen/logrus"
)

// FallbackIP is stored when the IP lookup fails for any reason.
const FallbackIP = "0.0.0.0"

type Info struct {
	DeviceType  string `json:"deviceType"`
	OSName      string `json:"osName"`
	BrowserName string `json:"browserName"`
	UserAgent   string `json:"userAgent"`
}

// IPLookup resolves the client-visible IP address. clients.IPEcho is the
// production implementation.
type IPLookup interface {
	Lookup(ctx context.Context) (string, error)
}

type Probe struct {
	userAgent string
	lookup    IPLookup
}

func NewProbe(userAgent string, lookup IPLookup) *Probe {
	return &Probe{userAgent: userAgent, lookup: lookup}
}

// DeviceInfo is synchronous and always succeeds.
func (p *Probe) DeviceInfo() Info {
	return Info{
		DeviceType:  "service",
		OSName:      runtime.GOOS,
		BrowserName: "none",
		UserAgent:   p.userAgent,
	}
}

// UserIP is fail-open: any lookup failure degrades to FallbackIP and is only
// logged.
func (p *Probe) UserIP(ctx context.Context) string {
	if p.lookup == nil {
		return FallbackIP
	}

	ip, err := p.lookup.Lookup(ctx)
	if err != nil {
		logrus.WithError(err).Warn("IP lookup failed, using fallback address")
		return FallbackIP
	}

	return ip
}
