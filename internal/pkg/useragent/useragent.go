// Package useragent derives device, browser and operating system families
// from raw User-Agent strings using ordered substring matching.
package useragent

import "strings"

// Device type families
const (
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceDesktop = "Desktop"
)

// Browser families
const (
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserEdge    = "Edge"
	BrowserOpera   = "Opera"
	BrowserOther   = "Other"
)

// Operating system families
const (
	OSWindows = "Windows"
	OSMacOS   = "macOS"
	OSLinux   = "Linux"
	OSAndroid = "Android"
	OSIOS     = "iOS"
	OSOther   = "Other"
)

// ClassifyDevice returns the device family for a user agent. Device tokens
// are checked before any OS-level token so an Android phone is classified by
// its device family, not its operating system.
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)

	if strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone") {
		return DeviceMobile
	}
	if strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad") {
		return DeviceTablet
	}
	return DeviceDesktop
}

// ClassifyBrowser returns the browser family for a user agent. Order matters:
// Chromium-based Edge carries a "chrome" token and every Chrome UA carries
// "safari", so both checks exclude their look-alikes. First match wins.
func ClassifyBrowser(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "chrome") && !strings.Contains(ua, "edg"):
		return BrowserChrome
	case strings.Contains(ua, "firefox"):
		return BrowserFirefox
	case strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome"):
		return BrowserSafari
	case strings.Contains(ua, "edg"):
		return BrowserEdge
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		return BrowserOpera
	}
	return BrowserOther
}

// ClassifyOS returns the operating system family for a user agent.
func ClassifyOS(userAgent string) string {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "windows"):
		return OSWindows
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		return OSMacOS
	case strings.Contains(ua, "linux") && !strings.Contains(ua, "android"):
		return OSLinux
	case strings.Contains(ua, "android"):
		return OSAndroid
	case strings.Contains(ua, "ios") || strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		return OSIOS
	}
	return OSOther
}
