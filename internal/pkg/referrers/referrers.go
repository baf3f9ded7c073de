// Package referrers buckets raw referrer URLs into traffic sources.
package referrers

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// Buckets every referrer falls into when no catalog rule applies.
const (
	Direct = "Direct"
	Other  = "Other"
)

//go:embed sources.yml
var sourcesFile []byte

type rule struct {
	Source string   `yaml:"source"`
	Match  []string `yaml:"match"`
}

var rules []rule

func init() {
	if err := yaml.Unmarshal(sourcesFile, &rules); err != nil {
		panic(fmt.Sprintf("referrers: invalid embedded sources.yml: %v", err))
	}
}

// Classify maps a referrer URL to a traffic source. An empty referrer is
// direct traffic; a referrer matching no catalog rule is Other. Rules are
// evaluated in catalog order, first match wins.
func Classify(referrer string) string {
	if strings.TrimSpace(referrer) == "" {
		return Direct
	}

	ref := strings.ToLower(referrer)
	host := hostOf(ref)
	for _, r := range rules {
		for _, token := range r.Match {
			if matches(ref, host, token) {
				return r.Source
			}
		}
	}
	return Other
}

// hostOf extracts the host of a lowercased referrer URL. Schemeless
// referrers are parsed as protocol-relative; anything unparsable yields an
// empty host, which matches no domain token.
func hostOf(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		return u.Hostname()
	}
	if u, err := url.Parse("//" + ref); err == nil {
		return u.Hostname()
	}
	return ""
}

// matches applies one catalog token. Tokens ending in a dot are name
// fragments matched anywhere in the URL. Bare-domain tokens must match the
// referrer's host on a label boundary, otherwise a short domain like "t.co"
// would claim every host that merely ends in those characters, such as
// "reddit.com".
func matches(ref, host, token string) bool {
	if strings.HasSuffix(token, ".") {
		return strings.Contains(ref, token)
	}
	return host == token || strings.HasSuffix(host, "."+token)
}

// Sources returns the catalog's source names in rule order, for diagnostics.
func Sources() []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Source)
	}
	return names
}
