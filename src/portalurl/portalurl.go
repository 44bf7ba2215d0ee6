package portalurl

import (
	"net/url"
	"strings"

	"github.com/opsportal/portal/src/config"
)

type Q struct {
	Name  string
	Value string
}

var baseUrlParsed url.URL

func init() {
	SetGlobalBaseUrl(config.Config.BaseUrl)
}

// SetGlobalBaseUrl must be called after config is loaded, before any URL is built.
func SetGlobalBaseUrl(fullBaseUrl string) {
	parsed, err := url.Parse(strings.TrimSuffix(fullBaseUrl, "/"))
	if err != nil {
		panic("invalid base URL: " + fullBaseUrl)
	}
	baseUrlParsed = *parsed
}

func Url(path string, query []Q) string {
	u := baseUrlParsed
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + trim(path)
	u.RawQuery = encodeQuery(query)
	return u.String()
}

func trim(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}

func encodeQuery(query []Q) string {
	result := url.Values{}
	for _, q := range query {
		if q.Value == "" {
			continue
		}
		result.Set(q.Name, q.Value)
	}
	return result.Encode()
}
