package gateway

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// RequestDetail is the fully resolved outbound call description: absolute
// target URL, headers, body bytes, and whether the response must be handled
// as raw binary.
type RequestDetail struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	Binary bool
}

// binaryRoutePatterns are the destination path shapes whose responses are
// raw byte streams rather than text or JSON.
var binaryRoutePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/binary-manage/download/[^/]+/[0-9]+$`),
	regexp.MustCompile(`^/info-account-manage/proposal/attach/[0-9]+$`),
}

func isBinaryRoute(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, re := range binaryRoutePatterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// componentSafe are the bytes left untouched by escapeComponent, matching
// JavaScript's encodeURIComponent. Legacy peers depend on this exact set;
// url.QueryEscape is not equivalent (it escapes marks and uses '+').
const componentSafe = "-_.!~*'()"

// uriSafe extends componentSafe with the reserved characters kept by
// JavaScript's encodeURI.
const uriSafe = componentSafe + ";/?:@&=+$,#"

func escapeComponent(s string) string {
	return percentEncode(s, componentSafe)
}

func escapeURI(s string) string {
	return percentEncode(s, uriSafe)
}

func percentEncode(s, safe string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedAlnum(c) || strings.IndexByte(safe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreservedAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// prefixBefore returns the part of s before the first occurrence of marker,
// reporting whether the marker was present.
func prefixBefore(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	return s[:i], true
}
