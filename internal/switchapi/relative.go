package switchapi

import (
	"net/url"
	"strings"
)

// resolve turns a base-relative reference into an absolute URL.
func resolve(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, &URIError{Ref: ref, Err: err}
	}
	if u.IsAbs() || u.Host != "" {
		return nil, &URIError{Ref: ref, Reason: "a relative URI is required"}
	}
	return base.ResolveReference(u), nil
}

// makeRelative expresses an absolute href relative to base. An href on
// another scheme or host cannot be made relative and is returned as is.
func makeRelative(base *url.URL, href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", &URIError{Ref: href, Err: err}
	}
	if !u.IsAbs() {
		return "", &URIError{Ref: href, Reason: "an absolute URI is required"}
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return href, nil
	}

	rel := relativePath(base.EscapedPath(), u.EscapedPath())
	if first, _, _ := strings.Cut(rel, "/"); strings.Contains(first, ":") {
		rel = "./" + rel
	}
	if u.RawQuery != "" || u.ForceQuery {
		rel += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		rel += "#" + u.EscapedFragment()
	}
	return rel, nil
}

// relativePath walks up from the last directory of basePath to the deepest
// directory shared with target, then back down.
func relativePath(basePath, target string) string {
	if basePath == "" {
		basePath = "/"
	}
	if target == "" {
		target = "/"
	}
	common := 0
	for i := 0; i < len(basePath) && i < len(target) && basePath[i] == target[i]; i++ {
		if basePath[i] == '/' {
			common = i + 1
		}
	}
	up := strings.Count(basePath[common:], "/")
	return strings.Repeat("../", up) + target[common:]
}
