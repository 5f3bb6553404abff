package abtest

import "strings"

// relativePath strips the site root, query and fragment from raw and trims
// leading slashes, so "https://example.com/thanks?x=1" and "/thanks" both
// become "thanks".
func relativePath(root, raw string) string {
	root = strings.TrimRight(root, "/")
	if root != "" {
		raw = strings.TrimPrefix(raw, root)
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimLeft(raw, "/")
}

// isNavigation reports whether the visitor moved from one page to another.
// A missing referrer or a reload of the same page is not navigation.
func isNavigation(req PageRequest) (from, to string, ok bool) {
	if strings.TrimSpace(req.Referrer) == "" {
		return "", relativePath(req.Root, req.Path), false
	}
	from = relativePath(req.Root, req.Referrer)
	to = relativePath(req.Root, req.Path)
	return from, to, from != to
}

// matchGoals returns the configured goals hit by the current page, in catalog order.
// A goal is hit by the relative path, the path with a leading slash, or the route name.
func matchGoals(goals []string, to, route string) []string {
	var hits []string
	for _, g := range goals {
		if g == to || g == "/"+to || (route != "" && g == route) {
			hits = append(hits, g)
		}
	}
	return hits
}
