package ingestion

import (
	"net/url"
	"path/filepath"
	"strings"
)

// InferredMetadata holds the source label and document kind inferred from a
// source location. CLI flags take precedence over inferred values — this is
// the best-effort fallback when the user doesn't specify an explicit label.
type InferredMetadata struct {
	// Label is the source label attached to stored chunks.
	Label string
	// Kind classifies where the document came from (url, file).
	Kind string
	// DocType classifies the document format (html, markdown, text, log).
	DocType string
}

// extensionDocTypes maps file extensions to our canonical document type label.
var extensionDocTypes = map[string]string{
	".html": "html",
	".htm":  "html",
	".md":   "markdown",
	".mdx":  "markdown",
	".txt":  "text",
	".text": "text",
	".log":  "log",
	".json": "text",
	".yaml": "text",
	".yml":  "text",
}

// InferMetadata inspects a source location and returns best-effort metadata.
// URLs are labelled "host/first-path-segment" so documents from the same site
// section share a label; files are labelled by their base name. Unknown
// extensions default to "text".
func InferMetadata(location string) InferredMetadata {
	m := InferredMetadata{
		Label:   location,
		Kind:    "file",
		DocType: "text",
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		m.Kind = "url"
		m.DocType = "html"
		parsed, err := url.Parse(location)
		if err != nil || parsed.Hostname() == "" {
			return m
		}
		m.Label = urlLabel(parsed)
		if dt, ok := extensionDocTypes[strings.ToLower(filepath.Ext(parsed.Path))]; ok {
			m.DocType = dt
		}
		return m
	}

	m.Label = strings.TrimSuffix(filepath.Base(location), filepath.Ext(location))
	if m.Label == "" || m.Label == "." {
		m.Label = location
	}
	if dt, ok := extensionDocTypes[strings.ToLower(filepath.Ext(location))]; ok {
		m.DocType = dt
	}
	return m
}

// urlLabel builds "host" or "host/first-segment" from a parsed URL.
func urlLabel(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	segments := trimSegments(strings.ToLower(u.Path))
	if len(segments) == 0 {
		return host
	}
	return host + "/" + segments[0]
}

// trimSegments splits a URL path into its non-empty segments.
func trimSegments(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
