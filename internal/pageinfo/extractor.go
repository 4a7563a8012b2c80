// Package pageinfo derives a small fixed metadata set from a fetched
// page: description, favicon, preview image, domain, type and keywords.
// Extraction is best effort and never fails the caller; a malformed
// document degrades to a partial PageInfo.
package pageinfo

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageInfo holds the extracted page metadata. Empty string means the
// page did not provide the field.
type PageInfo struct {
	Description string   `json:"description"`
	Favicon     string   `json:"favicon"`
	Image       string   `json:"image"`
	Domain      string   `json:"domain"`
	Type        string   `json:"type"`
	Keywords    []string `json:"keywords"`
}

// Extract parses the page HTML and collects metadata, resolving
// relative URLs against pageURL. Parse failures yield whatever could
// be derived from the URL alone.
func Extract(pageURL, html string) PageInfo {
	info := PageInfo{}

	if u, err := url.Parse(pageURL); err == nil {
		info.Domain = u.Hostname()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return info
	}

	info.Description = firstMetaContent(doc,
		"meta[property='og:description']",
		"meta[name='twitter:description']",
		"meta[name='description']",
	)
	info.Image = resolveURL(pageURL, firstMetaContent(doc,
		"meta[property='og:image']",
		"meta[name='twitter:image']",
	))
	info.Type = firstMetaContent(doc, "meta[property='og:type']")
	info.Favicon = resolveURL(pageURL, extractFavicon(doc))
	info.Keywords = extractKeywords(doc)

	return info
}

// firstMetaContent returns the content attribute of the first selector
// that yields a non-empty value.
func firstMetaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, exists := doc.Find(sel).Attr("content"); exists {
			if v := strings.TrimSpace(content); v != "" {
				return v
			}
		}
	}
	return ""
}

// extractFavicon walks the link rel icon variants; when the page
// declares none, the conventional /favicon.ico path is assumed.
func extractFavicon(doc *goquery.Document) string {
	selectors := []string{
		"link[rel='icon']",
		"link[rel='shortcut icon']",
		"link[rel='apple-touch-icon']",
	}
	for _, sel := range selectors {
		if href, exists := doc.Find(sel).Attr("href"); exists {
			if v := strings.TrimSpace(href); v != "" {
				return v
			}
		}
	}
	return "/favicon.ico"
}

func extractKeywords(doc *goquery.Document) []string {
	content, exists := doc.Find("meta[name='keywords']").Attr("content")
	if !exists {
		return nil
	}
	raw := strings.Split(content, ",")
	keywords := make([]string, 0, len(raw))
	for _, k := range raw {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return nil
	}
	return keywords
}

// resolveURL resolves ref against base. Unresolvable refs are returned
// as-is rather than dropped; a partial value beats none here.
func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
