package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type URL struct {
	XMLName    xml.Name `xml:"url"`
	Loc        string   `xml:"loc"`
	LastMod    string   `xml:"lastmod,omitempty"`
	ChangeFreq string   `xml:"changefreq,omitempty"`
	Priority   float64  `xml:"priority,omitempty"`
}

type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

type SitemapIndex struct {
	XMLName  xml.Name  `xml:"sitemapindex"`
	XMLNS    string    `xml:"xmlns,attr"`
	Sitemaps []Sitemap `xml:"sitemap"`
}

type Sitemap struct {
	XMLName xml.Name `xml:"sitemap"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

// staticPages are the front end pages that exist regardless of data.
var staticPages = []struct {
	path     string
	priority float64
}{
	{"/", 1.0},
	{"/state", 0.9},
	{"/compare", 0.7},
	{"/rankings", 0.7},
}

// requestBase is the scheme and host the request was made to.
func requestBase(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeXML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("X-Robots-Tag", "noindex")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cache.TTLSitemap.Seconds())))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// GetSitemapIndex lists the sitemaps this API serves.
func (h *Handler) GetSitemapIndex(w http.ResponseWriter, r *http.Request) {
	index := SitemapIndex{
		XMLNS: sitemapNS,
		Sitemaps: []Sitemap{{
			Loc:     requestBase(r) + "/api/v1/sitemaps/districts",
			LastMod: h.now().UTC().Format("2006-01-02"),
		}},
	}
	output, err := xml.MarshalIndent(index, "", "  ")
	if err != nil {
		h.fail(w, r, err, "Error generating sitemap index")
		return
	}
	writeXML(w, append([]byte(xml.Header), output...))
}

// GetDistrictsSitemap lists the front end page of every district.
func (h *Handler) GetDistrictsSitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := map[string]string{"section": "districts", "site": h.opts.SiteURL}

	var body []byte
	if h.cache.Get(ctx, cache.TypeSitemap, params, &body) {
		writeXML(w, body)
		return
	}

	list, err := h.svc.DistrictList(ctx, "")
	if err != nil {
		h.fail(w, r, err, "Error generating sitemap")
		return
	}

	today := h.now().UTC().Format("2006-01-02")
	urlSet := URLSet{XMLNS: sitemapNS, URLs: make([]URL, 0, len(staticPages)+len(list))}
	for _, p := range staticPages {
		urlSet.URLs = append(urlSet.URLs, URL{
			Loc:        h.opts.SiteURL + p.path,
			LastMod:    today,
			ChangeFreq: "daily",
			Priority:   p.priority,
		})
	}
	for _, d := range list {
		urlSet.URLs = append(urlSet.URLs, URL{
			Loc:        fmt.Sprintf("%s/district/%s", h.opts.SiteURL, d.Code),
			LastMod:    today,
			ChangeFreq: "weekly",
			Priority:   0.8,
		})
	}

	output, err := xml.MarshalIndent(urlSet, "", "  ")
	if err != nil {
		h.fail(w, r, err, "Error generating sitemap")
		return
	}
	body = append([]byte(xml.Header), output...)
	h.cache.Set(ctx, cache.TypeSitemap, params, body, cache.TTLSitemap)
	writeXML(w, body)
}
