package templates

import "handbook/app/internal/domain/site"

// PageDocumentData contains the values embedded in the page layout.
type PageDocumentData struct {
	SiteName    string
	Lang        string
	Title       string
	Description string
	BodyHTML    string
}

// IndexEntry is a single page link on the index.
type IndexEntry struct {
	Title string
	URL   string
}

// IndexSection groups index entries by language.
type IndexSection struct {
	Lang    string
	Entries []IndexEntry
}

// IndexData bundles template data for the site index.
type IndexData struct {
	SiteName string
	Lang     string
	Sections []IndexSection
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	SiteName    string
	Lang        string
	StatusLabel string
	Message     string
}

// NewIndexData groups catalog entries into one section per language, keeping
// the order in which languages first appear.
func NewIndexData(siteName, lang string, entries []site.CatalogEntry) IndexData {
	data := IndexData{SiteName: siteName, Lang: lang}
	positions := make(map[string]int)

	for _, entry := range entries {
		entryLang := string(entry.Params.Lang)
		idx, ok := positions[entryLang]
		if !ok {
			idx = len(data.Sections)
			positions[entryLang] = idx
			data.Sections = append(data.Sections, IndexSection{Lang: entryLang})
		}
		data.Sections[idx].Entries = append(data.Sections[idx].Entries, IndexEntry{
			Title: entry.Title,
			URL:   PageURL(entryLang, string(entry.Params.Slug)),
		})
	}

	return data
}
