package filesystem

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"handbook/app/internal/domain/content"
)

// Options configures a filesystem content store.
type Options struct {
	// Root is the content directory holding one sub-directory per language.
	Root      string
	Languages []content.Lang
	Logger    *logrus.Logger
}

// Store reads pages laid out as <root>/<lang>/<slug>.md or <slug>.html.
type Store struct {
	fsys   fs.FS
	langs  []content.Lang
	allow  content.LangSet
	logger *logrus.Logger
}

var _ content.Store = (*Store)(nil)

var extensions = map[string]content.Format{
	".md":       content.FormatMarkdown,
	".markdown": content.FormatMarkdown,
	".html":     content.FormatHTML,
	".htm":      content.FormatHTML,
}

type frontMatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Draft       bool   `yaml:"draft"`
}

// NewStore opens the content directory described by opts.
func NewStore(opts Options) (*Store, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		return nil, eris.New("content root is required")
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, eris.Wrapf(err, "opening content root: %s", root)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("content root %s is not a directory", root)
	}

	return NewStoreFS(os.DirFS(root), opts.Languages, opts.Logger), nil
}

// NewStoreFS builds a store over an arbitrary filesystem. When langs is empty
// every top-level directory with a valid language tag is enumerated.
func NewStoreFS(fsys fs.FS, langs []content.Lang, logger *logrus.Logger) *Store {
	return &Store{
		fsys:   fsys,
		langs:  append([]content.Lang(nil), langs...),
		allow:  content.NewLangSet(langs),
		logger: logger,
	}
}

// ListStaticParams enumerates every non-draft page, sorted by language and slug.
func (s *Store) ListStaticParams(ctx context.Context) ([]content.Params, error) {
	langs, err := s.languages()
	if err != nil {
		return nil, err
	}

	var params []content.Params
	for _, lang := range langs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		files, err := s.pageFiles(lang)
		if err != nil {
			return nil, err
		}

		for slug, names := range files {
			if len(names) > 1 {
				return nil, eris.Errorf("page %s/%s has multiple sources: %s", lang, slug, strings.Join(names, ", "))
			}

			page, err := s.load(lang, slug, names[0])
			if err != nil {
				return nil, err
			}
			if page == nil {
				s.logDebug(logrus.Fields{"lang": string(lang), "slug": string(slug)}, "skipping draft page")
				continue
			}

			params = append(params, content.Params{Lang: lang, Slug: slug})
		}
	}

	content.SortParams(params)
	return params, nil
}

// ReadPage loads a single page. Drafts and unconfigured languages read as not found.
func (s *Store) ReadPage(ctx context.Context, lang content.Lang, slug content.Slug) (*content.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !s.allow.Contains(lang) {
		return nil, eris.Wrapf(content.ErrPageNotFound, "language %s is not configured", lang)
	}
	if _, err := content.ParseSlug(string(slug)); err != nil {
		return nil, eris.Wrapf(content.ErrPageNotFound, "invalid slug %s", slug)
	}

	var names []string
	for ext := range extensions {
		name := string(slug) + ext
		if _, err := fs.Stat(s.fsys, path.Join(string(lang), name)); err == nil {
			names = append(names, name)
		}
	}

	switch len(names) {
	case 0:
		return nil, eris.Wrapf(content.ErrPageNotFound, "reading %s/%s", lang, slug)
	case 1:
	default:
		return nil, eris.Errorf("page %s/%s has multiple sources: %s", lang, slug, strings.Join(names, ", "))
	}

	page, err := s.load(lang, slug, names[0])
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, eris.Wrapf(content.ErrPageNotFound, "page %s/%s is a draft", lang, slug)
	}

	return page, nil
}

func (s *Store) languages() ([]content.Lang, error) {
	if len(s.langs) > 0 {
		return s.langs, nil
	}

	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, eris.Wrap(err, "listing content languages")
	}

	var langs []content.Lang
	for _, entry := range entries {
		if !entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		lang, err := content.ParseLang(entry.Name())
		if err != nil || string(lang) != entry.Name() {
			s.logDebug(logrus.Fields{"dir": entry.Name()}, "ignoring non-language directory")
			continue
		}
		langs = append(langs, lang)
	}

	return langs, nil
}

// pageFiles groups page files in a language directory by slug.
func (s *Store) pageFiles(lang content.Lang) (map[content.Slug][]string, error) {
	entries, err := fs.ReadDir(s.fsys, string(lang))
	if err != nil {
		if eris.Is(err, fs.ErrNotExist) {
			s.logDebug(logrus.Fields{"lang": string(lang)}, "language directory is missing")
			return nil, nil
		}
		return nil, eris.Wrapf(err, "listing pages for %s", lang)
	}

	files := make(map[content.Slug][]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isHidden(name) {
			continue
		}

		if _, ok := extensions[path.Ext(name)]; !ok {
			continue
		}

		slug, err := content.ParseSlug(strings.TrimSuffix(name, path.Ext(name)))
		if err != nil {
			s.logDebug(logrus.Fields{"lang": string(lang), "file": name}, "ignoring file with invalid slug")
			continue
		}

		files[slug] = append(files[slug], name)
	}

	return files, nil
}

// load parses a page file. It returns nil for drafts.
func (s *Store) load(lang content.Lang, slug content.Slug, name string) (*content.Page, error) {
	filePath := path.Join(string(lang), name)

	data, err := fs.ReadFile(s.fsys, filePath)
	if err != nil {
		return nil, eris.Wrapf(err, "reading page file: %s", filePath)
	}

	var meta frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		return nil, eris.Wrapf(err, "parsing front matter: %s", filePath)
	}
	if meta.Draft {
		return nil, nil
	}

	format := extensions[path.Ext(name)]
	text := strings.TrimLeft(string(body), "\r\n")
	title := strings.TrimSpace(meta.Title)

	if title == "" {
		switch format {
		case content.FormatHTML:
			title = htmlTitle(text)
		default:
			title, text = markdownTitle(text)
		}
	}
	if title == "" {
		title = humanize(slug)
	}

	return &content.Page{
		Params:      content.Params{Lang: lang, Slug: slug},
		Title:       title,
		Description: strings.TrimSpace(meta.Description),
		Body:        text,
		Format:      format,
	}, nil
}

func (s *Store) logDebug(fields logrus.Fields, message string) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(fields).WithField("component", "content.filesystem").Debug(message)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
