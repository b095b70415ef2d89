package pages

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"handbook/app/internal/domain/content"
)

// Repository stores pages in SQLite and serves them as a content store.
type Repository struct {
	db     *gorm.DB
	allow  content.LangSet
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed content store restricted to langs.
// An empty langs list serves every stored language.
func NewRepository(db *gorm.DB, langs []content.Lang, logger *logrus.Logger) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Repository{db: db, allow: content.NewLangSet(langs), logger: logger}, nil
}

var _ content.Store = (*Repository)(nil)

// ListStaticParams returns every published page identity ordered by language and slug.
func (r *Repository) ListStaticParams(ctx context.Context) ([]content.Params, error) {
	var records []PageRecord

	err := r.db.WithContext(ctx).
		Select("lang", "slug").
		Where("draft = ?", false).
		Order("lang ASC, slug ASC").
		Find(&records).Error
	if err != nil {
		r.logError(nil, err, "listing static params")
		return nil, eris.Wrap(err, "listing static params")
	}

	params := make([]content.Params, 0, len(records))
	for _, record := range records {
		lang := content.Lang(record.Lang)
		if !r.allow.Contains(lang) {
			continue
		}
		params = append(params, content.Params{Lang: lang, Slug: content.Slug(record.Slug)})
	}

	content.SortParams(params)
	return params, nil
}

// ReadPage returns the published page for lang and slug.
func (r *Repository) ReadPage(ctx context.Context, lang content.Lang, slug content.Slug) (*content.Page, error) {
	if !r.allow.Contains(lang) {
		return nil, eris.Wrapf(content.ErrPageNotFound, "language %s is not configured", lang)
	}

	var record PageRecord
	err := r.db.WithContext(ctx).
		Where("lang = ? AND slug = ? AND draft = ?", string(lang), string(slug), false).
		First(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, eris.Wrapf(content.ErrPageNotFound, "reading %s/%s", lang, slug)
		}
		r.logError(logrus.Fields{"lang": string(lang), "slug": string(slug)}, err, "fetching page")
		return nil, eris.Wrapf(err, "fetching page: %s/%s", lang, slug)
	}

	return toDomainPage(&record), nil
}

// Upsert inserts the page or replaces the stored copy with the same identity.
func (r *Repository) Upsert(ctx context.Context, page *content.Page, draft bool) error {
	if page == nil {
		return eris.New("page is nil")
	}

	params, err := content.ParseParams(string(page.Lang), string(page.Slug))
	if err != nil {
		return eris.Wrap(err, "validating page identity")
	}
	if strings.TrimSpace(page.Title) == "" {
		return eris.Errorf("page %s has no title", params)
	}

	format := page.Format
	if format == "" {
		format = content.FormatMarkdown
	}

	record := &PageRecord{
		Lang:        string(params.Lang),
		Slug:        string(params.Slug),
		Title:       strings.TrimSpace(page.Title),
		Description: strings.TrimSpace(page.Description),
		Body:        page.Body,
		Format:      string(format),
		Draft:       draft,
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "lang"}, {Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "body", "format", "draft", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		r.logError(logrus.Fields{"lang": record.Lang, "slug": record.Slug}, err, "upserting page")
		return eris.Wrapf(err, "upserting page: %s", params)
	}

	return nil
}

// Count returns the number of stored pages, drafts included.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&PageRecord{}).Count(&count).Error; err != nil {
		r.logError(nil, err, "counting pages")
		return 0, eris.Wrap(err, "counting pages")
	}

	return count, nil
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func toDomainPage(record *PageRecord) *content.Page {
	format := content.Format(record.Format)
	if format == "" {
		format = content.FormatMarkdown
	}

	return &content.Page{
		Params: content.Params{
			Lang: content.Lang(strings.TrimSpace(record.Lang)),
			Slug: content.Slug(strings.TrimSpace(record.Slug)),
		},
		Title:       strings.TrimSpace(record.Title),
		Description: strings.TrimSpace(record.Description),
		Body:        record.Body,
		Format:      format,
	}
}
