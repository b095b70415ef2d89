package pages

import "gorm.io/gorm"

// PageRecord is a page persisted in the content database.
type PageRecord struct {
	gorm.Model
	Lang        string `gorm:"size:35;uniqueIndex:idx_pages_lang_slug;not null"`
	Slug        string `gorm:"size:255;uniqueIndex:idx_pages_lang_slug;not null"`
	Title       string `gorm:"size:512;not null"`
	Description string `gorm:"type:text"`
	Body        string `gorm:"type:text;not null"`
	Format      string `gorm:"size:16;not null;default:markdown"`
	Draft       bool   `gorm:"not null;default:false"`
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "pages"
}
