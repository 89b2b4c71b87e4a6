package models

// Attachment depoya yüklenmiş bir ek dosyanın kaydıdır.
type Attachment struct {
	BaseModel
	StorageKey  string `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	FileName    string `gorm:"type:varchar(255);not null" json:"name"`
	ContentType string `gorm:"type:varchar(100)" json:"content_type"`
	Size        int64  `gorm:"not null" json:"size"`
	URL         string `gorm:"type:varchar(500);not null" json:"url"`
	OwnerKey    string `gorm:"type:varchar(80);index" json:"-"`
	Purpose     string `gorm:"type:varchar(60);index" json:"-"` // ör. "ticket" veya "draft/ticket"
}
