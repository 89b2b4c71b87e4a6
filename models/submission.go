package models

// SubmissionStatus kesin gönderimin işlenme durumu.
type SubmissionStatus string

const (
	SubmissionStatusNew      SubmissionStatus = "new"
	SubmissionStatusRead     SubmissionStatus = "read"
	SubmissionStatusResolved SubmissionStatus = "resolved"
)

// Submission iletişim formu veya destek talebinin kesin gönderimidir.
type Submission struct {
	BaseModel
	ReferenceNo string           `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	FormKind    string           `gorm:"type:varchar(40);not null;index" json:"kind"`
	OwnerKey    string           `gorm:"type:varchar(80);not null;index;uniqueIndex:idx_submission_owner_instance" json:"-"`
	InstanceID  string           `gorm:"type:varchar(36);uniqueIndex:idx_submission_owner_instance" json:"-"` // sahip başına aynı form örneği iki kez kaydedilmez
	Fields      map[string]any   `gorm:"serializer:json;type:jsonb" json:"fields"`
	Status      SubmissionStatus `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	RemoteAddr  string           `gorm:"type:varchar(64)" json:"-"`
}
