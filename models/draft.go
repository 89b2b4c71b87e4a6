package models

import "time"

// Draft bir oturumun (veya kullanıcının) bir form türü için tek taslağıdır.
// Aynı sahip ve tür için gelen her kayıt bu satırın üzerine yazar.
type Draft struct {
	BaseModel
	OwnerKey   string         `gorm:"type:varchar(80);not null;uniqueIndex:idx_draft_owner_kind" json:"-"`
	FormKind   string         `gorm:"type:varchar(40);not null;uniqueIndex:idx_draft_owner_kind" json:"kind"`
	InstanceID string         `gorm:"type:varchar(36);index" json:"instance_id"` // son yazan form örneği
	Fields     map[string]any `gorm:"serializer:json;type:jsonb" json:"fields"`

	AttachmentID    *uint       `gorm:"index" json:"-"`
	Attachment      *Attachment `gorm:"foreignKey:AttachmentID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"attachment,omitempty"`
	AttachmentField string      `gorm:"type:varchar(60)" json:"attachment_field,omitempty"`

	Revision int        `gorm:"not null;default:0" json:"revision"`
	SavedAt  time.Time  `gorm:"index" json:"saved_at"`
	ClosedAt *time.Time `gorm:"index" json:"-"` // InstanceID gönderildiyse dolu; o örneğin geç taslakları yok sayılır
}

// IsClosedFor taslak verilen form örneği için gönderimle kapatılmışsa true döner.
func (d *Draft) IsClosedFor(instanceID string) bool {
	return d.ClosedAt != nil && instanceID != "" && d.InstanceID == instanceID
}
