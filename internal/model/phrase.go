package model

import "time"

// Phrase is a canned reply template with categorical metadata and a usage counter
type Phrase struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Company      string     `gorm:"type:varchar(255);index" json:"company"`
	Reason       string     `gorm:"type:varchar(255);index" json:"reason"`
	DocumentType string     `gorm:"type:varchar(255)" json:"document_type"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	UsageCount   int        `gorm:"not null;default:0;index" json:"usage_count"` // maintained server-side, see PhraseRepository.RecordUsage
	LastUsedAt   *time.Time `json:"last_used_at"`
	ReviewedBy   string     `gorm:"type:varchar(100)" json:"reviewed_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ReferenceTime is the instant staleness is measured from
func (p *Phrase) ReferenceTime() time.Time {
	if p.LastUsedAt != nil {
		return *p.LastUsedAt
	}
	return p.CreatedAt
}
