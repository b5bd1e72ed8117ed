package models

// Industry is the tenant-isolation dimension. Every business record carries
// at most one industry tag; a nil tag means the record is unscoped.
type Industry struct {
	Base
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"`
	Description string `json:"description,omitempty"`
}

func (Industry) TableName() string {
	return "industries"
}
