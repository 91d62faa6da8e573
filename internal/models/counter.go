package models

// Counter holds a named sequence, e.g. the BOM human id.
type Counter struct {
	Name string `gorm:"primaryKey;size:50"`
	Seq  int64  `gorm:"not null;default:0"`
}
