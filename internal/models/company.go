package models

type Company struct {
	ID   uint64 `gorm:"primarykey" json:"id"`
	Name string `gorm:"type:varchar(100);index;not null" json:"name"`
	SoftDeletable

	// Relations
	Projects []Project `gorm:"foreignKey:CompanyID" json:"-"`
}
