package models

import "time"

type Project struct {
	ID        uint64 `gorm:"primarykey" json:"id"`
	Name      string `gorm:"type:varchar(100);index;not null" json:"name"`
	CompanyID uint64 `gorm:"not null;index" json:"company_id"`
	AuthorID  uint64 `gorm:"not null;index" json:"author_id"`
	SoftDeletable

	// Relations
	Company Company         `gorm:"foreignKey:CompanyID" json:"-"`
	Author  User            `gorm:"foreignKey:AuthorID" json:"-"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"-"`
	Tasks   []Task          `gorm:"foreignKey:ProjectID" json:"-"`
}

// ProjectMember is the membership join row between a project and a user.
type ProjectMember struct {
	ProjectID uint64    `gorm:"primarykey" json:"project_id"`
	UserID    uint64    `gorm:"primarykey" json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"-"`
	User    User    `gorm:"foreignKey:UserID" json:"-"`
}

func (p *Project) IsAuthor(userID uint64) bool {
	return p.AuthorID == userID
}

// HasMember reports whether userID is in the members set. Members must be
// preloaded.
func (p *Project) HasMember(userID uint64) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// IsParticipant is true for the author and every member.
func (p *Project) IsParticipant(userID uint64) bool {
	return p.IsAuthor(userID) || p.HasMember(userID)
}
