package models

type User struct {
	ID           uint64 `gorm:"primarykey" json:"id"`
	Email        string `gorm:"type:varchar(150);uniqueIndex;not null" json:"email"`
	FullName     string `gorm:"type:varchar(150);not null" json:"full_name"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`
	IsStaff      bool   `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser  bool   `gorm:"not null;default:false" json:"is_superuser"`
	SoftDeletable

	// Relations
	AuthoredProjects []Project        `gorm:"foreignKey:AuthorID" json:"-"`
	Memberships      []ProjectMember  `gorm:"foreignKey:UserID" json:"-"`
	Assignments      []TaskAssignment `gorm:"foreignKey:UserID" json:"-"`
}

// IsAdmin covers both staff and superusers.
func (u *User) IsAdmin() bool {
	return u.IsStaff || u.IsSuperuser
}

// CanAuthenticate is false for disabled or soft-deleted accounts.
func (u *User) CanAuthenticate() bool {
	return u.IsActive && !u.IsDeleted()
}
