package user

import "time"

type User struct {
	ID           int64      `gorm:"primaryKey"`
	Email        string     `gorm:"column:email;uniqueIndex:idx_users_email;not null"`
	EmployeeID   string     `gorm:"column:employee_id;uniqueIndex:idx_users_employee_id;not null"`
	FirstName    string     `gorm:"column:first_name;not null"`
	LastName     string     `gorm:"column:last_name;not null"`
	Department   string     `gorm:"column:department;index"`
	Position     string     `gorm:"column:position"`
	Role         string     `gorm:"column:role;not null;index"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	Phone        string     `gorm:"column:phone"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
