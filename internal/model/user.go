package model

import "time"

// Role тег роли участника. Используется и как роль аккаунта, и как значение cancelled_by.
type Role string

const (
	RolePatient      Role = "patient"
	RoleFamilyMember Role = "family_member"
	RoleDoctor       Role = "doctor"
	RoleSystem       Role = "system"
)

// User аккаунт пользователя бота.
// ID пациента совпадает с ID его аккаунта, ID врача тоже.
type User struct {
	ID           int64     `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	LanguageCode string    `json:"language_code"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsDoctor проверяет, зарегистрирован ли пользователь как врач
func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}

// DisplayName возвращает имя для показа в сообщениях
func (u *User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
