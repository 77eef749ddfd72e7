package model

import "time"

// Doctor профиль врача. AccountID совпадает с users.id
type Doctor struct {
	AccountID int64     `json:"account_id"`
	FullName  string    `json:"full_name"`
	Specialty string    `json:"specialty"`
	Timezone  string    `json:"timezone"` // IANA, например "Europe/Moscow"
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Location возвращает часовой пояс врача. Неизвестная зона трактуется как UTC
func (d *Doctor) Location() *time.Location {
	if d.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
