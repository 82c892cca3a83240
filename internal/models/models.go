package models

type User struct {
	Username       string `gorm:"primaryKey"  json:"username"`
	HashedPassword string `gorm:"not null"    json:"-"`
}

type Product struct {
	ID            int     `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name          string  `gorm:"not null"                  json:"name"`
	Description   string  `gorm:"not null"                  json:"description"`
	Price         float64 `gorm:"not null"                  json:"price"`
	Category      string  `gorm:"not null"                  json:"category"`
	IsFavorite    bool    `gorm:"default:false"             json:"is_favorite"`
	ImageURL      *string `json:"image_url"`
	OwnerUsername string  `gorm:"index;not null"            json:"owner_username"`
}
