package entity

import "time"

// User wallet manzili bilan ro'yxatdan o'tgan foydalanuvchi
type User struct {
	Username  string    `json:"username"`
	Address   string    `json:"address"`
	DID       string    `json:"did"`
	CreatedAt time.Time `json:"createdAt"`
}
