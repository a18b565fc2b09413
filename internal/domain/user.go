package domain

import "time"

const (
	RoleAdmin   = "ADMIN"
	RoleCashier = "CASHIER"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	StoreIDs  []string  `json:"store_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanOperate reports whether the user is a member of the store.
func (u User) CanOperate(storeID string) bool {
	for _, id := range u.StoreIDs {
		if id == storeID {
			return true
		}
	}

	return false
}
