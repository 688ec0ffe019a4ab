package models

import "time"

type User struct {
	ID          string    `bson:"_id" json:"id"`
	Email       string    `bson:"email" json:"email"`
	DisplayName string    `bson:"displayName" json:"displayName"`
	Password    string    `bson:"password" json:"-"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	LastLogin   time.Time `bson:"lastLogin" json:"lastLogin"`
	// PasswordChangedAt is zero until the first reset.
	PasswordChangedAt time.Time `bson:"passwordChangedAt,omitempty" json:"-"`
}

// IssuedBeforePasswordChange reports whether a token issued at issuedAt
// predates the current password. Token times have second precision, so
// the change time is truncated before comparing.
func (u *User) IssuedBeforePasswordChange(issuedAt time.Time) bool {
	if u.PasswordChangedAt.IsZero() {
		return false
	}
	return issuedAt.Before(u.PasswordChangedAt.Truncate(time.Second))
}
