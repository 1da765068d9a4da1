package domain

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role discriminates the single user record shape shared by customers and
// venue staff. Capability checks gate on the role instead of subtyping.
type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleCashier    Role = "CASHIER"
	RoleCommercial Role = "COMMERCIAL"
	RoleAdmin      Role = "ADMIN"
)

type User struct {
	ID        int
	FirstName string
	LastName  string
	Email     string
	Password  password
	Role      Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// CanRedeem reports whether the user may drive the redemption workflow.
func (u User) CanRedeem() bool {
	return u.Active && (u.Role == RoleCashier || u.Role == RoleAdmin)
}

type password struct {
	plaintext *string
	Hash      []byte
}

func (p *password) Set(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}

	p.plaintext = &plaintext
	p.Hash = hash

	return nil
}

func (p *password) Matches(plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(p.Hash, []byte(plaintext))
	if err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}

	return true, nil
}

type UserRepository interface {
	GetByID(ctx context.Context, id int) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
