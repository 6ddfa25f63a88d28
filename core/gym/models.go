package gym

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/gymhub/contentdesk/core"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

var AllRoles = []string{RoleAdmin, RoleMember}

// Gym is a tenant: every assignment, submission and progress row belongs to exactly one Gym.
type Gym struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	PINHash   []byte    `json:"-"`
	PINLookup string    `json:"-"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (g Gym) IsAdmin() bool { return g.Role == RoleAdmin }

// Scope is the tenant scope a session of this gym acts in.
func (g Gym) Scope() core.Scope {
	return core.Scope{GymID: g.ID, Admin: g.IsAdmin()}
}

// SetPIN stores the bcrypt hash of pin and its keyed lookup digest.
func (g *Gym) SetPIN(pin, secretKey string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	g.PINHash = hash
	g.PINLookup = PINLookup(pin, secretKey)
	return nil
}

func (g *Gym) CheckPIN(pin string) error {
	return bcrypt.CompareHashAndPassword(g.PINHash, []byte(pin))
}

// PINLookup is the deterministic digest gyms are found by at login.
func PINLookup(pin, secretKey string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	_, _ = h.Write([]byte(pin))
	return hex.EncodeToString(h.Sum(nil))
}

// NewGym contains information needed to provision a new Gym.
type NewGym struct {
	Name     string `json:"name" validate:"required,notblank"`
	Location string `json:"location"`
	Email    string `json:"email" validate:"omitempty,email"`
	PIN      string `json:"pin" validate:"required,pin"`
	Role     string `json:"role" validate:"omitempty,oneof=admin member"`
}

func (ng *NewGym) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Location = core.CleanString(ng.Location)
	ng.Email = core.CleanString(ng.Email, true /* lower */)
	ng.PIN = core.CleanString(ng.PIN)
	if ng.Role == "" {
		ng.Role = RoleMember
	}
	return validate.Struct(ng)
}

type LoginRequest struct {
	PIN string `json:"pin" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.PIN = core.CleanString(lr.PIN)
	return validate.Struct(lr)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
