package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	FullName     string             `json:"fullName" bson:"full_name"`
	Phone        *string            `json:"phone,omitempty" bson:"phone,omitempty"`
	Role         string             `json:"role" bson:"role"`
	SchoolID     *string            `json:"schoolId,omitempty" bson:"school_id,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Profile is the user shape handed back to callers; it never carries the
// password hash.
type Profile struct {
	ID       primitive.ObjectID `json:"id"`
	Email    string             `json:"email"`
	FullName string             `json:"fullName"`
	Phone    *string            `json:"phone,omitempty"`
	Role     string             `json:"role"`
	SchoolID *string            `json:"schoolId,omitempty"`
}

// Role constants. The institutional set logs in through the Institutional
// Suite, the b2c set through the Professional Suite.
const (
	RoleSuperAdmin = "super_admin"
	RoleCoAdmin    = "co_admin"
	RoleStudent    = "student"
	RoleFaculty    = "faculty"
	RoleB2CStudent = "b2c_student"
	RoleB2CMentor  = "b2c_mentor"
)

// Suite constants: the UX partition gating which roles may authenticate
// through a given entry screen.
const (
	SuiteInstitutional = "institutionalSuite"
	SuiteProfessional  = "professionalSuite"
)

func (u *User) ToProfile() *Profile {
	return &Profile{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
		Role:     u.Role,
		SchoolID: u.SchoolID,
	}
}

// IsInstitutional checks if the user's role belongs to the institutional suite.
func (u *User) IsInstitutional() bool {
	return IsInstitutionalRole(u.Role)
}

// IsProfessional checks if the user's role belongs to the professional suite.
func (u *User) IsProfessional() bool {
	return IsProfessionalRole(u.Role)
}

func IsInstitutionalRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleCoAdmin, RoleStudent, RoleFaculty:
		return true
	}
	return false
}

func IsProfessionalRole(role string) bool {
	switch role {
	case RoleB2CStudent, RoleB2CMentor:
		return true
	}
	return false
}

// IsValidRole validates if role belongs to the fixed enumeration.
func IsValidRole(role string) bool {
	return IsInstitutionalRole(role) || IsProfessionalRole(role)
}
