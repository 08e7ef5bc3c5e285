package model

import (
    "fmt"
    "strings"
    "time"
)

// Role is the fixed classification of a user.  It decides which stage
// group of a crop record the user may write.  The set is closed: every
// switch over Role in this module lists all three values.
type Role string

const (
    RoleFarmer      Role = "farmer"
    RoleDistributor Role = "distributor"
    RoleRetailer    Role = "retailer"
)

// Roles lists every valid role in lifecycle order.
var Roles = []Role{RoleFarmer, RoleDistributor, RoleRetailer}

// ParseRole normalizes s and returns the matching Role.  Unknown values
// produce an error rather than a default role.
func ParseRole(s string) (Role, error) {
    switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
    case RoleFarmer, RoleDistributor, RoleRetailer:
        return r, nil
    default:
        return "", fmt.Errorf("unknown role %q", s)
    }
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    _, err := ParseRole(string(r))
    return err == nil
}

// Group returns the crop record group owned by r.
func (r Role) Group() Group {
    switch r {
    case RoleFarmer:
        return GroupFarmer
    case RoleDistributor:
        return GroupDistributor
    case RoleRetailer:
        return GroupRetailer
    }
    panic(fmt.Sprintf("model: role %q has no group", string(r)))
}

// User represents an account as stored in the `users` table.  The
// password hash never leaves the process: it is excluded from JSON.
//
// Fields:
//  ID           – UUID assigned at signup.
//  Username     – unique display name.
//  Email        – unique, lower-cased login identifier.
//  PasswordHash – bcrypt hash.
//  Role         – farmer, distributor or retailer; immutable.
//  Number       – phone number.
//  Address      – postal address.
type User struct {
    ID           string    `json:"id"`
    Username     string    `json:"username"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"-"`
    Role         Role      `json:"role"`
    Number       string    `json:"number"`
    Address      string    `json:"address"`
    CreatedAt    time.Time `json:"createdAt"`
    UpdatedAt    time.Time `json:"updatedAt"`
}
