package model

import "backoffice-service/internal/schema"

// Role is the closed set of roles a user can hold. Adding a role means
// updating the visibility rules in the user DAO by hand; they are not
// data-driven.
type Role string

const (
	// RoleAdmin is the platform administrator.
	RoleAdmin Role = "admin"
	// RoleManager manages one or more buildings (tenant-admin authority).
	RoleManager Role = "manager"
	// RoleCompany is a supplier of the company class.
	RoleCompany Role = "company"
	// RoleDesigner is a supplier of the professional class.
	RoleDesigner Role = "designer"
	// RoleResident is the default role.
	RoleResident Role = "resident"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCompany, RoleDesigner, RoleResident:
		return true
	}
	return false
}

// IsSupplier reports whether r is one of the supplier classes, for which
// the sponsored flag is meaningful.
func (r Role) IsSupplier() bool {
	return r == RoleCompany || r == RoleDesigner
}

// IsTenantScoped reports whether building membership partitions this
// role's visibility.
func (r Role) IsTenantScoped() bool {
	return r == RoleManager || r == RoleResident || r.IsSupplier()
}

// PersonType selects the national document format: CPF for individuals,
// CNPJ for companies.
type PersonType string

const (
	PersonIndividual PersonType = "individual"
	PersonCompany    PersonType = "company"
)

// Profile carries the role-conditional attributes. Only the fields the
// role requires are populated; the rest stay empty.
type Profile struct {
	CompanyName     string   `json:"companyName,omitempty"`
	ProfessionalReg string   `json:"professionalReg,omitempty"`
	Formation       string   `json:"formation,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// User is the persisted user record.
type User struct {
	Base
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	AltEmail         string     `json:"altEmail,omitempty"`
	Password         string     `json:"password,omitempty"`
	Role             Role       `json:"role"`
	PersonType       PersonType `json:"personType"`
	NumDocFed        string     `json:"numDocFed"`
	BuildingIDs      []string   `json:"buildingIds,omitempty"`
	LastBuildingIDs  []string   `json:"lastBuildingIds,omitempty"`
	ActiveBuildingID *string    `json:"activeBuildingId,omitempty"`
	Sponsored        bool       `json:"sponsored"`
	Profile          *Profile   `json:"profile,omitempty"`
}

// BelongsTo reports whether the user is scoped to the given building.
func (u *User) BelongsTo(buildingID string) bool {
	for _, id := range u.BuildingIDs {
		if id == buildingID {
			return true
		}
	}
	return false
}

// SharesBuilding reports whether the two users have at least one
// building in common.
func (u *User) SharesBuilding(other *User) bool {
	for _, id := range other.BuildingIDs {
		if u.BelongsTo(id) {
			return true
		}
	}
	return false
}

// Redacted returns a copy with the password removed, for returning the
// record to callers that do not own it.
func (u *User) Redacted() *User {
	cp := *u
	cp.Password = ""
	return &cp
}

// UserSchema declares the user shape for the schema validator. Base
// fields and requireds are merged in by schema.New.
func UserSchema(collection string) *schema.Schema {
	return schema.New(
		collection,
		[]string{"name", "email", "role", "personType", "numDocFed"},
		map[string]schema.Field{
			"name":             {Type: schema.TypeString},
			"email":            {Type: schema.TypeString},
			"altEmail":         {Type: schema.TypeString, Nullable: true},
			"password":         {Type: schema.TypeString, Nullable: true},
			"role":             {Type: schema.TypeString},
			"personType":       {Type: schema.TypeString},
			"numDocFed":        {Type: schema.TypeString},
			"buildingIds":      {Type: schema.TypeArray, Items: &schema.Field{Type: schema.TypeString}},
			"lastBuildingIds":  {Type: schema.TypeArray, Items: &schema.Field{Type: schema.TypeString}},
			"activeBuildingId": {Type: schema.TypeString, Nullable: true},
			"sponsored":        {Type: schema.TypeBoolean},
			"profile":          {Type: schema.TypeObject, Nullable: true},
		},
	)
}
