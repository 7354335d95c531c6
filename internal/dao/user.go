package dao

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"backoffice-service/internal/apierr"
	"backoffice-service/internal/building"
	"backoffice-service/internal/docfed"
	"backoffice-service/internal/mail"
	"backoffice-service/internal/model"
	"backoffice-service/internal/store"
)

// UsersCollection is the store collection user records live in.
const UsersCollection = "users"

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like a deliverable address.
func ValidEmail(s string) bool {
	return emailRx.MatchString(s)
}

// placeholderPassword seeds newly created accounts until the owner runs
// the signup flow.
// TODO: route initial credentials through the signup flow and drop the
// placeholder.
const placeholderPassword = "asd123"

// UserDAO layers role- and building-scope policy over the generic DAO
// for the user entity.
type UserDAO struct {
	dao       *DAO[*model.User]
	buildings building.Service
	mailer    mail.Mailer
	log       *zap.Logger
	hash      func(plain string) (string, error)
}

// NewUserDAO wires the user DAO. hash is the password hashing function
// (bcrypt in production).
func NewUserDAO(s store.Store, buildings building.Service, mailer mail.Mailer, hash func(string) (string, error), log *zap.Logger) *UserDAO {
	cfg := Config[*model.User]{
		Collection:   UsersCollection,
		Schema:       model.UserSchema(UsersCollection),
		DeletePolicy: SoftDelete,
		New:          func() *model.User { return &model.User{} },
		Parse:        parseUser,
	}
	return &UserDAO{
		dao:       New(s, cfg, log),
		buildings: buildings,
		mailer:    mailer,
		log:       log,
		hash:      hash,
	}
}

// WithClock overrides the wall clock, for tests.
func (u *UserDAO) WithClock(now func() time.Time) *UserDAO {
	u.dao.WithClock(now)
	return u
}

// parseUser is the normalization hook for new user records.
func parseUser(candidate *model.User, now time.Time) (*model.User, error) {
	candidate.Normalize(now)
	if candidate.Role == "" {
		candidate.Role = model.RoleResident
	}
	if candidate.PersonType == "" {
		candidate.PersonType = model.PersonIndividual
	}
	return candidate, nil
}

// Find retrieves one user, subject to the acting principal's visibility.
// Records outside the principal's scope surface as not-found; the two
// outcomes are indistinguishable by policy.
func (u *UserDAO) Find(ctx context.Context, id string, principal *model.User) (*model.User, error) {
	actor, err := u.resolvePrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}

	user, err := u.dao.Find(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	visible, err := u.canSee(ctx, actor, user)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, apierr.NotFound("user not found")
	}
	return u.redactFor(actor, user), nil
}

// FindAll returns the users matching query that the principal is allowed
// to see.
func (u *UserDAO) FindAll(ctx context.Context, query store.Filter, principal *model.User) ([]*model.User, error) {
	actor, err := u.resolvePrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}

	users, err := u.dao.FindAll(ctx, query, actor)
	if err != nil {
		return nil, err
	}

	out := make([]*model.User, 0, len(users))
	for _, user := range users {
		visible, err := u.canSee(ctx, actor, user)
		if err != nil {
			return nil, err
		}
		if visible {
			out = append(out, u.redactFor(actor, user))
		}
	}
	return out, nil
}

// Create inserts a new user on behalf of an administrator or a
// tenant-admin of the principal's active building.
func (u *UserDAO) Create(ctx context.Context, candidate *model.User, principal *model.User) (*model.User, error) {
	actor, err := u.resolvePrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}

	isAdmin := actor.Role == model.RoleAdmin
	if !isAdmin {
		tenantAdmin, err := u.actorIsTenantAdmin(ctx, actor)
		if err != nil {
			return nil, err
		}
		if !tenantAdmin {
			return nil, apierr.Authorization("no permission to create users")
		}
	}

	data, err := parseUser(candidate, u.dao.now())
	if err != nil {
		return nil, err
	}

	// Supplier scope assignment depends on who creates the record:
	// administrators create platform-sponsored suppliers, tenant-admins
	// create suppliers bound to their active building.
	if data.Role.IsSupplier() {
		if isAdmin {
			data.Sponsored = true
			data.BuildingIDs = nil
			data.ActiveBuildingID = nil
		} else {
			data.Sponsored = false
			data.BuildingIDs = []string{*actor.ActiveBuildingID}
			data.ActiveBuildingID = nil
		}
	} else {
		data.Sponsored = false
		clearSupplierProfile(data)
	}

	if err := u.validateCandidate(ctx, data, ""); err != nil {
		return nil, err
	}

	hashed, err := u.hash(placeholderPassword)
	if err != nil {
		return nil, apierr.Infrastructure("password hashing failed", err)
	}
	data.Password = hashed

	created, err := u.dao.Create(ctx, data, actor)
	if err != nil {
		return nil, err
	}
	u.log.Info("user created",
		zap.String("id", created.ID),
		zap.String("role", string(created.Role)),
		zap.String("created_by", actor.ID))
	return created.Redacted(), nil
}

// Update applies a partial patch to a user. Protected fields are
// stripped from the patch before the merge, the merged record is
// re-validated, and building-scope changes for tenant-scoped roles
// trigger the association notification.
func (u *UserDAO) Update(ctx context.Context, id string, principal *model.User, patch store.Document) (*model.User, error) {
	actor, err := u.resolvePrincipal(ctx, principal)
	if err != nil {
		return nil, err
	}

	current, err := u.dao.Find(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	isAdmin := actor.Role == model.RoleAdmin
	if !isAdmin && actor.ID != current.ID {
		allowed, err := u.actorAdminsShared(ctx, actor, current)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apierr.Authorization("no permission to update the user")
		}
	}

	clean := stripProtected(patch, isAdmin)

	// tags and sponsorship only mean something for suppliers; the role
	// itself is protected, so the resulting role is the current one
	if !current.Role.IsSupplier() {
		delete(clean, "sponsored")
		delete(clean, "profile")
	} else if raw, ok := clean["profile"].(map[string]any); ok && actor.Role != model.RoleAdmin {
		delete(raw, "tags")
	}

	if rawEmail, ok := clean["email"]; ok {
		email, _ := rawEmail.(string)
		if !ValidEmail(email) {
			return nil, apierr.Validation("the new email is not valid",
				apierr.Violation{Field: "email", Expected: "email", Actual: email})
		}
		if err := u.checkEmailUnique(ctx, email, current.ID); err != nil {
			return nil, err
		}
	}
	if rawAlt, ok := clean["altEmail"]; ok {
		alt, _ := rawAlt.(string)
		if alt != "" {
			if !ValidEmail(alt) {
				return nil, apierr.Validation("the new alternative email is not valid",
					apierr.Violation{Field: "altEmail", Expected: "email", Actual: alt})
			}
			if err := u.checkEmailUnique(ctx, alt, current.ID); err != nil {
				return nil, err
			}
		}
	}

	if raw, ok := clean["activeBuildingId"]; ok {
		target, _ := raw.(string)
		if target != "" && !memberAfterPatch(current, clean, target) {
			return nil, apierr.Validation("the active building must be one of the user's buildings",
				apierr.Violation{Field: "activeBuildingId", Expected: "member building", Actual: target})
		}
	}

	scopeChanged := false
	if raw, ok := clean["buildingIds"]; ok {
		next := toStringSlice(raw)
		if !sameStringSet(current.BuildingIDs, next) {
			scopeChanged = true
			// snapshot the previous scope so the change is detectable
			clean["lastBuildingIds"] = append([]string{}, current.BuildingIDs...)
		}
	}

	updated, err := u.dao.Update(ctx, id, actor, clean)
	if err != nil {
		return nil, err
	}

	if scopeChanged && updated.Role.IsTenantScoped() {
		if err := u.mailer.Send(ctx, mail.KindAssociation, updated.Email, map[string]string{
			"name": updated.Name,
		}); err != nil {
			// notification failures never roll back the persisted update
			u.log.Warn("association mail failed",
				zap.String("id", updated.ID), zap.Error(err))
		}
	}

	u.log.Info("user updated",
		zap.String("id", updated.ID),
		zap.String("updated_by", actor.ID),
		zap.Bool("scope_changed", scopeChanged))
	return u.redactFor(actor, updated), nil
}

// Delete is policy-forbidden for users: dependents would be orphaned and
// reassignment is unresolved. Soft-deactivation happens through Update
// flows owned by administrators.
func (u *UserDAO) Delete(_ context.Context, _ string, _ *model.User) (bool, error) {
	return false, apierr.Authorization("users cannot be removed")
}

// PaginatedQuery pages through the users visible to the principal.
func (u *UserDAO) PaginatedQuery(ctx context.Context, search store.Filter, principal *model.User, page, limit int, order []OrderBy) (*ResultSearch[*model.User], error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}

	// visibility filtering must run before pagination so page bounds
	// apply to the visible set, not the raw one
	users, err := u.FindAll(ctx, search, principal)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		order = []OrderBy{{Field: "createdAt"}}
	}
	sortUsers(users, order)

	total := len(users)
	offset := limit * (page - 1)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return &ResultSearch[*model.User]{Page: page, Total: total, Result: users[offset:end]}, nil
}

// Register creates a user without an acting principal. Only the signup
// flow calls it; password must already be hashed.
func (u *UserDAO) Register(ctx context.Context, candidate *model.User) (*model.User, error) {
	data, err := parseUser(candidate, u.dao.now())
	if err != nil {
		return nil, err
	}
	if data.Role == model.RoleAdmin {
		return nil, apierr.Authorization("administrators cannot be self-registered")
	}
	if !data.Role.IsSupplier() {
		data.Sponsored = false
		clearSupplierProfile(data)
	}
	if err := u.validateCandidate(ctx, data, ""); err != nil {
		return nil, err
	}
	if data.Password == "" {
		return nil, apierr.Validation("the password was not set",
			apierr.Violation{Field: "password", Expected: "required", Actual: "missing"})
	}
	created, err := u.dao.Create(ctx, data, nil)
	if err != nil {
		return nil, err
	}
	u.log.Info("user registered", zap.String("id", created.ID))
	return created.Redacted(), nil
}

// SetPassword persists a new password hash for the user. Used by the
// password-reset flow.
func (u *UserDAO) SetPassword(ctx context.Context, id, hashed string) error {
	_, err := u.dao.Update(ctx, id, nil, store.Document{"password": hashed})
	return err
}

// FindByEmail returns the active user owning the address, unredacted.
// Callers on the credential path need the stored hash.
func (u *UserDAO) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	users, err := u.dao.FindAll(ctx, store.Filter{"email": email}, nil)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user not found")
	}
	return users[0], nil
}

func (u *UserDAO) resolvePrincipal(ctx context.Context, principal *model.User) (*model.User, error) {
	if principal == nil || principal.ID == "" {
		return nil, apierr.Authorization("missing principal")
	}
	// the stored record is authoritative: principals may not assert
	// their own role
	actor, err := u.dao.Find(ctx, principal.ID, nil)
	if err != nil {
		if apierr.IsKind(err, apierr.KindNotFound) {
			return nil, apierr.Authorization("unknown principal")
		}
		return nil, err
	}
	return actor, nil
}

func (u *UserDAO) canSee(ctx context.Context, actor, target *model.User) (bool, error) {
	if actor.Role == model.RoleAdmin || actor.ID == target.ID {
		return true, nil
	}
	if target.Role.IsSupplier() {
		if target.Sponsored {
			return true, nil
		}
		return actor.SharesBuilding(target), nil
	}
	return u.actorAdminsShared(ctx, actor, target)
}

// actorAdminsShared reports whether actor holds tenant-admin authority
// over at least one building shared with target.
func (u *UserDAO) actorAdminsShared(ctx context.Context, actor, target *model.User) (bool, error) {
	for _, id := range target.BuildingIDs {
		member, err := u.buildings.UserBelongsToBuilding(ctx, actor, id)
		if err != nil {
			return false, apierr.Infrastructure("building lookup failed", err)
		}
		if !member {
			continue
		}
		admin, err := u.buildings.UserIsAdminOfBuilding(ctx, actor, id)
		if err != nil {
			return false, apierr.Infrastructure("building lookup failed", err)
		}
		if admin {
			return true, nil
		}
	}
	return false, nil
}

func (u *UserDAO) actorIsTenantAdmin(ctx context.Context, actor *model.User) (bool, error) {
	if actor.ActiveBuildingID == nil || *actor.ActiveBuildingID == "" {
		return false, nil
	}
	admin, err := u.buildings.UserIsAdminOfBuilding(ctx, actor, *actor.ActiveBuildingID)
	if err != nil {
		return false, apierr.Infrastructure("building lookup failed", err)
	}
	return admin, nil
}

// redactFor hides the password hash from everyone but the record's
// owner. Internal callers that need the hash go through FindByEmail.
func (u *UserDAO) redactFor(actor, target *model.User) *model.User {
	if actor != nil && actor.ID == target.ID {
		return target
	}
	return target.Redacted()
}

// validateCandidate runs the business-rule checks shared by Create and
// Register: schema shape, uniqueness, document checksum, email format
// and role-conditional required fields. excludeID skips one record in
// the uniqueness scan.
func (u *UserDAO) validateCandidate(ctx context.Context, data *model.User, excludeID string) error {
	if !data.Role.Valid() {
		return apierr.Validation("unknown role",
			apierr.Violation{Field: "role", Expected: "known role", Actual: string(data.Role)})
	}

	doc, err := model.ToDocument(data)
	if err != nil {
		return apierr.Infrastructure("record encoding failed", err)
	}
	if violations := u.dao.cfg.Schema.Validate(doc); len(violations) > 0 {
		return apierr.Validation("data entry error", violations...)
	}

	existing, err := u.dao.FindAll(ctx, nil, nil)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == data.ID || (excludeID != "" && other.ID == excludeID) {
			continue
		}
		if other.NumDocFed == data.NumDocFed {
			return apierr.Conflict("the document already belongs to another user")
		}
		for _, mine := range []string{data.Email, data.AltEmail} {
			if mine == "" {
				continue
			}
			if other.Email == mine || (other.AltEmail != "" && other.AltEmail == mine) {
				return apierr.Conflict("the email already belongs to another user")
			}
		}
	}

	if !docfed.Validate(data.NumDocFed, data.PersonType) {
		return apierr.Validation("the federal document is not valid",
			apierr.Violation{Field: "numDocFed", Expected: string(data.PersonType) + " document", Actual: data.NumDocFed})
	}
	if !ValidEmail(data.Email) {
		return apierr.Validation("the email is not valid",
			apierr.Violation{Field: "email", Expected: "email", Actual: data.Email})
	}
	if data.AltEmail != "" && !ValidEmail(data.AltEmail) {
		return apierr.Validation("the alternative email is not valid",
			apierr.Violation{Field: "altEmail", Expected: "email", Actual: data.AltEmail})
	}

	switch data.Role {
	case model.RoleCompany:
		if data.Profile == nil || data.Profile.CompanyName == "" {
			return apierr.Validation("company users need a company name",
				apierr.Violation{Field: "profile.companyName", Expected: "required", Actual: "missing"})
		}
	case model.RoleDesigner:
		if data.Profile == nil || data.Profile.ProfessionalReg == "" || data.Profile.Formation == "" {
			return apierr.Validation("designer users need registration and formation",
				apierr.Violation{Field: "profile", Expected: "professionalReg and formation", Actual: "missing"})
		}
	}
	return nil
}

func (u *UserDAO) checkEmailUnique(ctx context.Context, email, selfID string) error {
	existing, err := u.dao.FindAll(ctx, nil, nil)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == selfID {
			continue
		}
		if other.Email == email || (other.AltEmail != "" && other.AltEmail == email) {
			return apierr.Conflict("the new email already belongs to another user")
		}
	}
	return nil
}

// protectedFields can never be set through the user update path.
var protectedFields = []string{
	"id", "active", "createdAt", "updatedAt",
	"numDocFed", "role", "personType", "password", "lastBuildingIds",
}

// tenantScopeFields additionally require administrator rights.
var tenantScopeFields = []string{"buildingIds", "sponsored"}

// clearSupplierProfile drops the role-conditional payload when the role
// does not call for one.
func clearSupplierProfile(u *model.User) {
	u.Profile = nil
}

func stripProtected(patch store.Document, isAdmin bool) store.Document {
	clean := store.Clone(patch)
	for _, f := range protectedFields {
		delete(clean, f)
	}
	if !isAdmin {
		for _, f := range tenantScopeFields {
			delete(clean, f)
		}
	}
	return clean
}

func memberAfterPatch(current *model.User, patch store.Document, buildingID string) bool {
	ids := current.BuildingIDs
	if raw, ok := patch["buildingIds"]; ok {
		ids = toStringSlice(raw)
	}
	for _, id := range ids {
		if id == buildingID {
			return true
		}
	}
	return false
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, s := range a {
		set[s]++
	}
	for _, s := range b {
		if set[s] == 0 {
			return false
		}
		set[s]--
	}
	return true
}

func sortUsers(users []*model.User, order []OrderBy) {
	docs := make([]store.Document, len(users))
	for i, user := range users {
		doc, err := model.ToDocument(user)
		if err != nil {
			return
		}
		docs[i] = doc
		doc["__idx"] = i
	}
	sortDocs(docs, order)
	sorted := make([]*model.User, len(users))
	for i, doc := range docs {
		sorted[i] = users[doc["__idx"].(int)]
	}
	copy(users, sorted)
}
