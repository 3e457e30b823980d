package access

import (
	"sort"
	"strings"
)

// Areas gated in code.
const (
	AreaCustomers  = "customers"
	AreaEmployees  = "employees"
	AreaItems      = "items"
	AreaWarehouses = "warehouses"
	AreaReceiving  = "receiving"
	AreaScheduling = "scheduling"
	AreaTasks      = "tasks"
	AreaSettings   = "settings"
)

// Sub-areas gated in code.
const (
	ViewCustomers  = "view_customers"
	AddCustomer    = "add_customer"
	EditCustomer   = "edit_customer"
	DeleteCustomer = "delete_customer"

	ViewEmployees   = "view_employees"
	UserPermissions = "user_permissions"
	EmulateUser     = "emulate_user"

	ViewWarehouses  = "view_warehouses"
	AddWarehouse    = "add_warehouse"
	EditWarehouse   = "edit_warehouse"
	DeleteWarehouse = "delete_warehouse"

	TaskBoard = "task_board"
	EditTask  = "edit_task"

	ViewRoles       = "view_roles"
	EditRoles       = "edit_roles"
	RolePermissions = "role_permissions"
	ViewAudit       = "view_audit"
)

// Registry maps each area the code gates on to the sub-areas it checks.
type Registry map[string][]string

// DefaultRegistry lists every area/sub-area pair referenced by route guards.
func DefaultRegistry() Registry {
	return Registry{
		AreaCustomers:  {ViewCustomers, AddCustomer, EditCustomer, DeleteCustomer},
		AreaEmployees:  {ViewEmployees, UserPermissions, EmulateUser},
		AreaWarehouses: {ViewWarehouses, AddWarehouse, EditWarehouse, DeleteWarehouse},
		AreaTasks:      {TaskBoard, EditTask},
		AreaSettings:   {ViewRoles, EditRoles, RolePermissions, ViewAudit},
	}
}

// Validate compares the registry with the active catalog and returns one entry per
// area or sub-area the code references but the catalog does not offer.
func (r Registry) Validate(catalog *Catalog) []string {
	var missing []string
	for area, subs := range r {
		perm, ok := catalog.Area(area)
		if !ok {
			missing = append(missing, area)
			continue
		}
		for _, sub := range subs {
			if !catalog.Offers(perm.ID, sub) {
				missing = append(missing, area+"."+sub)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// Catalog indexes the active permission definitions.
type Catalog struct {
	byID   map[int64]catalogEntry
	byArea map[string]catalogEntry
	order  []int64
}

type catalogEntry struct {
	Permission
	subs map[string]struct{}
}

func (e catalogEntry) offers(token string) bool {
	_, ok := e.subs[token]
	return ok
}

// NewCatalog indexes perms, ignoring inactive entries and entries whose area name does
// not normalize. Sub-area tokens are normalized; malformed ones are dropped.
func NewCatalog(perms []Permission) *Catalog {
	c := &Catalog{
		byID:   make(map[int64]catalogEntry, len(perms)),
		byArea: make(map[string]catalogEntry, len(perms)),
	}
	for _, p := range perms {
		if !p.IsActive {
			continue
		}
		area, err := NormalizeToken(p.Area)
		if err != nil {
			continue
		}
		entry := catalogEntry{subs: make(map[string]struct{}, len(p.SubAreas))}
		entry.Permission = Permission{ID: p.ID, Area: area, IsActive: true}
		for _, raw := range p.SubAreas {
			token, err := NormalizeToken(raw)
			if err != nil {
				continue
			}
			if _, dup := entry.subs[token]; dup {
				continue
			}
			entry.subs[token] = struct{}{}
			entry.SubAreas = append(entry.SubAreas, token)
		}
		c.byID[p.ID] = entry
		c.byArea[area] = entry
		c.order = append(c.order, p.ID)
	}
	return c
}

// ByID returns the active permission with id.
func (c *Catalog) ByID(id int64) (Permission, bool) {
	if c == nil {
		return Permission{}, false
	}
	e, ok := c.byID[id]
	return e.Permission, ok
}

// Area returns the active permission for the area name.
func (c *Catalog) Area(area string) (Permission, bool) {
	if c == nil {
		return Permission{}, false
	}
	normalized, err := NormalizeToken(area)
	if err != nil {
		return Permission{}, false
	}
	e, ok := c.byArea[normalized]
	return e.Permission, ok
}

// Offers reports whether the active permission id lists token as one of its sub-areas.
func (c *Catalog) Offers(id int64, token string) bool {
	if c == nil {
		return false
	}
	e, ok := c.byID[id]
	return ok && e.offers(token)
}

// Permissions returns the active permissions in load order.
func (c *Catalog) Permissions() []Permission {
	if c == nil {
		return nil
	}
	out := make([]Permission, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Permission)
	}
	return out
}

// ParseSubAreas splits the catalog's sub_areas column.
func ParseSubAreas(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
