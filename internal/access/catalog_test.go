package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCatalogPermissions() []Permission {
	return []Permission{
		{ID: 1, Area: "tasks", SubAreas: []string{"task_board", "edit_task"}, IsActive: true},
		{ID: 2, Area: "customers", SubAreas: []string{"view_customers", "add_customer"}, IsActive: true},
		{ID: 3, Area: "items", SubAreas: []string{"view_items"}, IsActive: true},
	}
}

func TestNewCatalog(t *testing.T) {
	catalog := NewCatalog([]Permission{
		{ID: 1, Area: "Tasks", SubAreas: []string{"Task Board", "task_board", "bad!", "editTask"}, IsActive: true},
		{ID: 2, Area: "archived", SubAreas: []string{"view"}, IsActive: false},
		{ID: 3, Area: "???", IsActive: true},
	})

	perms := catalog.Permissions()
	if assert.Len(t, perms, 1) {
		assert.Equal(t, "tasks", perms[0].Area)
		assert.Equal(t, []string{"task_board", "edit_task"}, perms[0].SubAreas)
	}

	_, ok := catalog.ByID(2)
	assert.False(t, ok)
	perm, ok := catalog.Area(" TASKS")
	assert.True(t, ok)
	assert.Equal(t, int64(1), perm.ID)
	assert.True(t, catalog.Offers(1, "edit_task"))
	assert.False(t, catalog.Offers(1, "delete_task"))
	assert.False(t, catalog.Offers(9, "edit_task"))
}

func TestNilCatalog(t *testing.T) {
	var catalog *Catalog
	_, ok := catalog.ByID(1)
	assert.False(t, ok)
	assert.False(t, catalog.Offers(1, "x"))
	assert.Nil(t, catalog.Permissions())
}

func TestRegistryValidate(t *testing.T) {
	registry := Registry{
		"tasks":     {"task_board", "edit_task"},
		"customers": {"view_customers", "delete_customer"},
		"settings":  {"view_roles"},
	}
	missing := registry.Validate(NewCatalog(testCatalogPermissions()))
	assert.Equal(t, []string{"customers.delete_customer", "settings"}, missing)
}

func TestParseSubAreas(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, ParseSubAreas(" a,, b c ,"))
	assert.Nil(t, ParseSubAreas(""))
}
