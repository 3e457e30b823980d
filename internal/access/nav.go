package access

// NavItem is one entry of the authenticated shell's menu. Items with SubArea gate on that
// capability; items with only Area gate on area reachability; items with neither are
// always visible. A group is shown only when one of its children is.
type NavItem struct {
	Label    string    `json:"label"`
	Path     string    `json:"path,omitempty"`
	Area     string    `json:"-"`
	SubArea  string    `json:"-"`
	Children []NavItem `json:"children,omitempty"`
}

// DefaultNav is the application menu.
func DefaultNav() []NavItem {
	return []NavItem{
		{Label: "Home", Path: "/"},
		{Label: "Customers", Path: "/customers", Area: AreaCustomers},
		{Label: "Employees", Path: "/employees", Area: AreaEmployees, SubArea: ViewEmployees},
		{Label: "Inventory", Children: []NavItem{
			{Label: "Items", Path: "/items", Area: AreaItems},
			{Label: "Warehouses", Path: "/warehouses", Area: AreaWarehouses},
			{Label: "Receiving", Path: "/receiving", Area: AreaReceiving},
		}},
		{Label: "Scheduling", Path: "/scheduling", Area: AreaScheduling},
		{Label: "Tasks", Children: []NavItem{
			{Label: "Task Board", Path: "/tasks/board", Area: AreaTasks, SubArea: TaskBoard},
		}},
		{Label: "Settings", Children: []NavItem{
			{Label: "Roles", Path: "/roles", Area: AreaSettings, SubArea: ViewRoles},
			{Label: "Role Permissions", Path: "/access/roles", Area: AreaSettings, SubArea: RolePermissions},
			{Label: "Audit Log", Path: "/audit", Area: AreaSettings, SubArea: ViewAudit},
		}},
	}
}

// VisibleNav filters items down to what set allows.
func VisibleNav(set CombinedSet, items []NavItem) []NavItem {
	out := make([]NavItem, 0, len(items))
	for _, item := range items {
		if len(item.Children) > 0 {
			children := VisibleNav(set, item.Children)
			if len(children) == 0 {
				continue
			}
			item.Children = children
			out = append(out, item)
			continue
		}
		if navAllowed(set, item) {
			out = append(out, item)
		}
	}
	return out
}

func navAllowed(set CombinedSet, item NavItem) bool {
	switch {
	case item.SubArea != "":
		return HasAccess(set, item.Area, item.SubArea)
	case item.Area != "":
		return HasAreaAccess(set, item.Area)
	default:
		return true
	}
}
