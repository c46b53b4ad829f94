package rbac

// RolePermissions is the default policy. Roles are fixed at signup.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"run:create",
		"run:view",
	},
	"teacher": {
		"question:*",
		"exam:*",
		"run:create",
		"run:view",
	},
	"admin": {
		"*", // everything
	},
}
