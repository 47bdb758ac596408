package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
		"announcement:view",
		"announcement:read",
		"user:change_password",
	},
	"teacher": {
		"quiz:create",
		"quiz:edit-own",
		"quiz:delete-own",
		"quiz:publish",
		"quiz:generate",
		"quiz:view",
		"quiz:stats",
		"attempt:view-all",
		"announcement:create",
		"announcement:publish",
		"announcement:delete-own",
		"announcement:view",
		"users:bulk_upsert",
		"users:list",
		"user:change_password",
	},
	"parent": {
		"announcement:view",
		"announcement:read",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
