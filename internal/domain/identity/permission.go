package identity

import "github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"

type Permission string

const (
	// Punching
	PermissionPunchOwn    Permission = "timecard.punch_own"
	PermissionPunchOthers Permission = "timecard.punch_others"

	// Timecard Management
	PermissionTimecardApprove Permission = "timecard.approve"
	PermissionTimecardManage  Permission = "timecard.manage"

	// Overtime
	PermissionOvertimeRecalculate Permission = "overtime.recalculate"
	PermissionOvertimeBackfill    Permission = "overtime.backfill"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[employee.Role][]Permission{
	employee.RoleOwner: {
		// Owner has all permissions
		PermissionPunchOwn,
		PermissionPunchOthers,
		PermissionTimecardApprove,
		PermissionTimecardManage,
		PermissionOvertimeRecalculate,
		PermissionOvertimeBackfill,
	},
	employee.RoleAdmin: {
		PermissionPunchOwn,
		PermissionPunchOthers,
		PermissionTimecardApprove,
		PermissionTimecardManage,
		PermissionOvertimeRecalculate,
		PermissionOvertimeBackfill,
	},
	employee.RoleManager: {
		// Manager approves and corrects timecards at assigned dealerships
		PermissionPunchOwn,
		PermissionPunchOthers,
		PermissionTimecardApprove,
		PermissionTimecardManage,
		PermissionOvertimeRecalculate,
	},
	employee.RoleEmployee: {
		PermissionPunchOwn,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role employee.Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
