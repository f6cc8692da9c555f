package application

// Scope predicates. Each takes the acting principal and the resource (or the
// attributes that scope it) and reports whether the action is allowed.
// Services call them before any mutation and translate a false result into
// ErrForbidden; list operations narrow their filters instead.

func sameDepartment(principal Principal, departmentID string) bool {
	return principal.DepartmentID != "" && principal.DepartmentID == departmentID
}

func managesDepartment(principal Principal, departmentID string) bool {
	return principal.IsManager() && sameDepartment(principal, departmentID)
}

func canViewDepartment(principal Principal, departmentID string) bool {
	return principal.IsAdmin() || sameDepartment(principal, departmentID)
}

func canManageDepartment(principal Principal, departmentID string) bool {
	return principal.IsAdmin() || managesDepartment(principal, departmentID)
}

func canViewEmployee(principal Principal, employee Employee) bool {
	switch {
	case principal.IsAdmin():
		return true
	case principal.EmployeeID == employee.ID:
		return true
	case principal.IsManager():
		return employee.InDepartment(principal.DepartmentID)
	}
	return false
}

// canManageEmployee covers updates and deletes performed on someone else's
// record. Managers only reach USER-role employees of their own department.
func canManageEmployee(principal Principal, employee Employee) bool {
	switch {
	case principal.IsAdmin():
		return true
	case principal.IsManager():
		return employee.Role == RoleUser && employee.InDepartment(principal.DepartmentID)
	}
	return false
}

func canViewShift(principal Principal, shift Shift) bool {
	if principal.IsAdmin() || shift.DepartmentID == nil {
		return true
	}
	return sameDepartment(principal, *shift.DepartmentID)
}

func canManageShift(principal Principal, shift Shift) bool {
	if principal.IsAdmin() {
		return true
	}
	return shift.DepartmentID != nil && managesDepartment(principal, *shift.DepartmentID)
}

func canManageProject(principal Principal, project Project) bool {
	return principal.IsAdmin() || managesDepartment(principal, project.DepartmentID)
}

func canViewProject(principal Principal, project Project) bool {
	return canManageProject(principal, project) || project.HasParticipant(principal.EmployeeID)
}

func canViewTask(principal Principal, task Task, project Project) bool {
	return task.IsParticipant(principal.EmployeeID) || canViewProject(principal, project)
}

// canEditTaskDetails allows the assigner (or an administrator) to reshape a task.
func canEditTaskDetails(principal Principal, task Task) bool {
	return principal.IsAdmin() || task.AssignerID == principal.EmployeeID
}

func canDeleteTask(principal Principal, task Task) bool {
	return task.AssignerID == principal.EmployeeID
}

func canWorkOnSubTasks(principal Principal, task Task) bool {
	return principal.IsAdmin() || task.IsParticipant(principal.EmployeeID)
}

func canMarkSummary(principal Principal, comment Comment, task Task) bool {
	id := principal.EmployeeID
	return id != "" && (comment.AuthorID == id || task.SupervisorID == id || task.AssignerID == id)
}

func canDeleteComment(principal Principal, comment Comment) bool {
	return principal.EmployeeID != "" && comment.AuthorID == principal.EmployeeID
}

// canRecordAttendanceFor allows self check-in/out and administrators acting for anyone.
func canRecordAttendanceFor(principal Principal, employeeID string) bool {
	return principal.IsAdmin() || principal.EmployeeID == employeeID
}

func canViewTimekeeping(principal Principal, owner Employee) bool {
	return canViewEmployee(principal, owner)
}

func canManageTimekeeping(principal Principal, owner Employee) bool {
	switch {
	case principal.IsAdmin():
		return true
	case principal.IsManager():
		return owner.InDepartment(principal.DepartmentID)
	}
	return false
}
