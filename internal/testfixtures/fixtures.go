package testfixtures

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/hrm-service/internal/application"
)

var (
	departmentCounter uint64
	employeeCounter   uint64
	shiftCounter      uint64
	projectCounter    uint64
)

// Monday morning, shortly before a typical 08:00 shift.
var referenceTime = time.Date(2024, time.March, 4, 7, 45, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// DefaultPassword is the plaintext password given to employee fixtures.
const DefaultPassword = "secret123"

// ----------------------------- Department fixtures -----------------------------

// DepartmentFixture represents a deterministic department record.
type DepartmentFixture struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
}

// DepartmentOption configures the generated department fixture.
type DepartmentOption func(*DepartmentFixture)

// NewDepartmentFixture returns a deterministic department fixture with optional overrides.
func NewDepartmentFixture(opts ...DepartmentOption) DepartmentFixture {
	idx := atomic.AddUint64(&departmentCounter, 1)
	fixture := DepartmentFixture{
		ID:        fmt.Sprintf("dep-%03d", idx),
		Name:      fmt.Sprintf("Department %03d", idx),
		IsActive:  true,
		CreatedAt: referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithDepartmentID overrides the generated department ID.
func WithDepartmentID(id string) DepartmentOption {
	return func(f *DepartmentFixture) {
		f.ID = id
	}
}

// WithDepartmentName overrides the generated department name.
func WithDepartmentName(name string) DepartmentOption {
	return func(f *DepartmentFixture) {
		f.Name = name
	}
}

// WithDepartmentInactive marks the department as deactivated.
func WithDepartmentInactive() DepartmentOption {
	return func(f *DepartmentFixture) {
		f.IsActive = false
	}
}

// Application converts the fixture into the domain type.
func (f DepartmentFixture) Application() application.Department {
	return application.Department{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// ----------------------------- Employee fixtures -----------------------------

// EmployeeFixture represents a deterministic employee together with the
// plaintext password it logs in with.
type EmployeeFixture struct {
	ID           string
	FullName     string
	Email        string
	Phone        string
	Position     string
	Role         application.Role
	DepartmentID *string
	IsActive     bool
	Password     string
	CreatedAt    time.Time
}

// EmployeeOption configures the generated employee fixture.
type EmployeeOption func(*EmployeeFixture)

// NewEmployeeFixture returns an active USER with no department unless overridden.
func NewEmployeeFixture(opts ...EmployeeOption) EmployeeFixture {
	idx := atomic.AddUint64(&employeeCounter, 1)
	id := fmt.Sprintf("emp-%03d", idx)
	fixture := EmployeeFixture{
		ID:        id,
		FullName:  fmt.Sprintf("Employee %03d", idx),
		Email:     fmt.Sprintf("%s@example.com", id),
		Role:      application.RoleUser,
		IsActive:  true,
		Password:  DefaultPassword,
		CreatedAt: referenceTime.Add(-time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEmployeeID overrides the generated ID and derives the email from it.
func WithEmployeeID(id string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.ID = id
		f.Email = fmt.Sprintf("%s@example.com", strings.ToLower(id))
	}
}

// WithEmployeeName overrides the generated full name.
func WithEmployeeName(name string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.FullName = name
	}
}

// WithEmployeeEmail overrides the generated email address.
func WithEmployeeEmail(email string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Email = email
	}
}

// WithEmployeeRole sets the authorization tier.
func WithEmployeeRole(role application.Role) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Role = role
	}
}

// WithEmployeeDepartment places the employee in a department.
func WithEmployeeDepartment(departmentID string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.DepartmentID = &departmentID
	}
}

// WithEmployeePassword overrides the plaintext password.
func WithEmployeePassword(password string) EmployeeOption {
	return func(f *EmployeeFixture) {
		f.Password = password
	}
}

// WithEmployeeInactive marks the employee account as deactivated.
func WithEmployeeInactive() EmployeeOption {
	return func(f *EmployeeFixture) {
		f.IsActive = false
	}
}

// Application converts the fixture into the domain type.
func (f EmployeeFixture) Application() application.Employee {
	return application.Employee{
		ID:           f.ID,
		FullName:     f.FullName,
		Email:        f.Email,
		Phone:        f.Phone,
		Position:     f.Position,
		Role:         f.Role,
		DepartmentID: copyStringPtr(f.DepartmentID),
		IsActive:     f.IsActive,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// Principal returns the authenticated identity of the employee.
func (f EmployeeFixture) Principal() application.Principal {
	principal := application.Principal{EmployeeID: f.ID, Role: f.Role}
	if f.DepartmentID != nil {
		principal.DepartmentID = *f.DepartmentID
	}
	return principal
}

// ----------------------------- Shift fixtures -----------------------------

// ShiftFixture represents a deterministic working window.
type ShiftFixture struct {
	ID           string
	Name         string
	StartTime    string
	EndTime      string
	DepartmentID *string
	IsActive     bool
	CreatedAt    time.Time
}

// ShiftOption configures the generated shift fixture.
type ShiftOption func(*ShiftFixture)

// NewShiftFixture returns an active global 08:00-17:00 shift unless overridden.
func NewShiftFixture(opts ...ShiftOption) ShiftFixture {
	idx := atomic.AddUint64(&shiftCounter, 1)
	fixture := ShiftFixture{
		ID:        fmt.Sprintf("shift-%03d", idx),
		Name:      fmt.Sprintf("Shift %03d", idx),
		StartTime: "08:00",
		EndTime:   "17:00",
		IsActive:  true,
		CreatedAt: referenceTime.Add(-time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithShiftID overrides the generated shift ID.
func WithShiftID(id string) ShiftOption {
	return func(f *ShiftFixture) {
		f.ID = id
	}
}

// WithShiftWindow sets the HH:mm start and end times.
func WithShiftWindow(start, end string) ShiftOption {
	return func(f *ShiftFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithShiftDepartment scopes the shift to a department.
func WithShiftDepartment(departmentID string) ShiftOption {
	return func(f *ShiftFixture) {
		f.DepartmentID = &departmentID
	}
}

// WithShiftInactive marks the shift as retired.
func WithShiftInactive() ShiftOption {
	return func(f *ShiftFixture) {
		f.IsActive = false
	}
}

// Application converts the fixture into the domain type.
func (f ShiftFixture) Application() application.Shift {
	return application.Shift{
		ID:           f.ID,
		Name:         f.Name,
		StartTime:    f.StartTime,
		EndTime:      f.EndTime,
		DepartmentID: copyStringPtr(f.DepartmentID),
		IsActive:     f.IsActive,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Project fixtures -----------------------------

// ProjectFixture represents a deterministic project. DepartmentID and
// ManagerID must reference seeded rows.
type ProjectFixture struct {
	ID           string
	Name         string
	DepartmentID string
	ManagerID    string
	MemberIDs    []string
	Status       string
	CreatedAt    time.Time
}

// ProjectOption configures the generated project fixture.
type ProjectOption func(*ProjectFixture)

// NewProjectFixture returns an ACTIVE project owned by the given department and manager.
func NewProjectFixture(departmentID, managerID string, opts ...ProjectOption) ProjectFixture {
	idx := atomic.AddUint64(&projectCounter, 1)
	fixture := ProjectFixture{
		ID:           fmt.Sprintf("proj-%03d", idx),
		Name:         fmt.Sprintf("Project %03d", idx),
		DepartmentID: departmentID,
		ManagerID:    managerID,
		Status:       application.ProjectStatusActive,
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProjectID overrides the generated project ID.
func WithProjectID(id string) ProjectOption {
	return func(f *ProjectFixture) {
		f.ID = id
	}
}

// WithProjectMembers sets the member roster.
func WithProjectMembers(memberIDs ...string) ProjectOption {
	return func(f *ProjectFixture) {
		f.MemberIDs = append([]string(nil), memberIDs...)
	}
}

// WithProjectStatus overrides the lifecycle status.
func WithProjectStatus(status string) ProjectOption {
	return func(f *ProjectFixture) {
		f.Status = status
	}
}

// Application converts the fixture into the domain type.
func (f ProjectFixture) Application() application.Project {
	members := append([]string{}, f.MemberIDs...)
	return application.Project{
		ID:           f.ID,
		Name:         f.Name,
		DepartmentID: f.DepartmentID,
		ManagerID:    f.ManagerID,
		MemberIDs:    members,
		Status:       f.Status,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
