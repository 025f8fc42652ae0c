package domain

import "time"

// Имена групп доступа
const (
	GroupAdmin      = "Admin"
	GroupAccounting = "Accounting"
	GroupUser       = "User"
)

// DefaultGroups - группы, создаваемые при инициализации
var DefaultGroups = []string{GroupAdmin, GroupAccounting, GroupUser}

// IsAdmin сообщает, состоит ли пользователь в группе Admin
func IsAdmin(u *User) bool {
	return u.InGroup(GroupAdmin)
}

// IsAdminOrAccounting сообщает, состоит ли пользователь в Admin или Accounting
func IsAdminOrAccounting(u *User) bool {
	return u.InGroup(GroupAdmin, GroupAccounting)
}

// IsCrewManager сообщает, может ли пользователь вести собственную бригаду
func IsCrewManager(u *User) bool {
	return u.InGroup(GroupUser)
}

// IsOwner сообщает, принадлежит ли табель пользователю
func IsOwner(u *User, ts *Timesheet) bool {
	return u != nil && ts != nil && ts.OwnerID == u.ID
}

// TimesheetEditable сообщает, открыто ли окно правки: today < weekStart + 7 дней.
// Сравниваются календарные даты, время суток не учитывается.
func TimesheetEditable(weekStart, today time.Time) bool {
	deadline := dateOf(weekStart).AddDate(0, 0, 7)
	return dateOf(today).Before(deadline)
}

// CanViewTimesheet - владелец, Admin или Accounting
func CanViewTimesheet(u *User, ts *Timesheet) bool {
	return IsOwner(u, ts) || IsAdminOrAccounting(u)
}

// CanDeleteTimesheet - только Admin
func CanDeleteTimesheet(u *User) bool {
	return IsAdmin(u)
}

// CanEditTimesheet - владелец в пределах окна правки либо Admin/Accounting без ограничений
func CanEditTimesheet(u *User, ts *Timesheet, today time.Time) bool {
	if IsAdminOrAccounting(u) {
		return true
	}
	return IsOwner(u, ts) && TimesheetEditable(ts.WeekStart, today)
}

// CanResolveUsernames - выбор другой учётной записи в строке табеля
func CanResolveUsernames(u *User) bool {
	return IsAdminOrAccounting(u)
}

// CanManageUsers - доступ к управлению учётными записями
func CanManageUsers(u *User) bool {
	return IsAdminOrAccounting(u)
}

// CanAssignGroup - группу Admin может выдать только Admin
func CanAssignGroup(u *User, group string) bool {
	if !CanManageUsers(u) {
		return false
	}
	return group != GroupAdmin || IsAdmin(u)
}

// Removal описывает последствия удаления сотрудника из бригады
type Removal int

const (
	RemovalDenied Removal = iota
	RemovalDetach
	RemovalSoftDelete
)

// EmployeeRemoval определяет, что произойдёт при удалении сотрудника.
// Admin/Accounting деактивируют запись целиком, руководитель лишь отвязывает себя.
func EmployeeRemoval(u *User, isManager bool) Removal {
	switch {
	case u == nil:
		return RemovalDenied
	case IsAdminOrAccounting(u):
		return RemovalSoftDelete
	case isManager:
		return RemovalDetach
	default:
		return RemovalDenied
	}
}

// CanReactivateEmployee - руководитель сотрудника или Admin/Accounting
func CanReactivateEmployee(u *User, isManager bool) bool {
	return u != nil && (isManager || IsAdminOrAccounting(u))
}

// WeekStartFor возвращает понедельник недели, в которую попадает дата
func WeekStartFor(t time.Time) time.Time {
	d := dateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
