package domain

import "errors"

// Определение бизнес-ошибок
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrGroupNotFound         = errors.New("group not found")
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrTimesheetNotFound     = errors.New("timesheet not found")
	ErrForbidden             = errors.New("permission denied")
	ErrNotEditable           = errors.New("timesheet is no longer editable")
	ErrDuplicateEmployeeName = errors.New("employee with this name already exists")
	ErrTimesheetExists       = errors.New("timesheet for this week already exists")
	ErrUsernameTaken         = errors.New("username is already taken")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountLocked         = errors.New("account is locked")
	ErrGroupNotAssignable    = errors.New("group cannot be assigned by this user")
	ErrCannotDeactivateSelf  = errors.New("cannot deactivate your own account")
	ErrPasswordMismatch      = errors.New("the passwords do not match")
)
