package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Group представляет группу доступа (Admin, Accounting, User)
type Group struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"type:varchar(150);not null;uniqueIndex"`
}

// TableName задаёт имя таблицы для GORM
func (Group) TableName() string {
	return "auth_groups"
}

// User представляет учётную запись
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"type:varchar(150);not null;uniqueIndex"`
	FirstName    string    `json:"first_name" gorm:"type:varchar(150);not null"`
	LastName     string    `json:"last_name" gorm:"type:varchar(150);not null"`
	Email        string    `json:"email" gorm:"type:varchar(254);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`

	Groups []Group `json:"groups,omitempty" gorm:"many2many:user_groups;"`
}

// TableName задаёт имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// DisplayName возвращает полное имя, а при его отсутствии - логин
func (u *User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}

// InGroup сообщает, состоит ли пользователь хотя бы в одной из групп
func (u *User) InGroup(names ...string) bool {
	if u == nil {
		return false
	}
	for _, g := range u.Groups {
		for _, name := range names {
			if g.Name == name {
				return true
			}
		}
	}
	return false
}

// GroupNames возвращает имена групп пользователя
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Employee представляет члена бригады
type Employee struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(200);not null"`
	IsActive  bool      `json:"is_active" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Managers []User `json:"managers,omitempty" gorm:"many2many:employee_managers;"`
}

// TableName задаёт имя таблицы для GORM
func (Employee) TableName() string {
	return "employees"
}

// HasManager сообщает, входит ли пользователь в число руководителей
func (e *Employee) HasManager(userID int64) bool {
	for _, m := range e.Managers {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// Timesheet представляет недельный табель
type Timesheet struct {
	ID              int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OwnerID         int64          `json:"owner_id" gorm:"not null;index"`
	WeekStart       time.Time      `json:"week_start" gorm:"type:date;not null"`
	AdditionalNotes string         `json:"additional_notes" gorm:"type:text;not null"`
	DataJSON        datatypes.JSON `json:"-" gorm:"column:data_json"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime;<-:create"`

	Owner *User          `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Rows  []TimesheetRow `json:"rows,omitempty" gorm:"foreignKey:TimesheetID;constraint:OnDelete:CASCADE"`
}

// TableName задаёт имя таблицы для GORM
func (Timesheet) TableName() string {
	return "timesheets"
}

// TimesheetRow представляет строку табеля: один работник за неделю
type TimesheetRow struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	TimesheetID  int64  `json:"timesheet_id" gorm:"not null;index"`
	EmployeeID   *int64 `json:"employee_id" gorm:"index"`
	EmployeeName string `json:"employee_name" gorm:"type:varchar(200);not null"`
	Mon          string `json:"mon" gorm:"type:varchar(50);not null"`
	Tues         string `json:"tues" gorm:"type:varchar(50);not null"`
	Wed          string `json:"wed" gorm:"type:varchar(50);not null"`
	Thur         string `json:"thur" gorm:"type:varchar(50);not null"`
	Fri          string `json:"fri" gorm:"type:varchar(50);not null"`
	Sat          string `json:"sat" gorm:"type:varchar(50);not null"`
	Sun          string `json:"sun" gorm:"type:varchar(50);not null"`
	JobsiteName  string `json:"jobsite_name" gorm:"type:varchar(255);not null"`
	JobsiteNum   string `json:"jobsite_num" gorm:"type:varchar(100);not null"`

	Employee *Employee `json:"-" gorm:"foreignKey:EmployeeID;constraint:OnDelete:SET NULL"`
}

// TableName задаёт имя таблицы для GORM
func (TimesheetRow) TableName() string {
	return "timesheet_rows"
}

// DaysPerWeek - число дневных колонок в строке табеля
const DaysPerWeek = 7

// Days возвращает значения по дням, начиная с понедельника
func (r *TimesheetRow) Days() [DaysPerWeek]string {
	return [DaysPerWeek]string{r.Mon, r.Tues, r.Wed, r.Thur, r.Fri, r.Sat, r.Sun}
}

// SetDay записывает значение дня по индексу (0 - понедельник)
func (r *TimesheetRow) SetDay(day int, value string) {
	switch day {
	case 0:
		r.Mon = value
	case 1:
		r.Tues = value
	case 2:
		r.Wed = value
	case 3:
		r.Thur = value
	case 4:
		r.Fri = value
	case 5:
		r.Sat = value
	case 6:
		r.Sun = value
	}
}

// HasContent сообщает, есть ли в строке хоть одно заполненное поле
func (r *TimesheetRow) HasContent() bool {
	if r.EmployeeName != "" || r.JobsiteName != "" || r.JobsiteNum != "" {
		return true
	}
	for _, v := range r.Days() {
		if v != "" {
			return true
		}
	}
	return false
}

// TotalHours суммирует числовые значения дней; текст вроде "Vaca" пропускается
func (r *TimesheetRow) TotalHours() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.Days() {
		if v == "" {
			continue
		}
		hours, err := decimal.NewFromString(v)
		if err != nil {
			continue
		}
		total = total.Add(hours)
	}
	return total
}

// LoginAttempt хранит неудачные попытки входа по логину
type LoginAttempt struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username      string    `json:"username" gorm:"type:varchar(150);not null;uniqueIndex"`
	Failures      int       `json:"failures" gorm:"not null"`
	IPAddress     string    `json:"ip_address" gorm:"type:varchar(64);not null"`
	LastAttemptAt time.Time `json:"last_attempt_at" gorm:"not null"`
}

// TableName задаёт имя таблицы для GORM
func (LoginAttempt) TableName() string {
	return "login_attempts"
}
