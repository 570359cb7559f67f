package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"pathwise-backend/services/auth/db"
)

const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

var Roles = []string{RoleUser, RoleAdmin, RoleModerator}

func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// text is a string that also accepts json numbers, resume parsers emit
// years either way.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*t = text(n.String())
	return nil
}

type Education struct {
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	YearStart   string `json:"year_start,omitempty"`
	YearEnd     string `json:"year_end,omitempty"`
	Dates       string `json:"dates,omitempty"`
	Gpa         string `json:"gpa,omitempty"`
}

type Experience struct {
	Role        string `json:"role,omitempty"`
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	YearStart   string `json:"year_start,omitempty"`
	YearEnd     string `json:"year_end,omitempty"`
	Dates       string `json:"dates,omitempty"`
	Description string `json:"description,omitempty"`
}

type Project struct {
	Title        string   `json:"title,omitempty"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies"`
	URL          string   `json:"url,omitempty"`
}

type Preferences struct {
	EmailNotifications bool   `json:"emailNotifications"`
	WeeklyReports      bool   `json:"weeklyReports"`
	Theme              string `json:"theme"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications: true,
		WeeklyReports:      false,
		Theme:              "auto",
	}
}

func ValidTheme(theme string) bool {
	return theme == "light" || theme == "dark" || theme == "auto"
}

// User is an account without its password hash.
type User struct {
	ID             string       `json:"id"`
	FirstName      string       `json:"firstName"`
	LastName       string       `json:"lastName"`
	Email          string       `json:"email"`
	Role           string       `json:"role"`
	IsAdmin        bool         `json:"isAdmin"`
	IsActive       bool         `json:"isActive"`
	GoogleID       string       `json:"googleId,omitempty"`
	GithubID       string       `json:"githubId,omitempty"`
	GithubUsername string       `json:"githubUsername,omitempty"`
	LinkedinID     string       `json:"linkedinId,omitempty"`
	LastLogin      time.Time    `json:"lastLogin"`
	FullName       string       `json:"full_name"`
	Phone          string       `json:"phone"`
	Location       string       `json:"location"`
	Summary        string       `json:"summary"`
	Skills         []string     `json:"skills"`
	Education      []Education  `json:"education"`
	Experience     []Experience `json:"experience"`
	Projects       []Project    `json:"projects"`
	Certifications []string     `json:"certifications"`
	Languages      []string     `json:"languages"`
	Preferences    Preferences  `json:"preferences"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Privileged reports whether the user may use the admin api.
func (u User) Privileged() bool {
	return u.IsAdmin || u.Role == RoleAdmin
}

func (u User) Name() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func decodeColumn(name, value string, dst any) error {
	if value == "" {
		return nil
	}
	err := json.Unmarshal([]byte(value), dst)
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func FromRow(row db.User) (User, error) {
	u := User{
		ID:             row.ID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Email:          row.Email,
		Role:           row.Role,
		IsAdmin:        row.IsAdmin,
		IsActive:       row.IsActive,
		GoogleID:       row.GoogleID.String,
		GithubID:       row.GithubID.String,
		GithubUsername: row.GithubUsername.String,
		LinkedinID:     row.LinkedinID.String,
		LastLogin:      time.UnixMilli(row.LastLogin),
		FullName:       row.FullName,
		Phone:          row.Phone,
		Location:       row.Location,
		Summary:        row.Summary,
		Preferences:    DefaultPreferences(),
		CreatedAt:      time.UnixMilli(row.CreatedAt),
		UpdatedAt:      time.UnixMilli(row.UpdatedAt),
	}

	columns := []struct {
		name  string
		value string
		dst   any
	}{
		{"skills", row.Skills, &u.Skills},
		{"education", row.Education, &u.Education},
		{"experience", row.Experience, &u.Experience},
		{"projects", row.Projects, &u.Projects},
		{"certifications", row.Certifications, &u.Certifications},
		{"languages", row.Languages, &u.Languages},
		{"preferences", row.Preferences, &u.Preferences},
	}
	for _, c := range columns {
		err := decodeColumn(c.name, c.value, c.dst)
		if err != nil {
			return User{}, fmt.Errorf("user %s: %w", row.ID, err)
		}
	}
	u.normalize()
	return u, nil
}

// normalize replaces nil lists so they serialize as [].
func (u *User) normalize() {
	if u.Skills == nil {
		u.Skills = []string{}
	}
	if u.Education == nil {
		u.Education = []Education{}
	}
	if u.Experience == nil {
		u.Experience = []Experience{}
	}
	if u.Projects == nil {
		u.Projects = []Project{}
	}
	for i := range u.Projects {
		if u.Projects[i].Technologies == nil {
			u.Projects[i].Technologies = []string{}
		}
	}
	if u.Certifications == nil {
		u.Certifications = []string{}
	}
	if u.Languages == nil {
		u.Languages = []string{}
	}
}

func encodeColumn(value any) (string, error) {
	out, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// applyTo copies the profile fields of u onto row. Credentials and oauth
// links are left alone.
func (u User) applyTo(row *db.User) error {
	u.normalize()

	row.FirstName = u.FirstName
	row.LastName = u.LastName
	row.Email = u.Email
	row.Role = u.Role
	row.IsAdmin = u.IsAdmin
	row.IsActive = u.IsActive
	row.LastLogin = u.LastLogin.UnixMilli()
	row.FullName = u.FullName
	row.Phone = u.Phone
	row.Location = u.Location
	row.Summary = u.Summary

	targets := []struct {
		value any
		dst   *string
	}{
		{u.Skills, &row.Skills},
		{u.Education, &row.Education},
		{u.Experience, &row.Experience},
		{u.Projects, &row.Projects},
		{u.Certifications, &row.Certifications},
		{u.Languages, &row.Languages},
		{u.Preferences, &row.Preferences},
	}
	for _, t := range targets {
		encoded, err := encodeColumn(t.value)
		if err != nil {
			return err
		}
		*t.dst = encoded
	}
	return nil
}

// Brief is the short form of a user returned on login.
type Brief struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsAdmin   bool   `json:"isAdmin"`
}

func (u User) Brief() Brief {
	return Brief{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		IsAdmin:   u.IsAdmin,
	}
}

func (u User) Profile() Profile {
	return Profile{
		Brief:          u.Brief(),
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
		FullName:       u.FullName,
		Phone:          u.Phone,
		Location:       u.Location,
		UserSummary:    u.Summary,
		Skills:         u.Skills,
		Education:      u.Education,
		Experience:     u.Experience,
		Projects:       u.Projects,
		Certifications: u.Certifications,
		Languages:      u.Languages,
		Preferences:    u.Preferences,
	}
}

// Profile is the form of a user returned by the profile routes.
type Profile struct {
	Brief
	LastLogin      time.Time    `json:"lastLogin"`
	CreatedAt      time.Time    `json:"createdAt"`
	FullName       string       `json:"full_name"`
	Phone          string       `json:"phone"`
	Location       string       `json:"location"`
	UserSummary    string       `json:"summary"`
	Skills         []string     `json:"skills"`
	Education      []Education  `json:"education"`
	Experience     []Experience `json:"experience"`
	Projects       []Project    `json:"projects"`
	Certifications []string     `json:"certifications"`
	Languages      []string     `json:"languages"`
	Preferences    Preferences  `json:"preferences"`
}
