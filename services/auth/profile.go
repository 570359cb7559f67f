package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pathwise-backend/lib/auth"
	"pathwise-backend/lib/textutil"
	"pathwise-backend/services/auth/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrInvalidTheme = errors.New("theme must be light, dark or auto")

// PreferencesPatch holds the preference keys present in an update.
type PreferencesPatch struct {
	EmailNotifications *bool   `json:"emailNotifications"`
	WeeklyReports      *bool   `json:"weeklyReports"`
	Theme              *string `json:"theme"`
}

// ProfilePatch is a profile update, nil fields are left unchanged.
type ProfilePatch struct {
	FirstName      *string           `json:"firstName"`
	LastName       *string           `json:"lastName"`
	FullName       *string           `json:"full_name"`
	Phone          *string           `json:"phone"`
	Location       *string           `json:"location"`
	Summary        *string           `json:"summary"`
	Skills         *[]string         `json:"skills"`
	Education      *[]Education      `json:"education"`
	Experience     *[]Experience     `json:"experience"`
	Projects       *[]Project        `json:"projects"`
	Certifications *[]string         `json:"certifications"`
	Languages      *[]string         `json:"languages"`
	Preferences    *PreferencesPatch `json:"preferences"`
}

func setIf[T any](dst *T, value *T) {
	if value != nil {
		*dst = *value
	}
}

func (s Service) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (User, error) {
	ctx, span := tracer.Start(ctx, "UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", id))

	if patch.Preferences != nil && patch.Preferences.Theme != nil && !ValidTheme(*patch.Preferences.Theme) {
		return User{}, ErrInvalidTheme
	}

	user, err := s.update(ctx, id, func(u *User) error {
		setIf(&u.FirstName, patch.FirstName)
		setIf(&u.LastName, patch.LastName)
		setIf(&u.FullName, patch.FullName)
		setIf(&u.Phone, patch.Phone)
		setIf(&u.Location, patch.Location)
		setIf(&u.Summary, patch.Summary)
		setIf(&u.Skills, patch.Skills)
		setIf(&u.Education, patch.Education)
		setIf(&u.Experience, patch.Experience)
		setIf(&u.Projects, patch.Projects)
		setIf(&u.Certifications, patch.Certifications)
		setIf(&u.Languages, patch.Languages)
		if p := patch.Preferences; p != nil {
			setIf(&u.Preferences.EmailNotifications, p.EmailNotifications)
			setIf(&u.Preferences.WeeklyReports, p.WeeklyReports)
			setIf(&u.Preferences.Theme, p.Theme)
		}
		u.normalize()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update profile")
		return User{}, err
	}
	return user, nil
}

// first returns the first non-empty value.
func first(values ...text) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return ""
}

type resumeEducation struct {
	Degree      text `json:"degree"`
	Title       text `json:"title"`
	Institution text `json:"institution"`
	School      text `json:"school"`
	YearStart   text `json:"year_start"`
	StartYear   text `json:"start_year"`
	YearEnd     text `json:"year_end"`
	EndYear     text `json:"end_year"`
	Dates       text `json:"dates"`
	Gpa         text `json:"gpa"`
}

func (e resumeEducation) education() Education {
	return Education{
		Degree:      first(e.Degree, e.Title),
		Institution: first(e.Institution, e.School),
		YearStart:   first(e.YearStart, e.StartYear),
		YearEnd:     first(e.YearEnd, e.EndYear),
		Dates:       first(e.Dates),
		Gpa:         first(e.Gpa),
	}
}

type resumeExperience struct {
	Role             text `json:"role"`
	Title            text `json:"title"`
	Position         text `json:"position"`
	Company          text `json:"company"`
	Employer         text `json:"employer"`
	YearStart        text `json:"year_start"`
	StartYear        text `json:"start_year"`
	YearEnd          text `json:"year_end"`
	EndYear          text `json:"end_year"`
	Dates            text `json:"dates"`
	Description      text `json:"description"`
	Responsibilities text `json:"responsibilities"`
}

func (e resumeExperience) experience() Experience {
	return Experience{
		Role:        first(e.Role, e.Title, e.Position),
		Title:       first(e.Title, e.Role, e.Position),
		Company:     first(e.Company, e.Employer),
		YearStart:   first(e.YearStart, e.StartYear),
		YearEnd:     first(e.YearEnd, e.EndYear),
		Dates:       first(e.Dates),
		Description: first(e.Description, e.Responsibilities),
	}
}

type resumeProject struct {
	Title        text     `json:"title"`
	Name         text     `json:"name"`
	Description  text     `json:"description"`
	Technologies []string `json:"technologies"`
	TechStack    []string `json:"tech_stack"`
	URL          text     `json:"url"`
	Link         text     `json:"link"`
}

func (p resumeProject) project() Project {
	tech := p.Technologies
	if tech == nil {
		tech = p.TechStack
	}
	if tech == nil {
		tech = []string{}
	}
	return Project{
		Title:        first(p.Title, p.Name),
		Description:  first(p.Description),
		Technologies: tech,
		URL:          first(p.URL, p.Link),
	}
}

// Resume is the output of the resume parser.
type Resume struct {
	Name           *string             `json:"name"`
	Email          *string             `json:"email"`
	Phone          *string             `json:"phone"`
	Location       *string             `json:"location"`
	Summary        *string             `json:"summary"`
	Skills         []string            `json:"skills"`
	Education      *[]resumeEducation  `json:"education"`
	Experience     *[]resumeExperience `json:"experience"`
	Projects       *[]resumeProject    `json:"projects"`
	Certifications *[]string           `json:"certifications"`
	Languages      *[]string           `json:"languages"`
}

func mapList[In, Out any](in []In, fn func(In) Out) []Out {
	out := make([]Out, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

func (s Service) UpdateFromResume(ctx context.Context, id string, resume Resume) (User, error) {
	ctx, span := tracer.Start(ctx, "UpdateFromResume")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", id))

	user, err := s.update(ctx, id, func(u *User) error {
		if resume.Name != nil && strings.TrimSpace(*resume.Name) != "" {
			u.FirstName, u.LastName = textutil.SplitName(*resume.Name)
			u.FullName = strings.TrimSpace(*resume.Name)
		}
		if resume.Email != nil && u.Email == "" {
			u.Email = textutil.NormalizeEmail(*resume.Email)
		}
		setIf(&u.Phone, resume.Phone)
		setIf(&u.Location, resume.Location)
		setIf(&u.Summary, resume.Summary)
		if len(resume.Skills) > 0 {
			u.Skills = textutil.MergeFold(u.Skills, resume.Skills)
		}
		if resume.Education != nil {
			u.Education = mapList(*resume.Education, resumeEducation.education)
		}
		if resume.Experience != nil {
			u.Experience = mapList(*resume.Experience, resumeExperience.experience)
		}
		if resume.Projects != nil {
			u.Projects = mapList(*resume.Projects, resumeProject.project)
		}
		setIf(&u.Certifications, resume.Certifications)
		setIf(&u.Languages, resume.Languages)
		u.normalize()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to apply resume")
		return User{}, err
	}
	return user, nil
}

const (
	AdminEmail    = "admin@pathwise.com"
	AdminPassword = "admin123"
)

// SeedAdmin creates the default admin account unless an admin already
// exists. It reports whether an account was created.
func (s Service) SeedAdmin(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "SeedAdmin")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	exists, err := txqry.HasAdmin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check for admin")
		return false, err
	}
	if exists {
		slog.InfoContext(ctx, "admin user already exists")
		return false, nil
	}

	hash, err := auth.HashPassword(AdminPassword)
	if err != nil {
		return false, err
	}

	now := s.now()
	user := User{
		ID:          uuid.NewString(),
		FirstName:   "Admin",
		LastName:    "User",
		Email:       AdminEmail,
		Role:        RoleAdmin,
		IsAdmin:     true,
		IsActive:    true,
		LastLogin:   now,
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	row := db.User{
		ID:        user.ID,
		Password:  hash,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
	}
	err = user.applyTo(&row)
	if err != nil {
		return false, err
	}

	// an existing non admin account may hold the address
	_, err = txqry.GetUserByEmail(ctx, AdminEmail)
	if err == nil {
		return false, fmt.Errorf("%s is taken by a non admin account", AdminEmail)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	err = txqry.CreateUser(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create admin")
		return false, err
	}
	err = tx.Commit()
	if err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "created admin user", "email", AdminEmail)
	return true, nil
}
