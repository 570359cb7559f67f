package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"pathwise-backend/lib/textutil"
)

// InferDifficulty guesses a difficulty from free text, defaulting to
// Intermediate.
func InferDifficulty(text string) Difficulty {
	lower := strings.ToLower(text)
	if textutil.ContainsAny(lower, "beginner", "intro", "basic", "getting started") {
		return Beginner
	}
	if textutil.ContainsAny(lower, "advanced", "expert", "master", "deep dive") {
		return Advanced
	}
	return Intermediate
}

type domainKeywords struct {
	domain   string
	keywords []string
}

var domains = []domainKeywords{
	{"Frontend Development", []string{"react", "vue", "angular", "frontend", "css", "html", "javascript"}},
	{"Backend Development", []string{"node", "express", "backend", "api", "server"}},
	{"Data Science & AI", []string{"python", "machine learning", "data science", "ai"}},
	{"Mobile Development", []string{"mobile", "android", "ios", "react native", "flutter"}},
	{"DevOps & Cloud", []string{"devops", "docker", "kubernetes", "aws", "cloud"}},
}

const GeneralDomain = "General"

// InferDomain maps free text to the first matching domain group.
func InferDomain(text ...string) string {
	lower := strings.ToLower(strings.Join(text, " "))
	for _, d := range domains {
		if textutil.ContainsAny(lower, d.keywords...) {
			return d.domain
		}
	}
	return GeneralDomain
}

var typeColors = map[ResourceType]string{
	TypeTutorial:      "#10B981",
	TypeCourse:        "#3B82F6",
	TypeDocumentation: "#6366F1",
	TypeInteractive:   "#F59E0B",
	TypeBook:          "#8B5CF6",
	TypeGuide:         "#06B6D4",
	TypeProject:       "#EF4444",
	TypeVideo:         "#EC4899",
	TypeArticle:       "#84CC16",
	TypeTool:          "#F97316",
}

const defaultColor = "#6B7280"

func ColorForType(t ResourceType) string {
	color, ok := typeColors[t]
	if !ok {
		return defaultColor
	}
	return color
}

var commonTags = []string{
	"javascript", "python", "react", "node.js", "css", "html", "vue", "angular",
	"machine learning", "data science", "api", "database", "mongodb", "sql",
	"docker", "kubernetes", "aws", "cloud", "mobile", "android", "ios",
	"tutorial", "beginner", "advanced", "guide", "course",
}

// ExtractTags picks at most 5 of the common tags mentioned in the title or
// description.
func ExtractTags(title, description string) []string {
	lower := strings.ToLower(title + " " + description)
	tags := []string{}
	for _, tag := range commonTags {
		if strings.Contains(lower, tag) {
			tags = append(tags, tag)
			if len(tags) == 5 {
				break
			}
		}
	}
	return tags
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]`)

// ResourceID builds the public id of a resource,
// `<source>-<title>-<unix ms>`. maxTitle > 0 truncates the title part.
func ResourceID(source, title string, now time.Time, maxTitle int) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(source), "-")
	t := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	if maxTitle > 0 && len(t) > maxTitle {
		t = t[:maxTitle]
	}
	return s + "-" + t + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

func CleanTitle(title string) string {
	return textutil.Truncate(strings.TrimSpace(title), 200)
}

func CleanDescription(description string) string {
	return textutil.Truncate(strings.TrimSpace(description), 1000)
}
