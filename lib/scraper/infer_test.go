package scraper

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestInferDomain(t *testing.T) {
	cases := []struct {
		text     []string
		expected string
	}{
		{[]string{"React hooks", ""}, "Frontend Development"},
		{[]string{"Express server", "routing"}, "Backend Development"},
		{[]string{"Intro to AI", ""}, "Data Science & AI"},
		// "ai" inside a word does not count
		{[]string{"Maintain your garden", ""}, GeneralDomain},
		{[]string{"Flutter widgets", ""}, "Mobile Development"},
		{[]string{"Docker compose", ""}, "DevOps & Cloud"},
		{[]string{"Knitting"}, GeneralDomain},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, InferDomain(c.text...), "%v", c.text)
	}
}

func TestInferDifficulty(t *testing.T) {
	require.Equal(t, Beginner, InferDifficulty("Getting started with Go"))
	require.Equal(t, Advanced, InferDifficulty("A deep dive into the scheduler"))
	require.Equal(t, Intermediate, InferDifficulty("Go channels"))
}

func TestColorForType(t *testing.T) {
	require.Equal(t, "#10B981", ColorForType(TypeTutorial))
	require.Equal(t, "#F97316", ColorForType(TypeTool))
	require.Equal(t, "#6B7280", ColorForType("Podcast"))
}

func TestExtractTags(t *testing.T) {
	tags := ExtractTags("React and Node.js tutorial", "Build an API with a SQL database on AWS cloud")
	diff := cmp.Diff([]string{"react", "node.js", "api", "database", "sql"}, tags)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Empty(t, ExtractTags("Knitting", "yarn"))
	require.NotNil(t, ExtractTags("", ""))
}

func TestResourceID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	require.Equal(t, "mdn-web-docs-array-map---js-1700000000123", ResourceID("MDN Web Docs", "Array.map() JS", now, 0))
	require.Equal(t, "github-abcde-1700000000123", ResourceID("GitHub", "ABCDEFGH", now, 5))
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "hello", CleanTitle("  hello \n"))
	require.Len(t, []rune(CleanTitle(strings.Repeat("é", 250))), 200)
	require.Len(t, []rune(CleanDescription(strings.Repeat("x", 1200))), 1000)
}

func TestValidEnums(t *testing.T) {
	require.True(t, ValidType("Video"))
	require.False(t, ValidType("video"))
	require.True(t, ValidDifficulty("Advanced"))
	require.False(t, ValidDifficulty("Expert"))
}

func TestGenerateMock(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	found := GenerateMock("React Hooks", "", 50, rng)
	require.Len(t, found, 5)

	urls := []string{}
	for _, c := range found {
		urls = append(urls, c.URL)
		require.Equal(t, "Frontend Development", c.Domain)
		require.Equal(t, "React Hooks", c.Skill)
		require.True(t, c.Metadata.MockResource)
		require.NotNil(t, c.Metadata.ScrapedAt)
		require.True(t, ValidDifficulty(string(c.Difficulty)))
		require.Contains(t, mockDurations, c.Duration)
	}
	diff := cmp.Diff([]string{
		"https://example.com/guide/react-hooks",
		"https://mockedu.com/course/react-hooks",
		"https://docs.example.com/react-hooks",
		"https://mocktube.com/watch/react-hooks",
		"https://mockhub.com/project/react-hooks",
	}, urls)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, "React Hooks - Complete Guide", found[0].Title)
	require.Equal(t, TypeVideo, found[3].Type)

	limited := GenerateMock("go", "Backend", 2, rng)
	require.Len(t, limited, 2)
	require.Equal(t, "Backend", limited[0].Domain)
}

func TestMockURLResource(t *testing.T) {
	c, err := MockURLResource("https://go.dev/doc/effective_go", "", "")
	require.NoError(t, err)
	require.Equal(t, "Resource from go.dev", c.Title)
	require.Equal(t, "Content scraped from https://go.dev/doc/effective_go", c.Description)
	require.Equal(t, TypeArticle, c.Type)
	require.Equal(t, Intermediate, c.Difficulty)
	require.Equal(t, GeneralDomain, c.Domain)
	require.Equal(t, GeneralDomain, c.Skill)
	require.True(t, c.Metadata.DirectScrape)

	_, err = MockURLResource("::::", "", "")
	require.Error(t, err)
}
