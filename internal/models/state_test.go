package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResearchState_CloneIsDeep(t *testing.T) {
	state := NewResearchState(ResearchRequest{Company: "Acme", CompanyURL: "https://acme.example"})
	state.SiteScrape = &Document{URL: "https://acme.example", Title: "Acme"}
	state.FinancialData = DocumentMap{
		"https://example.com/a": {URL: "https://example.com/a", Score: 0.8, Evaluation: &Evaluation{OverallScore: 0.8}},
	}
	state.Messages = []string{"one"}
	state.References = []string{"https://example.com/a"}

	clone := state.Clone()

	clone.SiteScrape.Title = "Changed"
	clone.FinancialData["https://example.com/a"].Score = 0.1
	clone.FinancialData["https://example.com/a"].Evaluation.OverallScore = 0.1
	clone.Messages = append(clone.Messages, "two")
	clone.References[0] = "https://other.example"

	assert.Equal(t, "Acme", state.SiteScrape.Title)
	assert.Equal(t, 0.8, state.FinancialData["https://example.com/a"].Score)
	assert.Equal(t, 0.8, state.FinancialData["https://example.com/a"].Evaluation.OverallScore)
	assert.Equal(t, []string{"one"}, state.Messages)
	assert.Equal(t, "https://example.com/a", state.References[0])
}

func TestResearchState_MergeCategoryAndBriefings(t *testing.T) {
	state := NewResearchState(ResearchRequest{Company: "Acme"})

	state.Merge(&StateDelta{
		Messages: []string{"searched"},
		CategoryData: map[ResearchCategory]DocumentMap{
			CategoryNews: {"https://example.com/n": {URL: "https://example.com/n"}},
		},
	})
	state.Merge(&StateDelta{
		Messages:  []string{"briefed"},
		Briefings: map[ResearchCategory]string{CategoryNews: "news facts"},
	})

	assert.Equal(t, []string{"searched", "briefed"}, state.Messages)
	require.Contains(t, state.NewsData, "https://example.com/n")
	assert.Equal(t, "news facts", state.NewsBriefing)
	assert.Equal(t, "news facts", state.Briefings[CategoryNews])
	assert.Equal(t, "news facts", state.Briefing(CategoryNews))
}

func TestResearchState_MergeOverwritesPerKey(t *testing.T) {
	state := NewResearchState(ResearchRequest{Company: "Acme"})

	first := map[ResearchCategory]DocumentMap{
		CategoryCompany: {"https://example.com/a": {URL: "https://example.com/a"}},
	}
	second := map[ResearchCategory]DocumentMap{
		CategoryCompany: {"https://example.com/b": {URL: "https://example.com/b"}},
	}
	state.Merge(&StateDelta{CategoryData: first})
	state.Merge(&StateDelta{CategoryData: second})

	assert.NotContains(t, state.CompanyData, "https://example.com/a")
	assert.Contains(t, state.CompanyData, "https://example.com/b")

	report := "# Acme"
	state.Merge(&StateDelta{Report: &report})
	assert.Equal(t, "# Acme", state.Report)

	// A nil delta is a no-op.
	state.Merge(nil)
	assert.Equal(t, "# Acme", state.Report)
}

func TestCategoryAccessorsCoverAllCategories(t *testing.T) {
	state := &ResearchState{
		FinancialData:        DocumentMap{},
		NewsData:             DocumentMap{},
		IndustryData:         DocumentMap{},
		CompanyData:          DocumentMap{},
		CuratedFinancialData: DocumentMap{},
		CuratedNewsData:      DocumentMap{},
		CuratedIndustryData:  DocumentMap{},
		CuratedCompanyData:   DocumentMap{},
	}
	for _, c := range Categories {
		assert.NotNil(t, state.CategoryData(c), "category %s", c)
		assert.NotNil(t, state.CuratedData(c), "category %s", c)
	}
}
