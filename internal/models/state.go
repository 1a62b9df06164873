// -----------------------------------------------------------------------
// Research State - shared state passed between pipeline stages
// -----------------------------------------------------------------------

package models

// DocumentSource tags where a document came from.
type DocumentSource string

const (
	SourceWebSearch      DocumentSource = "web_search"
	SourceCompanyWebsite DocumentSource = "company_website"
)

// Evaluation is attached to a document by the curator.
type Evaluation struct {
	OverallScore float64 `json:"overall_score"`
	Query        string  `json:"query"`
}

// Document is a single search result keyed by canonical URL, optionally
// enriched with full raw text.
type Document struct {
	URL        string         `json:"url"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	RawContent string         `json:"raw_content,omitempty"`
	Query      string         `json:"query"`
	Source     DocumentSource `json:"source"`
	Score      float64        `json:"score"`
	Evaluation *Evaluation    `json:"evaluation,omitempty"`
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.Evaluation != nil {
		ev := *d.Evaluation
		c.Evaluation = &ev
	}
	return &c
}

// DocumentMap maps canonical URL to document. Invariant: a document's URL
// equals its key in the containing map.
type DocumentMap map[string]*Document

// Clone returns a deep copy of the map.
func (m DocumentMap) Clone() DocumentMap {
	if m == nil {
		return nil
	}
	c := make(DocumentMap, len(m))
	for url, doc := range m {
		c[url] = doc.Clone()
	}
	return c
}

// ResearchCategory identifies one of the four research tracks.
type ResearchCategory string

const (
	CategoryCompany   ResearchCategory = "company"
	CategoryIndustry  ResearchCategory = "industry"
	CategoryFinancial ResearchCategory = "financial"
	CategoryNews      ResearchCategory = "news"
)

// Categories lists all tracks in report section order.
var Categories = []ResearchCategory{CategoryCompany, CategoryIndustry, CategoryFinancial, CategoryNews}

// Analyst returns the analyst tag used in query events for this category.
func (c ResearchCategory) Analyst() string {
	switch c {
	case CategoryFinancial:
		return "financial_analyst"
	case CategoryNews:
		return "news_scanner"
	case CategoryIndustry:
		return "industry_analyst"
	case CategoryCompany:
		return "company_analyst"
	}
	return string(c)
}

// SectionTitle returns the report section header for this category.
func (c ResearchCategory) SectionTitle() string {
	switch c {
	case CategoryCompany:
		return "Company"
	case CategoryIndustry:
		return "Industry"
	case CategoryFinancial:
		return "Financial"
	case CategoryNews:
		return "News"
	}
	return string(c)
}

// ReferenceInfo carries citation metadata for a reference URL.
type ReferenceInfo struct {
	Title  string  `json:"title"`
	Domain string  `json:"domain"`
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
}

// ResearchState grows monotonically as stages add fields. It is owned by the
// pipeline task for its job; consumers receive snapshots via Clone.
type ResearchState struct {
	Company    string `json:"company"`
	CompanyURL string `json:"company_url,omitempty"`
	HQLocation string `json:"hq_location,omitempty"`
	Industry   string `json:"industry,omitempty"`

	SiteScrape *Document `json:"site_scrape,omitempty"`
	Messages   []string  `json:"messages,omitempty"`

	FinancialData DocumentMap `json:"financial_data,omitempty"`
	NewsData      DocumentMap `json:"news_data,omitempty"`
	IndustryData  DocumentMap `json:"industry_data,omitempty"`
	CompanyData   DocumentMap `json:"company_data,omitempty"`

	CuratedFinancialData DocumentMap `json:"curated_financial_data,omitempty"`
	CuratedNewsData      DocumentMap `json:"curated_news_data,omitempty"`
	CuratedIndustryData  DocumentMap `json:"curated_industry_data,omitempty"`
	CuratedCompanyData   DocumentMap `json:"curated_company_data,omitempty"`

	FinancialBriefing string `json:"financial_briefing,omitempty"`
	NewsBriefing      string `json:"news_briefing,omitempty"`
	IndustryBriefing  string `json:"industry_briefing,omitempty"`
	CompanyBriefing   string `json:"company_briefing,omitempty"`

	Briefings     map[ResearchCategory]string `json:"briefings,omitempty"`
	References    []string                    `json:"references,omitempty"`
	ReferenceInfo map[string]ReferenceInfo    `json:"reference_info,omitempty"`

	Report string `json:"report,omitempty"`
}

// NewResearchState initializes a state from request parameters.
func NewResearchState(req ResearchRequest) *ResearchState {
	return &ResearchState{
		Company:    req.Company,
		CompanyURL: req.CompanyURL,
		HQLocation: req.HQLocation,
		Industry:   req.Industry,
	}
}

// CategoryData returns the raw result map for a category.
func (s *ResearchState) CategoryData(c ResearchCategory) DocumentMap {
	switch c {
	case CategoryFinancial:
		return s.FinancialData
	case CategoryNews:
		return s.NewsData
	case CategoryIndustry:
		return s.IndustryData
	case CategoryCompany:
		return s.CompanyData
	}
	return nil
}

// CuratedData returns the curated map for a category.
func (s *ResearchState) CuratedData(c ResearchCategory) DocumentMap {
	switch c {
	case CategoryFinancial:
		return s.CuratedFinancialData
	case CategoryNews:
		return s.CuratedNewsData
	case CategoryIndustry:
		return s.CuratedIndustryData
	case CategoryCompany:
		return s.CuratedCompanyData
	}
	return nil
}

// Briefing returns the briefing text for a category.
func (s *ResearchState) Briefing(c ResearchCategory) string {
	switch c {
	case CategoryFinancial:
		return s.FinancialBriefing
	case CategoryNews:
		return s.NewsBriefing
	case CategoryIndustry:
		return s.IndustryBriefing
	case CategoryCompany:
		return s.CompanyBriefing
	}
	return ""
}

// Clone returns a deep copy of the state. Stages receive clones and must not
// mutate the snapshot they were given.
func (s *ResearchState) Clone() *ResearchState {
	if s == nil {
		return nil
	}
	c := *s
	c.SiteScrape = s.SiteScrape.Clone()
	c.Messages = append([]string(nil), s.Messages...)
	c.FinancialData = s.FinancialData.Clone()
	c.NewsData = s.NewsData.Clone()
	c.IndustryData = s.IndustryData.Clone()
	c.CompanyData = s.CompanyData.Clone()
	c.CuratedFinancialData = s.CuratedFinancialData.Clone()
	c.CuratedNewsData = s.CuratedNewsData.Clone()
	c.CuratedIndustryData = s.CuratedIndustryData.Clone()
	c.CuratedCompanyData = s.CuratedCompanyData.Clone()
	if s.Briefings != nil {
		c.Briefings = make(map[ResearchCategory]string, len(s.Briefings))
		for k, v := range s.Briefings {
			c.Briefings[k] = v
		}
	}
	c.References = append([]string(nil), s.References...)
	if s.ReferenceInfo != nil {
		c.ReferenceInfo = make(map[string]ReferenceInfo, len(s.ReferenceInfo))
		for k, v := range s.ReferenceInfo {
			c.ReferenceInfo[k] = v
		}
	}
	return &c
}

// StateDelta is the partial state a stage produces. The engine merges deltas
// into the job's state at stage boundaries; per top-level key, later writes
// overwrite earlier, and messages append.
type StateDelta struct {
	SiteScrape    *Document
	Messages      []string
	CategoryData  map[ResearchCategory]DocumentMap
	CuratedData   map[ResearchCategory]DocumentMap
	Briefings     map[ResearchCategory]string
	References    []string
	ReferenceInfo map[string]ReferenceInfo
	Report        *string
}

// Merge applies a delta to the state.
func (s *ResearchState) Merge(d *StateDelta) {
	if d == nil {
		return
	}
	if d.SiteScrape != nil {
		s.SiteScrape = d.SiteScrape
	}
	s.Messages = append(s.Messages, d.Messages...)
	for c, m := range d.CategoryData {
		switch c {
		case CategoryFinancial:
			s.FinancialData = m
		case CategoryNews:
			s.NewsData = m
		case CategoryIndustry:
			s.IndustryData = m
		case CategoryCompany:
			s.CompanyData = m
		}
	}
	for c, m := range d.CuratedData {
		switch c {
		case CategoryFinancial:
			s.CuratedFinancialData = m
		case CategoryNews:
			s.CuratedNewsData = m
		case CategoryIndustry:
			s.CuratedIndustryData = m
		case CategoryCompany:
			s.CuratedCompanyData = m
		}
	}
	for c, text := range d.Briefings {
		if s.Briefings == nil {
			s.Briefings = make(map[ResearchCategory]string)
		}
		s.Briefings[c] = text
		switch c {
		case CategoryFinancial:
			s.FinancialBriefing = text
		case CategoryNews:
			s.NewsBriefing = text
		case CategoryIndustry:
			s.IndustryBriefing = text
		case CategoryCompany:
			s.CompanyBriefing = text
		}
	}
	if d.References != nil {
		s.References = d.References
	}
	if d.ReferenceInfo != nil {
		s.ReferenceInfo = d.ReferenceInfo
	}
	if d.Report != nil {
		s.Report = *d.Report
	}
}
