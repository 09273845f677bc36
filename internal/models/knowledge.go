package models

type LawDocument struct {
	ID                    int64   `json:"id"`
	LawName               string  `json:"lawName"`
	LawCategoryID         int64   `json:"lawCategoryId"`
	ArticleNumber         int     `json:"articleNumber"`
	OriginalText          string  `json:"originalText"`
	OriginalTextSegmented string  `json:"originalTextSegmented"`
	IssueYear             *int    `json:"issueYear"`
	RelatedRegulationIDs  *string `json:"relatedRegulationIds"`
	CreateTime            string  `json:"createTime"`
}

type LawDocumentWithAnalysis struct {
	LawDocument LawDocument `json:"lawDocument"`
	AIAnalysis  string      `json:"aiAnalysis"`
}

type Regulation struct {
	RegulationID  int64  `json:"regulationId"`
	IssueYear     string `json:"issueYear"`
	ArticleNumber int    `json:"articleNumber"`
	OriginalText  string `json:"originalText"`
}

type LawCategoryWithRegulations struct {
	LawID        int64        `json:"lawId"`
	LawName      string       `json:"lawName"`
	CategoryType int          `json:"categoryType"`
	Regulations  []Regulation `json:"regulations"`
}

// LawsPage is one page of national or local laws, pages are numbered from 1
type LawsPage struct {
	Content     []LawCategoryWithRegulations `json:"content"`
	Page        int                          `json:"page"`
	Size        int                          `json:"size"`
	Total       int64                        `json:"total"`
	TotalPages  int                          `json:"totalPages"`
	HasNext     bool                         `json:"hasNext"`
	HasPrevious bool                         `json:"hasPrevious"`
	IsFirst     bool                         `json:"isFirst"`
	IsLast      bool                         `json:"isLast"`
	IsEmpty     bool                         `json:"isEmpty"`
}

type RelevantCase struct {
	CaseContent string `json:"caseContent"`
	CaseLink    string `json:"caseLink"`
}

type KnowledgeRegulationItem struct {
	LawName            string         `json:"lawName"`
	RegulationContent  string         `json:"regulationContent"`
	AITranslateContent string         `json:"aiTranslateContent"`
	RelevantCases      []RelevantCase `json:"relevantCases"`
	RelevantQuestions  []string       `json:"relevantQuestions"`
	ArticleNumber      int            `json:"articleNumber"`
	TotalArticles      int            `json:"totalArticles"`
	IssueYear          *string        `json:"issueYear"`
}

type RelatedArticle struct {
	ID            string `json:"id"`
	LawName       string `json:"lawName"`
	ArticleNumber string `json:"articleNumber"`
	Title         string `json:"title"`
}

type RelatedCase struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type LawArticle struct {
	ID               string           `json:"id"`
	RegulationID     int64            `json:"regulationId,omitempty"`
	LawName          string           `json:"lawName"`
	ArticleNumber    string           `json:"articleNumber"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	Interpretation   string           `json:"interpretation"`
	RelatedArticles  []RelatedArticle `json:"relatedArticles"`
	RelatedCases     []RelatedCase    `json:"relatedCases,omitempty"`
	RelatedQuestions []string         `json:"relatedQuestions"`
	Category         string           `json:"category"`
	IsFavorite       bool             `json:"isFavorite,omitempty"`
}

type Recommendation struct {
	RecommendationText string       `json:"recommendationText"`
	Articles           []LawArticle `json:"articles"`
}

type UserFavoriteRegulation struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"userId"`
	RegulationID   int64  `json:"regulationId"`
	RegulationName string `json:"regulationName"`
	LawCategoryID  int64  `json:"lawCategoryId"`
	IssueYear      string `json:"issueYear"`
	ArticleNumber  int    `json:"articleNumber"`
	OriginalText   string `json:"originalText"`
	CreatedTime    string `json:"createdTime"`
}
