package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lexconsult/consult-client/internal/apierrors"
	"github.com/lexconsult/consult-client/internal/models"
)

const defaultPageSize int = 10

func (c *Client) QueryKnowledge(ctx context.Context, question string) ([]models.KnowledgeRegulationItem, error) {
	if question == "" {
		return nil, fmt.Errorf("%w: the question cannot be empty", apierrors.ErrInvalidArgument)
	}
	return list[models.KnowledgeRegulationItem](ctx, c, http.MethodGet, "/knowledgebs/query", WithQuery("question", question))
}

func (c *Client) HotTopics(ctx context.Context) ([]string, error) {
	return list[string](ctx, c, http.MethodGet, "/knowledgebs/topic")
}

func (c *Client) CommonCases(ctx context.Context) ([]string, error) {
	return list[string](ctx, c, http.MethodGet, "/knowledgebs/case")
}

// SearchHistory returns the previous knowledge base questions of the user
func (c *Client) SearchHistory(ctx context.Context) ([]string, error) {
	return list[string](ctx, c, http.MethodGet, "/knowledgebs/history")
}

func (c *Client) DeleteSearchHistory(ctx context.Context, query string) error {
	if query == "" {
		return fmt.Errorf("%w: the history entry cannot be empty", apierrors.ErrInvalidArgument)
	}
	_, err := c.Send(ctx, http.MethodDelete, "/knowledgebs/history/delete", nil, WithQuery("historyQuery", query))
	return err
}

// RecommendedArticles suggests articles for the last question of a consultation
func (c *Client) RecommendedArticles(ctx context.Context, lastQuestion string) (models.Recommendation, error) {
	rec, err := Do[models.Recommendation](
		ctx,
		c,
		http.MethodPost,
		"/knowledge/recommend",
		map[string]string{"lastQuestion": lastQuestion},
	)
	if err != nil {
		return models.Recommendation{}, err
	}
	if rec.Articles == nil {
		rec.Articles = []models.LawArticle{}
	}
	return rec, nil
}

func (c *Client) SearchArticles(ctx context.Context, keyword string) ([]models.LawArticle, error) {
	if keyword == "" {
		return nil, fmt.Errorf("%w: the keyword cannot be empty", apierrors.ErrInvalidArgument)
	}
	return list[models.LawArticle](ctx, c, http.MethodGet, "/knowledge/search", WithQuery("keyword", keyword))
}

func (c *Client) ArticlesByCategory(ctx context.Context, category, subCategory string) ([]models.LawArticle, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: the category cannot be empty", apierrors.ErrInvalidArgument)
	}
	options := []RequestOption{WithQuery("category", category)}
	if subCategory != "" {
		options = append(options, WithQuery("subCategory", subCategory))
	}
	return list[models.LawArticle](ctx, c, http.MethodGet, "/knowledge/category", options...)
}

// RegulationDetail returns one regulation together with its generated analysis
func (c *Client) RegulationDetail(ctx context.Context, regulationID int64) (models.LawDocumentWithAnalysis, error) {
	return Do[models.LawDocumentWithAnalysis](
		ctx,
		c,
		http.MethodGet,
		"/knowledge/regulation/"+strconv.FormatInt(regulationID, 10),
		nil,
	)
}

func (c *Client) ArticleDetail(ctx context.Context, articleID string) (models.LawArticle, error) {
	if articleID == "" {
		return models.LawArticle{}, fmt.Errorf("%w: the article id cannot be empty", apierrors.ErrInvalidArgument)
	}
	return Do[models.LawArticle](ctx, c, http.MethodGet, "/knowledge/article/"+articleID, nil)
}

func (c *Client) AddFavorite(ctx context.Context, regulationID int64) (bool, error) {
	return Do[bool](ctx, c, http.MethodPost, "/lawFavor/add", nil, WithQueryInt("regulationId", regulationID))
}

func (c *Client) RemoveFavorite(ctx context.Context, regulationID int64) (bool, error) {
	return Do[bool](ctx, c, http.MethodDelete, "/lawFavor/remove", nil, WithQueryInt("regulationId", regulationID))
}

func (c *Client) Favorites(ctx context.Context) ([]models.UserFavoriteRegulation, error) {
	return list[models.UserFavoriteRegulation](ctx, c, http.MethodGet, "/lawFavor/list")
}

func (c *Client) FavoriteCount(ctx context.Context) (int64, error) {
	return Do[int64](ctx, c, http.MethodGet, "/lawFavor/count", nil)
}

func (c *Client) IsFavorite(ctx context.Context, regulationID int64) (bool, error) {
	return Do[bool](ctx, c, http.MethodGet, "/lawFavor/check", nil, WithQueryInt("regulationId", regulationID))
}

// NationalLaws returns one page of the national laws, pages start at 1
func (c *Client) NationalLaws(ctx context.Context, page, size int) (models.LawsPage, error) {
	return c.laws(ctx, "/law/national-laws", page, size)
}

// LocalLaws returns one page of the local laws, pages start at 1
func (c *Client) LocalLaws(ctx context.Context, page, size int) (models.LawsPage, error) {
	return c.laws(ctx, "/law/local-laws", page, size)
}

func (c *Client) laws(ctx context.Context, path string, page, size int) (models.LawsPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	res, err := Do[models.LawsPage](
		ctx,
		c,
		http.MethodGet,
		path,
		nil,
		WithQueryInt("page", int64(page)),
		WithQueryInt("size", int64(size)),
	)
	if err != nil {
		return models.LawsPage{}, err
	}
	if res.Content == nil {
		res.Content = []models.LawCategoryWithRegulations{}
	}
	return res, nil
}
