package backend

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Error carries the HTTP status a failed operation maps to. Socket answers
// only use the message.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func errNotFound(what string) *Error {
	return &Error{Status: http.StatusNotFound, Message: what + " not found"}
}

func errInvalid(message string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Message: message}
}

var (
	errUnauthorized = &Error{Status: http.StatusUnauthorized, Message: "authentication required"}
	errForbidden    = &Error{Status: http.StatusForbidden, Message: "not the author"}
)

type Article struct {
	Slug        string
	Title       string
	Description string
	Body        string
	TagList     []string
	Author      string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	favoritedBy map[string]bool
	comments    []*Comment
}

type Comment struct {
	ID        int
	Body      string
	Author    string
	CreatedAt time.Time
}

// ListFilter selects and pages articles.
type ListFilter struct {
	Tag       string
	Author    string
	Favorited string
	NotAuthor string
	Limit     int
	Offset    int
}

// Store keeps articles and comments in memory. Article order is newest
// first.
type Store struct {
	mu             sync.RWMutex
	articles       map[string]*Article
	commentCounter int
	now            func() time.Time
}

func NewStore() *Store {
	return &Store{
		articles: make(map[string]*Article),
		now:      time.Now,
	}
}

func slugify(title string) string {
	var b strings.Builder

	dash := false

	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]

	if slug == "" {
		return suffix
	}

	return slug + "-" + suffix
}

func copyArticle(a *Article) *Article {
	res := *a
	res.TagList = append([]string(nil), a.TagList...)
	res.comments = nil
	res.favoritedBy = make(map[string]bool, len(a.favoritedBy))

	for user := range a.favoritedBy {
		res.favoritedBy[user] = true
	}

	return &res
}

func (a *Article) FavoritedBy(user string) bool {
	return user != "" && a.favoritedBy[user]
}

func (a *Article) FavoritesCount() int {
	return len(a.favoritedBy)
}

func (s *Store) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	tags := []string{}

	for _, article := range s.articles {
		for _, tag := range article.TagList {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}

	sort.Strings(tags)

	return tags
}

// List returns the page selected by filter and the total match count.
func (s *Store) List(filter ListFilter) ([]*Article, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := []*Article{}

	for _, article := range s.articles {
		if filter.Tag != "" && !containsString(article.TagList, filter.Tag) {
			continue
		}

		if filter.Author != "" && article.Author != filter.Author {
			continue
		}

		if filter.NotAuthor != "" && article.Author == filter.NotAuthor {
			continue
		}

		if filter.Favorited != "" && !article.favoritedBy[filter.Favorited] {
			continue
		}

		matches = append(matches, article)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].Slug < matches[j].Slug
		}

		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)

	if filter.Offset > 0 {
		if filter.Offset >= len(matches) {
			matches = nil
		} else {
			matches = matches[filter.Offset:]
		}
	}

	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}

	res := make([]*Article, 0, len(matches))
	for _, article := range matches {
		res = append(res, copyArticle(article))
	}

	return res, total
}

func (s *Store) Get(slug string) (*Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.articles[slug]
	if !ok {
		return nil, errNotFound("article")
	}

	return copyArticle(article), nil
}

func (s *Store) Create(author string, fields *ArticleFields) (*Article, error) {
	if fields.Title == nil || strings.TrimSpace(*fields.Title) == "" {
		return nil, errInvalid("title can't be blank")
	}

	now := s.now()
	article := &Article{
		Slug:        slugify(*fields.Title),
		Title:       *fields.Title,
		Author:      author,
		CreatedAt:   now,
		UpdatedAt:   now,
		favoritedBy: make(map[string]bool),
	}

	fields.apply(article)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.articles[article.Slug] = article

	return copyArticle(article), nil
}

// Update applies the set fields. A new title does not change the slug.
func (s *Store) Update(user, slug string, fields *ArticleFields) (*Article, error) {
	if fields.Title != nil && strings.TrimSpace(*fields.Title) == "" {
		return nil, errInvalid("title can't be blank")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[slug]
	if !ok {
		return nil, errNotFound("article")
	}

	if article.Author != user {
		return nil, errForbidden
	}

	fields.apply(article)
	article.UpdatedAt = s.now()

	return copyArticle(article), nil
}

func (s *Store) Delete(user, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[slug]
	if !ok {
		return errNotFound("article")
	}

	if article.Author != user {
		return errForbidden
	}

	delete(s.articles, slug)

	return nil
}

func (s *Store) SetFavorite(user, slug string, favorite bool) (*Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[slug]
	if !ok {
		return nil, errNotFound("article")
	}

	if favorite {
		article.favoritedBy[user] = true
	} else {
		delete(article.favoritedBy, user)
	}

	return copyArticle(article), nil
}

func (s *Store) Comments(slug string) ([]*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.articles[slug]
	if !ok {
		return nil, errNotFound("article")
	}

	res := make([]*Comment, 0, len(article.comments))
	for _, comment := range article.comments {
		c := *comment
		res = append(res, &c)
	}

	return res, nil
}

func (s *Store) AddComment(user, slug, body string) (*Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errInvalid("body can't be blank")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[slug]
	if !ok {
		return nil, errNotFound("article")
	}

	s.commentCounter++

	comment := &Comment{
		ID:        s.commentCounter,
		Body:      body,
		Author:    user,
		CreatedAt: s.now(),
	}

	article.comments = append(article.comments, comment)

	c := *comment

	return &c, nil
}

func (s *Store) DeleteComment(user, slug, id string) error {
	commentID, err := strconv.Atoi(id)
	if err != nil {
		return errNotFound("comment")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[slug]
	if !ok {
		return errNotFound("article")
	}

	for i, comment := range article.comments {
		if comment.ID != commentID {
			continue
		}

		if comment.Author != user {
			return errForbidden
		}

		article.comments = append(article.comments[:i], article.comments[i+1:]...)

		return nil
	}

	return errNotFound("comment")
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}

	return false
}
