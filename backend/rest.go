package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/ethpandaops/conduit-client/types"
	"github.com/gorilla/mux"
)

const maxBodySize = 1 << 20

type callBuilder func(r *http.Request, call *Call) error

func (b *Backend) initRESTRouter(router *mux.Router) {
	router.HandleFunc("/tags", b.restHandler(types.OpGetTags, nil)).Methods(http.MethodGet)
	router.HandleFunc("/articles", b.restHandler(types.OpGetArticlesList, withQuery)).Methods(http.MethodGet)
	router.HandleFunc("/articles", b.restHandler(types.OpCreateArticle, withArticle)).Methods(http.MethodPost)
	router.HandleFunc("/articles/feed", b.restHandler(types.OpGetArticlesFeed, withQuery)).Methods(http.MethodGet)
	router.HandleFunc("/articles/{slug}", b.restHandler(types.OpGetArticleBySlug, nil)).Methods(http.MethodGet)
	router.HandleFunc("/articles/{slug}", b.restHandler(types.OpUpdateArticle, withArticle)).Methods(http.MethodPut)
	router.HandleFunc("/articles/{slug}", b.restHandler(types.OpDeleteArticle, nil)).Methods(http.MethodDelete)
	router.HandleFunc("/articles/{slug}/comments", b.restHandler(types.OpGetComments, nil)).Methods(http.MethodGet)
	router.HandleFunc("/articles/{slug}/comments", b.restHandler(types.OpCreateComment, withComment)).Methods(http.MethodPost)
	router.HandleFunc("/articles/{slug}/comments/{id}", b.restHandler(types.OpDeleteComment, nil)).Methods(http.MethodDelete)
	router.HandleFunc("/articles/{slug}/favorite", b.restHandler(types.OpFavoriteArticle, nil)).Methods(http.MethodPost)
	router.HandleFunc("/articles/{slug}/favorite", b.restHandler(types.OpUnfavoriteArticle, nil)).Methods(http.MethodDelete)
}

func (b *Backend) restHandler(op types.Operation, build callBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)

		call := &Call{
			Operation: op,
			Token:     bearerToken(r.Header.Get("Authorization")),
			Slug:      vars["slug"],
			CommentID: vars["id"],
		}

		if build != nil {
			if err := build(r, call); err != nil {
				b.writeError(w, r, errInvalid(err.Error()))
				return
			}
		}

		doc, err := b.Handle(call)
		if err != nil {
			b.writeError(w, r, err)
			return
		}

		status := http.StatusOK
		if op == types.OpCreateArticle || op == types.OpCreateComment {
			status = http.StatusCreated
		}

		b.writeJSON(w, r, status, doc)
	}
}

// bearerToken accepts both the "Token" scheme the client sends and
// "Bearer".
func bearerToken(header string) string {
	for _, scheme := range []string{"Token ", "Bearer "} {
		if strings.HasPrefix(header, scheme) {
			return strings.TrimSpace(header[len(scheme):])
		}
	}

	return ""
}

func withQuery(r *http.Request, call *Call) error {
	call.Query = make(map[string]string)

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			call.Query[key] = values[0]
		}
	}

	return nil
}

func readBody(r *http.Request) (map[string]interface{}, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed reading body: %w", err)
	}

	body := map[string]interface{}{}
	if len(data) == 0 {
		return body, nil
	}

	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("invalid json body: %w", err)
	}

	return body, nil
}

func withArticle(r *http.Request, call *Call) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}

	article, _ := body["article"].(map[string]interface{})
	call.Article = parseArticleFields(article)

	return nil
}

func withComment(r *http.Request, call *Call) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}

	call.Comment = commentText(body)

	return nil
}

func commentText(body map[string]interface{}) string {
	comment, _ := body["comment"].(map[string]interface{})
	text, _ := comment["body"].(string)

	return text
}

func (b *Backend) writeJSON(w http.ResponseWriter, r *http.Request, status int, doc interface{}) {
	data, err := json.Marshal(doc)
	if err != nil {
		b.logger.WithError(err).Error("failed encoding response")
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
		w.WriteHeader(status)

		if _, err := w.Write(data); err != nil {
			b.logger.WithError(err).Debug("failed writing response")
		}

		return
	}

	w.Header().Set("Content-Encoding", "br")
	w.WriteHeader(status)

	bw := brotli.NewWriter(w)
	if _, err := bw.Write(data); err != nil {
		b.logger.WithError(err).Debug("failed writing response")
	}

	if err := bw.Close(); err != nil {
		b.logger.WithError(err).Debug("failed flushing response")
	}
}

func (b *Backend) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var opErr *Error
	if errors.As(err, &opErr) {
		status = opErr.Status
	} else {
		b.logger.WithError(err).Error("operation failed")
	}

	b.writeJSON(w, r, status, map[string]interface{}{
		"errors": map[string]interface{}{
			"body": []string{err.Error()},
		},
	})
}
