package backend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ethpandaops/conduit-client/metrics"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"
)

// Server exposes a Backend over REST under /api and over the QEWD protocol
// at /ws.
type Server struct {
	backend *Backend
	qewd    *QEWDHandler
	logger  logrus.FieldLogger
	handler http.Handler
}

func NewServer(backend *Backend, logger logrus.FieldLogger) *Server {
	s := &Server{
		backend: backend,
		qewd:    newQEWDHandler(backend, logger.WithField("module", "qewd")),
		logger:  logger,
	}

	router := mux.NewRouter()
	router.Handle("/ws", s.qewd)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(s.metricsMiddleware)
	backend.initRESTRouter(apiRouter)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(router)

	s.handler = n

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) QEWD() *QEWDHandler {
	return s.qewd
}

func (s *Server) Start(host string, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%v:%v", host, port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("listening on: %v", srv.Addr)

	return srv.ListenAndServe()
}

// metricsMiddleware records one request entry per REST call, labelled with
// the route template rather than the concrete path.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		status := http.StatusOK
		size := 0

		if nw, ok := w.(negroni.ResponseWriter); ok {
			status = nw.Status()
			size = nw.Size()
		}

		duration := time.Since(start)

		metrics.ObserveRequest(metrics.NewRequestEntry("rest", r.Method, route, status, size, duration))

		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   status,
			"duration": duration,
		}).Debug("request served")
	})
}
