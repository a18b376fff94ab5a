// Package server exposes the resolver over HTTP.
//
// Handlers only validate parameters; every error they return goes through a
// single error handler that turns it into a status code and a JSON body. All
// caching decisions belong to the resolver.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/Sternrassler/overfast-proxy/internal/scheduler"
	"github.com/Sternrassler/overfast-proxy/pkg/cache"
	"github.com/Sternrassler/overfast-proxy/pkg/metrics"
	"github.com/Sternrassler/overfast-proxy/pkg/parsers"
	"github.com/Sternrassler/overfast-proxy/pkg/resolver"
	"github.com/Sternrassler/overfast-proxy/pkg/store"
	"github.com/Sternrassler/overfast-proxy/pkg/upstream"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "overfast_http_requests_total",
		Help: "API requests by route and status code",
	}, []string{"route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "overfast_http_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"route"})
)

// Locales served by the upstream site.
var Locales = []string{
	"de-de", "en-gb", "en-us", "es-es", "es-mx", "fr-fr", "it-it",
	"ja-jp", "ko-kr", "pl-pl", "pt-br", "ru-ru", "zh-tw",
}

var (
	roles           = []string{parsers.RoleTank, parsers.RoleDamage, parsers.RoleSupport}
	heroKeyPattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	playerIDPattern = regexp.MustCompile(`^[\p{L}\p{N}]+-[0-9]{3,8}$`)
)

// Resolver produces request payloads.
type Resolver interface {
	Resolve(ctx context.Context, kind string, sig cache.RequestSignature, p resolver.Params) ([]byte, error)
}

// JobLister reports background jobs for /health.
type JobLister interface {
	ListJobs() []scheduler.JobInfo
}

// Config holds the server dependencies.
type Config struct {
	Resolver Resolver
	Store    store.Store

	// Jobs is optional.
	Jobs JobLister

	// DefaultLocale applies when a request has no locale parameter.
	DefaultLocale string

	// RequestTimeout bounds one API request. 0 means no extra bound.
	RequestTimeout time.Duration

	Logger *zerolog.Logger
}

// Server routes API requests onto the resolver.
type Server struct {
	echo          *echo.Echo
	resolver      Resolver
	store         store.Store
	jobs          JobLister
	defaultLocale string
	timeout       time.Duration
	logger        zerolog.Logger
}

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// HealthStatus is the body of /health and /ready.
type HealthStatus struct {
	Status string              `json:"status"`
	Jobs   []scheduler.JobInfo `json:"jobs,omitempty"`
}

// New creates a server and registers its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.DefaultLocale == "" {
		cfg.DefaultLocale = "en-us"
	}
	if !slices.Contains(Locales, cfg.DefaultLocale) {
		return nil, fmt.Errorf("unsupported default locale: %s", cfg.DefaultLocale)
	}

	logger := log.With().Str("component", "server").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Server{
		resolver:      cfg.Resolver,
		store:         cfg.Store,
		jobs:          cfg.Jobs,
		defaultLocale: cfg.DefaultLocale,
		timeout:       cfg.RequestTimeout,
		logger:        logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(metricsMiddleware)

	e.GET("/heroes", s.handleListHeroes)
	e.GET("/heroes/:key", s.handleGetHero)
	e.GET("/roles", s.handleListRoles)
	e.GET("/maps", s.handleListMaps)
	e.GET("/gamemodes", s.handleListGamemodes)
	e.GET("/players/:player_id/stats/summary", s.handlePlayerSummary)
	e.GET("/health", s.handleHealth)
	e.GET("/ready", s.handleReady)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	s.echo = e

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleListHeroes(c echo.Context) error {
	locale, err := s.locale(c)
	if err != nil {
		return err
	}
	role := c.QueryParam("role")
	if role != "" && !slices.Contains(roles, role) {
		return invalid("invalid role: %s", role)
	}
	return s.resolve(c, resolver.KindListHeroes, resolver.Params{Locale: locale, Role: role}, true)
}

func (s *Server) handleGetHero(c echo.Context) error {
	locale, err := s.locale(c)
	if err != nil {
		return err
	}
	key := c.Param("key")
	if !heroKeyPattern.MatchString(key) {
		return invalid("invalid hero key: %s", key)
	}
	return s.resolve(c, resolver.KindGetHero, resolver.Params{Locale: locale, HeroKey: key}, true)
}

func (s *Server) handleListRoles(c echo.Context) error {
	locale, err := s.locale(c)
	if err != nil {
		return err
	}
	return s.resolve(c, resolver.KindListRoles, resolver.Params{Locale: locale}, true)
}

func (s *Server) handleListMaps(c echo.Context) error {
	return s.resolve(c, resolver.KindListMaps, resolver.Params{Gamemode: c.QueryParam("gamemode")}, false)
}

func (s *Server) handleListGamemodes(c echo.Context) error {
	locale, err := s.locale(c)
	if err != nil {
		return err
	}
	return s.resolve(c, resolver.KindListGamemodes, resolver.Params{Locale: locale}, true)
}

// handlePlayerSummary serves career pages in the default locale; the
// counters do not depend on the language.
func (s *Server) handlePlayerSummary(c echo.Context) error {
	playerID := c.Param("player_id")
	if !playerIDPattern.MatchString(playerID) {
		return invalid("invalid player id: %s", playerID)
	}
	gamemode := c.QueryParam("gamemode")
	if gamemode != "" && !slices.Contains(parsers.CareerGamemodes, gamemode) {
		return invalid("invalid gamemode: %s", gamemode)
	}
	p := resolver.Params{Locale: s.defaultLocale, PlayerID: playerID, Gamemode: gamemode}
	return s.resolve(c, resolver.KindGetPlayerSummary, p, false)
}

func (s *Server) handleHealth(c echo.Context) error {
	status := HealthStatus{Status: "ok"}
	if s.jobs != nil {
		status.Jobs = s.jobs.ListJobs()
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleReady(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Readiness check failed")
		return &echo.HTTPError{Code: http.StatusServiceUnavailable, Message: "store unavailable", Internal: err}
	}
	return c.JSON(http.StatusOK, HealthStatus{Status: "ready"})
}

// locale returns the effective locale of the request.
func (s *Server) locale(c echo.Context) (string, error) {
	locale := c.QueryParam("locale")
	if locale == "" {
		return s.defaultLocale, nil
	}
	if !slices.Contains(Locales, locale) {
		return "", invalid("invalid locale: %s", locale)
	}
	return locale, nil
}

func (s *Server) resolve(c echo.Context, kind string, p resolver.Params, localized bool) error {
	ctx := c.Request().Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// The effective locale is part of the signature so that an omitted
	// locale and the default one share a response entry.
	sig := cache.NewRequestSignature(c.Request())
	if localized {
		sig.Query.Set("locale", p.Locale)
	}

	payload, err := s.resolver.Resolve(ctx, kind, sig, p)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, sig, err)
	}
	return c.JSONBlob(http.StatusOK, payload)
}

// handleError writes every handler error as {"error": message}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("route", c.Path()).Int("status", status).Msg("Request failed")
	}
	if err := c.JSON(status, errorBody{Error: message}); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write error response")
	}
}

// errorStatus maps an error to the status and message shown to the client.
// Parsing failures and unexpected errors never leak details.
func errorStatus(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}
	if ue, ok := upstream.IsUpstream(err); ok {
		return ue.Status, ue.Message
	}
	if errors.Is(err, store.ErrUnavailable) {
		return http.StatusServiceUnavailable, "store unavailable"
	}
	return http.StatusInternalServerError, "internal server error"
}

func invalid(format string, args ...any) error {
	return &echo.HTTPError{
		Code:    http.StatusUnprocessableEntity,
		Message: fmt.Sprintf(format, args...),
	}
}

// metricsMiddleware counts API requests by route and final status.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Path()
		if route == "/metrics" {
			return next(c)
		}

		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			status, _ = errorStatus(err)
		}
		httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}
