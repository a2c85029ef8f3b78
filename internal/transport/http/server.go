package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oneshot-quiz/internal/app"
	"oneshot-quiz/internal/auth"
	"oneshot-quiz/internal/domain"
	"oneshot-quiz/internal/logging"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

//go:embed templates/*.html
var templateFS embed.FS

const flashCookie = "quiz_flash"

// Options tunes the HTTP layer.
type Options struct {
	SecureCookie bool
	CookieTTL    time.Duration
	AuthLimit    RateLimitConfig
	Logger       *slog.Logger
}

// Server renders the quiz views and serves the countdown websocket.
type Server struct {
	directory *app.Directory
	quizzes   *app.QuizService
	tokens    *auth.Tokens
	pages     map[string]*template.Template
	limiter   *RateLimiter
	upgrader  websocket.Upgrader
	logger    *slog.Logger

	secureCookie bool
	cookieTTL    time.Duration
}

func NewServer(directory *app.Directory, quizzes *app.QuizService, tokens *auth.Tokens, opts Options) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		directory: directory,
		quizzes:   quizzes,
		tokens:    tokens,
		pages:     pages,
		limiter:   NewRateLimiter(opts.AuthLimit),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:       opts.Logger,
		secureCookie: opts.SecureCookie,
		cookieTTL:    opts.CookieTTL,
	}, nil
}

// Routes builds the router. Every route sees the logged-in user when the
// session cookie is valid; the quiz routes require one.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(logging.HTTPMiddleware(s.logger), s.loadUser)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/", s.home).Methods(http.MethodGet)
	r.HandleFunc("/register", s.registerForm).Methods(http.MethodGet)
	r.Handle("/register", s.limiter.Middleware(http.HandlerFunc(s.register))).Methods(http.MethodPost)
	r.HandleFunc("/login", s.loginForm).Methods(http.MethodGet)
	r.Handle("/login", s.limiter.Middleware(http.HandlerFunc(s.login))).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.logout).Methods(http.MethodPost)

	gated := r.NewRoute().Subrouter()
	gated.Use(s.isAuthenticated)
	gated.HandleFunc("/quiz", s.quiz).Methods(http.MethodGet)
	gated.HandleFunc("/quiz/next", s.quizNext).Methods(http.MethodPost)
	gated.HandleFunc("/quiz/quit", s.quizQuit).Methods(http.MethodPost)
	gated.HandleFunc("/results", s.results).Methods(http.MethodGet)
	gated.HandleFunc("/ws", s.serveWS).Methods(http.MethodGet)

	return r
}

// loadUser attaches the username from a valid session cookie to the context.
func (s *Server) loadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(auth.CookieName)
		if err == nil && c.Value != "" {
			if username, err := s.tokens.Verify(c.Value); err == nil {
				r = r.WithContext(auth.WithUser(r.Context(), username))
			} else {
				s.clearSession(w)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// isAuthenticated sends anonymous visitors to the login page.
func (s *Server) isAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setSession(w http.ResponseWriter, token string) {
	c := &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if s.cookieTTL > 0 {
		c.MaxAge = int(s.cookieTTL / time.Second)
	}
	http.SetCookie(w, c)
}

func (s *Server) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

type flash struct {
	Kind    string
	Message string
}

// setFlash stores a one-shot notification shown on the next rendered page.
func (s *Server) setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + ":" + message),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, ":")
	if !ok {
		return nil
	}
	return &flash{Kind: kind, Message: message}
}

type pageData struct {
	Title    string
	User     string
	Flash    *flash
	Error    string
	Username string
	Quiz     app.SessionView
	Result   domain.Result
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"inc":   func(i int) int { return i + 1 },
		"clock": clock,
	}
	pages := make(map[string]*template.Template)
	for _, name := range []string{"home", "register", "login", "quiz", "results", "noresults"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// clock formats remaining seconds as mm:ss.
func clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	if data.User == "" {
		data.User, _ = auth.UserFromContext(r.Context())
	}
	if data.Flash == nil {
		data.Flash = s.popFlash(w, r)
	}
	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.serverError(w, r, fmt.Errorf("render %s: %w", page, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("request failed", "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
