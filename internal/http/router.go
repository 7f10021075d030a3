package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Speakers      *SpeakerHandler
	Programs      *ProgramHandler
	Congregations *CongregationHandler
	// Session guards every route except login and registration.
	Session    func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	public := http.NewServeMux()
	protected := http.NewServeMux()

	if cfg.Auth != nil {
		public.HandleFunc("/login", only(http.MethodPost, cfg.Auth.Login))
		public.HandleFunc("/register", only(http.MethodPost, cfg.Auth.Register))
	}

	if cfg.Users != nil {
		protected.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Users.Profile(w, r)
			case http.MethodPut:
				cfg.Users.UpdateProfile(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		})
		protected.HandleFunc("/admin/users", only(http.MethodGet, cfg.Users.List))
		protected.HandleFunc("/admin/users/pending", only(http.MethodGet, cfg.Users.Pending))
		protected.HandleFunc("/admin/stats", only(http.MethodGet, cfg.Users.Stats))
		protected.HandleFunc("/admin/users/", func(w http.ResponseWriter, r *http.Request) {
			id, action, found := strings.Cut(strings.TrimPrefix(r.URL.Path, "/admin/users/"), "/")
			if id == "" || !found {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch action {
			case "approve":
				only(http.MethodPost, cfg.Users.Approve)(w, r)
			case "reject":
				only(http.MethodPost, cfg.Users.Reject)(w, r)
			case "role":
				only(http.MethodPut, cfg.Users.ChangeRole)(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Speakers != nil {
		protected.HandleFunc("/speakers", collection(cfg.Speakers.List, cfg.Speakers.Create))
		protected.HandleFunc("/speakers/candidates", only(http.MethodGet, cfg.Speakers.Candidates))
		protected.HandleFunc("/speakers/", item("/speakers/", cfg.Speakers.Get, cfg.Speakers.Update, cfg.Speakers.Delete))
	}

	if cfg.Programs != nil {
		protected.HandleFunc("/programs", collection(cfg.Programs.List, cfg.Programs.Create))
		protected.HandleFunc("/programs.ics", only(http.MethodGet, cfg.Programs.Calendar))
		protected.HandleFunc("/programs/availability", only(http.MethodGet, cfg.Programs.Availability))
		protected.HandleFunc("/programs/occupied", only(http.MethodGet, cfg.Programs.Occupied))
		protected.HandleFunc("/programs/", item("/programs/", cfg.Programs.Get, cfg.Programs.Update, cfg.Programs.Delete))
	}

	if cfg.Congregations != nil {
		protected.HandleFunc("/congregations", collection(cfg.Congregations.List, cfg.Congregations.Create))
		protected.HandleFunc("/congregations/", item("/congregations/", cfg.Congregations.Get, cfg.Congregations.Update, cfg.Congregations.Delete))
	}

	var guarded http.Handler = protected
	if cfg.Session != nil {
		guarded = cfg.Session(protected)
	}
	public.Handle("/", guarded)

	var handler http.Handler = public
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func only(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w, method)
			return
		}
		fn(w, r)
	}
}

func collection(list, create http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	}
}

func item(prefix string, get, update, remove http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, prefix)
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithResourceID(r.Context(), id))
		switch r.Method {
		case http.MethodGet:
			get(w, r)
		case http.MethodPut:
			update(w, r)
		case http.MethodDelete:
			remove(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
