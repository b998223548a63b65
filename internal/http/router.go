package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth       *AuthHandler
	Events     *EventHandler
	Tickets    *TicketHandler
	Attendees  *AttendeeHandler
	Analytics  *AnalyticsHandler
	Campaigns  *CampaignHandler
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Auth != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Auth.GetCurrentSession(w, r)
			case http.MethodDelete:
				cfg.Auth.DeleteCurrentSession(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
	}

	if cfg.Events != nil {
		mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Events.List(w, r)
			case http.MethodPost:
				cfg.Events.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/events/")
			segments := strings.Split(rest, "/")
			if len(segments) == 0 || segments[0] == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEventID(r.Context(), segments[0]))

			switch {
			case len(segments) == 1:
				r = r.WithContext(ContextWithResourceID(r.Context(), segments[0]))
				switch r.Method {
				case http.MethodGet:
					cfg.Events.Get(w, r)
				case http.MethodPatch:
					cfg.Events.Update(w, r)
				case http.MethodDelete:
					cfg.Events.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
				}
			case len(segments) == 2 && segments[1] == "ticket-types" && cfg.Tickets != nil:
				switch r.Method {
				case http.MethodGet:
					cfg.Tickets.List(w, r)
				case http.MethodPost:
					cfg.Tickets.Create(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case len(segments) == 2 && segments[1] == "attendees" && cfg.Attendees != nil:
				switch r.Method {
				case http.MethodGet:
					cfg.Attendees.List(w, r)
				case http.MethodPost:
					cfg.Attendees.Register(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case len(segments) == 2 && segments[1] == "analytics" && cfg.Analytics != nil:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Analytics.GetSnapshot(w, r)
			case len(segments) == 3 && segments[1] == "analytics" && segments[2] == "views" && cfg.Analytics != nil:
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Analytics.RecordView(w, r)
			case len(segments) == 2 && segments[1] == "campaigns" && cfg.Campaigns != nil:
				switch r.Method {
				case http.MethodGet:
					cfg.Campaigns.List(w, r)
				case http.MethodPost:
					cfg.Campaigns.Create(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Tickets != nil {
		mux.HandleFunc("/ticket-types/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/ticket-types/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Tickets.Get(w, r)
			case http.MethodPatch:
				cfg.Tickets.Update(w, r)
			case http.MethodDelete:
				cfg.Tickets.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
			}
		})
	}

	if cfg.Attendees != nil {
		mux.HandleFunc("/attendees/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/attendees/")
			segments := strings.Split(rest, "/")
			if len(segments) == 0 || segments[0] == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), segments[0]))

			switch {
			case len(segments) == 1:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Attendees.Get(w, r)
			case len(segments) == 2 && segments[1] == "check-in":
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				cfg.Attendees.SetCheckIn(w, r)
			case len(segments) == 2 && segments[1] == "payment":
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				cfg.Attendees.SetPayment(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Campaigns != nil {
		mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/campaigns/")
			segments := strings.Split(rest, "/")
			if len(segments) == 0 || segments[0] == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), segments[0]))

			switch {
			case len(segments) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Campaigns.Get(w, r)
				case http.MethodPatch:
					cfg.Campaigns.Update(w, r)
				case http.MethodDelete:
					cfg.Campaigns.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
				}
			case len(segments) == 2 && segments[1] == "send":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Campaigns.Send(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
