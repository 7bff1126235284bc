package web

import "net/http"

// apiAuth guards the external read API with a static key header.
func (s *Server) apiAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if _, ok := s.apiKeys[key]; key == "" || !ok {
			s.writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

// sessionAuth is the dashboard auth boundary. Real session handling
// lives outside this service; here a static session token in a cookie
// or bearer header is enough to fence off operator actions.
func (s *Server) sessionAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if cookie, err := r.Cookie("session"); err == nil {
			token = cookie.Value
		}
		if token == "" {
			token = r.Header.Get("Authorization")
			if len(token) > 7 && token[:7] == "Bearer " {
				token = token[7:]
			}
		}
		if s.sessionToken == "" || token != s.sessionToken {
			s.writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		next(w, r)
	}
}
