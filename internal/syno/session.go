package syno

import "sync"

// session is the atomically swappable sid cell shared by all calls on
// one client. Reads and replacements are individually atomic; a stale
// read between two concurrent re-logins is tolerated, since the server
// accepts repeated logins and whichever completed last wins.
type session struct {
	mu  sync.RWMutex
	sid string
}

func (s *session) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sid
}

// replace installs a new sid. It is only ever called with a token from
// a successful login, so a failed or cancelled re-login leaves the
// previous token in place.
func (s *session) replace(sid string) {
	s.mu.Lock()
	s.sid = sid
	s.mu.Unlock()
}

func (s *session) active() bool {
	return s.token() != ""
}
