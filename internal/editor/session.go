package editor

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSessionTTL is how long an untouched editing session is kept
const DefaultSessionTTL = 30 * time.Minute

// Sessions keeps the form state and content managers of documents that are
// open in the editor, so that successive requests for the same document
// share one controller per field.
type Sessions struct {
	fetcher TemplateFetcher
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*session
}

type session struct {
	form     *Form
	managers map[string]*ContentManager
	lastUsed time.Time
}

// NewSessions creates an empty registry. A ttl of zero uses DefaultSessionTTL.
func NewSessions(fetcher TemplateFetcher, ttl time.Duration, logger *zap.Logger) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*session),
	}
}

// Open returns the form of document and the content manager bound to the
// contentManager field at path, creating either on first use.
func (s *Sessions) Open(document, path, schemaPath string) (*Form, *ContentManager) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	sess, ok := s.entries[document]
	if !ok {
		sess = &session{form: NewForm(nil), managers: make(map[string]*ContentManager)}
		s.entries[document] = sess
	}
	sess.lastUsed = now

	m, ok := sess.managers[path]
	if !ok {
		m = NewContentManager(path, schemaPath, s.fetcher, s.logger)
		sess.managers[path] = m
	}
	return sess.form, m
}

// Close drops a document's session
func (s *Sessions) Close(document string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, document)
}

// Len is the number of open sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Sessions) evictLocked(now time.Time) {
	for doc, sess := range s.entries {
		if now.Sub(sess.lastUsed) > s.ttl {
			s.logger.Debug("Dropping idle editor session", zap.String("document", doc))
			delete(s.entries, doc)
		}
	}
}
