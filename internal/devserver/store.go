package devserver

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"ragdesk/pkg/api"
)

var ErrDocumentNotFound = errors.New("document not found")

// Store is the dev backend's in-memory state.
type Store struct {
	mu        sync.RWMutex
	documents []api.Document
	history   []historyEntry
	nextDoc   int
	nextChat  int
	now       func() time.Time
}

type historyEntry struct {
	sessionID string
	entry     api.HistoryEntry
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// AddDocument assigns the next numeric id and upload time to doc.
func (s *Store) AddDocument(doc api.Document) api.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDoc++
	doc.ID = api.DocumentID(strconv.Itoa(s.nextDoc))
	doc.UploadedAt = api.Timestamp{Time: s.now()}
	s.documents = append(s.documents, doc)
	return doc
}

// Documents returns every document, newest first.
func (s *Store) Documents() []api.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]api.Document, len(s.documents))
	for i, d := range s.documents {
		out[len(s.documents)-1-i] = d
	}
	return out
}

func (s *Store) DeleteDocument(id api.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.documents {
		if d.ID == id {
			s.documents = append(s.documents[:i], s.documents[i+1:]...)
			return nil
		}
	}
	return ErrDocumentNotFound
}

// AddTurn records one message of a session.
func (s *Store) AddTurn(sessionID, message string, isUser bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextChat++
	s.history = append(s.history, historyEntry{
		sessionID: sessionID,
		entry: api.HistoryEntry{
			ID:        api.DocumentID(strconv.Itoa(s.nextChat)),
			Message:   message,
			IsUser:    isUser,
			CreatedAt: api.Timestamp{Time: s.now()},
		},
	})
}

// History returns the turns of sessionID oldest first, or every turn when
// sessionID is empty.
func (s *Store) History(sessionID string) []api.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []api.HistoryEntry{}
	for _, h := range s.history {
		if sessionID == "" || h.sessionID == sessionID {
			out = append(out, h.entry)
		}
	}
	return out
}
