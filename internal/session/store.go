package session

import (
	"math"
	"sync"
	"time"

	"logo-mockup-studio/internal/catalog"
)

const (
	DefaultCreativity = 0.4
	CreativityStep    = 0.1
)

const (
	MenuMain     = "main"
	MenuCategory = "category"
	MenuStyle    = "style"
)

// State is one user's wizard in one chat.
type State struct {
	StyleID          string
	Category         string
	RemoveBackground bool
	NegativePrompt   string
	Creativity       float64

	LogoFileID string
	MessageID  int

	AwaitingPhoto    bool
	AwaitingNegative bool
	Menu             string

	UpdatedAt time.Time
}

// GeneratedResult is one finished render kept for /history.
type GeneratedResult struct {
	StyleID   string
	MimeType  string
	Timestamp time.Time
}

type Options struct {
	MaxHistory int
}

type Store struct {
	mu         sync.Mutex
	states     map[stateKey]*State
	history    map[int64][]GeneratedResult
	maxHistory int
}

type stateKey struct {
	ChatID int64
	UserID int64
}

func NewStore(opts Options) *Store {
	maxHistory := opts.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 10
	}

	return &Store{
		states:     make(map[stateKey]*State),
		history:    make(map[int64][]GeneratedResult),
		maxHistory: maxHistory,
	}
}

func (s *Store) Get(chatID, userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.getOrCreateLocked(chatID, userID)
}

// Update applies fn under the lock and returns the resulting copy.
func (s *Store) Update(chatID, userID int64, fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(st)
	}
	st.normalize()
	st.UpdatedAt = time.Now()
	return *st
}

// Reset restores defaults but keeps the saved logo and wizard message.
func (s *Store) Reset(chatID, userID int64) State {
	return s.Update(chatID, userID, func(st *State) {
		logo, msgID := st.LogoFileID, st.MessageID
		*st = DefaultState()
		st.LogoFileID = logo
		st.MessageID = msgID
	})
}

func (s *Store) AppendResult(userID int64, res GeneratedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.Timestamp.IsZero() {
		res.Timestamp = time.Now()
	}
	h := append(s.history[userID], res)
	if len(h) > s.maxHistory {
		h = append([]GeneratedResult(nil), h[len(h)-s.maxHistory:]...)
	}
	s.history[userID] = h
}

// History returns results newest first.
func (s *Store) History(userID int64) []GeneratedResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.history[userID]
	out := make([]GeneratedResult, len(h))
	for i := range h {
		out[len(h)-1-i] = h[i]
	}
	return out
}

func (s *Store) getOrCreateLocked(chatID, userID int64) *State {
	key := stateKey{ChatID: chatID, UserID: userID}
	if st, ok := s.states[key]; ok {
		return st
	}
	st := DefaultState()
	s.states[key] = &st
	return s.states[key]
}

func DefaultState() State {
	return State{
		StyleID:          catalog.Default().ID,
		Category:         catalog.AllCategory,
		RemoveBackground: true,
		Creativity:       DefaultCreativity,
		Menu:             MenuMain,
		UpdatedAt:        time.Now(),
	}
}

// StepCreativity moves creativity by delta steps, clamped to [0,1] and
// rounded to one decimal.
func (st *State) StepCreativity(delta int) {
	st.Creativity = float64(roundTenths(st.Creativity)+delta) / 10
}

func (st *State) normalize() {
	if _, ok := catalog.Lookup(st.StyleID); !ok {
		st.StyleID = catalog.Default().ID
	}
	if st.Category == "" {
		st.Category = catalog.AllCategory
	}
	switch {
	case math.IsNaN(st.Creativity):
		st.Creativity = DefaultCreativity
	case st.Creativity < 0:
		st.Creativity = 0
	case st.Creativity > 1:
		st.Creativity = 1
	}
	switch st.Menu {
	case MenuMain, MenuCategory, MenuStyle:
	default:
		st.Menu = MenuMain
	}
}

func roundTenths(v float64) int {
	if v < 0 {
		return int(v*10 - 0.5)
	}
	return int(v*10 + 0.5)
}
