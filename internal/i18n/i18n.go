package i18n

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/text/language"
)

var ErrUnsupported = errors.New("language is not supported")

type Dictionary map[string]string

type Listener func(lang language.Tag)

// Registry holds the dictionaries and the active language of one widget. Consumers
// get it passed in and subscribe for changes.
type Registry struct {
	mu        sync.RWMutex
	dicts     map[language.Tag]Dictionary
	supported []language.Tag
	matcher   language.Matcher
	fallback  language.Tag
	lang      language.Tag

	listeners map[int]Listener
	nextID    int
}

// New returns a registry with the built-in dictionaries, starting in fallback.
func New(fallback string) (*Registry, error) {
	r := &Registry{
		dicts:     make(map[language.Tag]Dictionary),
		fallback:  language.English,
		lang:      language.English,
		listeners: make(map[int]Listener),
	}
	r.Register(language.English, English)
	r.Register(language.Ukrainian, Ukrainian)

	if fallback != "" {
		tag, err := r.match(fallback)
		if err != nil {
			return nil, err
		}
		r.fallback, r.lang = tag, tag
	}
	return r, nil
}

// Register adds or replaces the dictionary for tag.
func (r *Registry) Register(tag language.Tag, d Dictionary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dicts[tag]; !ok {
		r.supported = append(r.supported, tag)
		r.matcher = language.NewMatcher(r.supported)
	}
	r.dicts[tag] = d
}

// SetLang switches the active language and notifies listeners when it changed.
// Regional variants resolve to their base dictionary, e.g. "uk-UA" selects "uk".
func (r *Registry) SetLang(locale string) error {
	tag, err := r.match(locale)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if tag == r.lang {
		r.mu.Unlock()
		return nil
	}
	r.lang = tag
	listeners := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	for _, l := range listeners {
		l(tag)
	}
	return nil
}

func (r *Registry) Lang() language.Tag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lang
}

// T translates key in the active language, then in the fallback language, and
// returns key itself when neither has it.
func (r *Registry) T(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.lang, key)
}

// TIn translates key in a specific language without switching.
func (r *Registry) TIn(tag language.Tag, key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(tag, key)
}

func (r *Registry) lookup(tag language.Tag, key string) string {
	if v, ok := r.dicts[tag][key]; ok {
		return v
	}
	if v, ok := r.dicts[r.fallback][key]; ok {
		return v
	}
	return key
}

// Subscribe registers l and returns a function that removes it.
func (r *Registry) Subscribe(l Listener) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

func (r *Registry) match(locale string) (language.Tag, error) {
	want, err := language.Parse(locale)
	if err != nil {
		return language.Und, fmt.Errorf("parse %q: %w: %w", locale, ErrUnsupported, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, idx, conf := r.matcher.Match(want)
	if conf < language.High {
		return language.Und, fmt.Errorf("%q: %w", locale, ErrUnsupported)
	}
	return r.supported[idx], nil
}
