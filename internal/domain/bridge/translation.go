package bridge

// Translation is a localized name and description.
type Translation struct {
	Language    string
	Name        string
	Description string
}

// Translations is a set of translations keyed by language.
type Translations []Translation

// Get returns the translation for a language, or an empty one when absent
func (t Translations) Get(language string) Translation {
	for _, tr := range t {
		if tr.Language == language {
			return tr
		}
	}
	return Translation{Language: language}
}

// Set replaces or adds the translation for tr.Language
func (t Translations) Set(tr Translation) Translations {
	for i := range t {
		if t[i].Language == tr.Language {
			t[i] = tr
			return t
		}
	}
	return append(t, tr)
}

// Merge applies every translation of other on top of t
func (t Translations) Merge(other Translations) Translations {
	for _, tr := range other {
		t = t.Set(tr)
	}
	return t
}
