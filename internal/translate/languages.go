package translate

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is a supported target language.
type Language struct {
	// Name is the display name, e.g. "Spanish".
	Name string `json:"name"`
	// Code is the provider language code, e.g. "es" or "zh-cn".
	Code string `json:"code"`
	// Tag is the BCP 47 tag for Code.
	Tag language.Tag `json:"-"`
}

// catalogue lists the supported languages in display order.
var catalogue = []Language{
	{Name: "English", Code: "en"},
	{Name: "Spanish", Code: "es"},
	{Name: "French", Code: "fr"},
	{Name: "German", Code: "de"},
	{Name: "Italian", Code: "it"},
	{Name: "Portuguese", Code: "pt"},
	{Name: "Polish", Code: "pl"},
	{Name: "Turkish", Code: "tr"},
	{Name: "Russian", Code: "ru"},
	{Name: "Dutch", Code: "nl"},
	{Name: "Czech", Code: "cs"},
	{Name: "Malayalam", Code: "ml"},
	{Name: "Hindi", Code: "hi"},
	{Name: "Arabic", Code: "ar"},
	{Name: "Chinese (Simplified)", Code: "zh-cn"},
}

func init() {
	for i := range catalogue {
		catalogue[i].Tag = language.MustParse(catalogue[i].Code)
	}
}

// Languages returns a copy of the catalogue in display order.
func Languages() []Language {
	out := make([]Language, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup finds a language by display name or code, ignoring case and
// surrounding whitespace.
func Lookup(nameOrCode string) (Language, error) {
	key := strings.TrimSpace(nameOrCode)
	for _, l := range catalogue {
		if strings.EqualFold(l.Name, key) || strings.EqualFold(l.Code, key) {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, nameOrCode)
}
