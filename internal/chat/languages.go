package chat

import (
	"errors"
	"fmt"
)

// LanguageAuto asks the server to detect the source language
const LanguageAuto = "auto"

// Language is a selectable language
type Language struct {
	Code string
	Name string
}

// Catalogue lists the selectable languages. Auto is only valid as a source.
var Catalogue = []Language{
	{Code: LanguageAuto, Name: "Auto"},
	{Code: "en", Name: "English"},
	{Code: "zu", Name: "isiZulu"},
	{Code: "xh", Name: "isiXhosa"},
	{Code: "af", Name: "Afrikaans"},
	{Code: "st", Name: "Sesotho"},
	{Code: "tn", Name: "Setswana"},
	{Code: "ss", Name: "Siswati"},
	{Code: "nr", Name: "isiNdebele"},
	{Code: "ve", Name: "Tshivenda"},
	{Code: "ts", Name: "Xitsonga"},
}

// ErrUnknownLanguage is returned for codes outside the catalogue or auto used as a target
var ErrUnknownLanguage = errors.New("unknown language")

// LookupLanguage finds a catalogue entry. The empty code means auto.
func LookupLanguage(code string) (Language, bool) {
	if code == "" {
		code = LanguageAuto
	}
	for _, l := range Catalogue {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

func isAuto(code string) bool {
	return code == "" || code == LanguageAuto
}

// Pair is the selected source and target language
type Pair struct {
	Source string
	Target string
}

// DefaultPair is English to isiZulu
var DefaultPair = Pair{Source: "en", Target: "zu"}

// Swap exchanges source and target. An auto source cannot become a target, so the pair is kept.
func (p Pair) Swap() Pair {
	if isAuto(p.Source) {
		return p
	}
	return Pair{Source: p.Target, Target: p.Source}
}

func validateSource(code string) error {
	if _, ok := LookupLanguage(code); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	return nil
}

func validateTarget(code string) error {
	if isAuto(code) {
		return fmt.Errorf("%w: auto is not a target language", ErrUnknownLanguage)
	}
	return validateSource(code)
}

// sourceParam maps the auto source to an absent value on the wire
func sourceParam(code string) *string {
	if isAuto(code) {
		return nil
	}
	return &code
}
