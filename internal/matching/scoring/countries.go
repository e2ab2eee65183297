package scoring

import "strings"

// hostCountry describes the language situation of a study destination.
type hostCountry struct {
	languages     []string // ISO 639-1
	englishTaught bool     // English-taught programmes are common
}

var hostCountries = map[string]hostCountry{
	"US": {[]string{"en"}, true},
	"GB": {[]string{"en"}, true},
	"IE": {[]string{"en"}, true},
	"CA": {[]string{"en", "fr"}, true},
	"AU": {[]string{"en"}, true},
	"NZ": {[]string{"en"}, true},
	"DE": {[]string{"de"}, true},
	"AT": {[]string{"de"}, true},
	"CH": {[]string{"de", "fr", "it"}, true},
	"FR": {[]string{"fr"}, true},
	"BE": {[]string{"nl", "fr"}, true},
	"NL": {[]string{"nl"}, true},
	"SE": {[]string{"sv"}, true},
	"NO": {[]string{"no"}, true},
	"DK": {[]string{"da"}, true},
	"FI": {[]string{"fi", "sv"}, true},
	"IT": {[]string{"it"}, true},
	"ES": {[]string{"es"}, false},
	"PT": {[]string{"pt"}, false},
	"HU": {[]string{"hu"}, true},
	"PL": {[]string{"pl"}, true},
	"CZ": {[]string{"cs"}, true},
	"TR": {[]string{"tr"}, true},
	"RU": {[]string{"ru"}, false},
	"CN": {[]string{"zh"}, true},
	"JP": {[]string{"ja"}, true},
	"KR": {[]string{"ko"}, true},
	"MY": {[]string{"ms"}, true},
	"SG": {[]string{"en", "zh", "ms"}, true},
	"IN": {[]string{"en", "hi"}, true},
	"SA": {[]string{"ar"}, true},
	"AE": {[]string{"ar"}, true},
	"QA": {[]string{"ar"}, true},
	"EG": {[]string{"ar"}, false},
	"JO": {[]string{"ar"}, false},
	"MA": {[]string{"ar", "fr"}, false},
	"TN": {[]string{"ar", "fr"}, false},
	"BR": {[]string{"pt"}, false},
	"MX": {[]string{"es"}, false},
}

var languageNames = map[string]string{
	"english": "en", "arabic": "ar", "french": "fr", "german": "de", "spanish": "es",
	"italian": "it", "portuguese": "pt", "dutch": "nl", "swedish": "sv", "norwegian": "no",
	"danish": "da", "finnish": "fi", "hungarian": "hu", "polish": "pl", "czech": "cs",
	"turkish": "tr", "russian": "ru", "chinese": "zh", "mandarin": "zh", "japanese": "ja",
	"korean": "ko", "malay": "ms", "hindi": "hi",
}

// normalizeLanguage accepts either an ISO 639-1 code ("en", "en-GB") or an
// English language name ("English").
func normalizeLanguage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if code, ok := languageNames[s]; ok {
		return code
	}
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	return s
}
