package language

import "strings"

// Undetermined is the ISO 639-2 code for content whose language is unknown.
const Undetermined = "und"

type locale struct {
	iso2    string
	iso3    []string
	name    string
	ogTag   string
	aliases []string
}

// locales lists the languages pages are published in. Detected languages
// outside the table keep the detector's ISO 639-3 code.
var locales = []locale{
	{"en", []string{"eng"}, "English", "en_US", []string{"english"}},
	{"es", []string{"spa"}, "Spanish", "es_ES", []string{"spanish", "espanol"}},
	{"fr", []string{"fra", "fre"}, "French", "fr_FR", []string{"french", "francais"}},
	{"de", []string{"deu", "ger"}, "German", "de_DE", []string{"german", "deutsch"}},
	{"it", []string{"ita"}, "Italian", "it_IT", []string{"italian"}},
	{"pt", []string{"por"}, "Portuguese", "pt_BR", []string{"portuguese"}},
	{"nl", []string{"nld", "dut"}, "Dutch", "nl_NL", []string{"dutch"}},
	{"pl", []string{"pol"}, "Polish", "pl_PL", []string{"polish"}},
	{"sv", []string{"swe"}, "Swedish", "sv_SE", []string{"swedish"}},
	{"ru", []string{"rus"}, "Russian", "ru_RU", []string{"russian"}},
	{"uk", []string{"ukr"}, "Ukrainian", "uk_UA", []string{"ukrainian"}},
	{"tr", []string{"tur"}, "Turkish", "tr_TR", []string{"turkish"}},
	{"ja", []string{"jpn"}, "Japanese", "ja_JP", []string{"japanese"}},
	{"ko", []string{"kor"}, "Korean", "ko_KR", []string{"korean"}},
	{"zh", []string{"cmn", "zho", "chi"}, "Chinese", "zh_CN", []string{"chinese", "mandarin"}},
	{"hi", []string{"hin"}, "Hindi", "hi_IN", []string{"hindi"}},
	{"ar", []string{"arb", "ara"}, "Arabic", "ar_AR", []string{"arabic"}},
	{"id", []string{"ind"}, "Indonesian", "id_ID", []string{"indonesian"}},
}

var index = buildIndex()

func buildIndex() map[string]*locale {
	idx := make(map[string]*locale, len(locales)*4)
	for i := range locales {
		l := &locales[i]
		idx[l.iso2] = l
		for _, code := range l.iso3 {
			idx[code] = l
		}
		for _, alias := range l.aliases {
			idx[alias] = l
		}
	}
	return idx
}

func find(code string) (*locale, string) {
	key := strings.ToLower(strings.TrimSpace(code))
	return index[key], key
}

// ToISO2 maps a language code or English name to its two-letter code. Unknown
// two-letter codes pass through; anything else yields "".
func ToISO2(code string) string {
	l, key := find(code)
	switch {
	case l != nil:
		return l.iso2
	case len(key) == 2:
		return key
	default:
		return ""
	}
}

// DisplayName is the English name for a code. Unknown codes are echoed in
// upper case and empty input reads "Unknown".
func DisplayName(code string) string {
	l, key := find(code)
	switch {
	case key == "" || key == Undetermined:
		return "Unknown"
	case l != nil:
		return l.name
	default:
		return strings.ToUpper(key)
	}
}

// OpenGraphLocale returns the og:locale value for a code, or "" when the
// language has no published locale.
func OpenGraphLocale(code string) string {
	if l, _ := find(code); l != nil {
		return l.ogTag
	}
	return ""
}
