package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// detectWords bounds the text passed to the detector.
const detectWords = 200

// Detection is the outcome of language detection.
type Detection struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
	Reliable   bool    `json:"reliable"`
}

// Detect identifies the dominant language of text. Empty text yields a zero
// Detection. Languages outside the code table keep their ISO 639-3 code.
func Detect(text string) Detection {
	words := strings.Fields(text)
	if len(words) == 0 {
		return Detection{}
	}
	if len(words) > detectWords {
		words = words[:detectWords]
	}
	info := whatlanggo.Detect(strings.Join(words, " "))
	code3 := info.Lang.Iso6393()
	if code3 == "" {
		return Detection{}
	}
	code := ToISO2(code3)
	if code == "" {
		code = code3
	}
	return Detection{Code: code, Confidence: info.Confidence, Reliable: info.IsReliable()}
}
