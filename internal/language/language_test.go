package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := map[string]string{
		"en":       "en",
		"EN":       "en",
		"eng":      "en",
		"fre":      "fr",
		"fra":      "fr",
		"ger":      "de",
		"cmn":      "zh",
		"arb":      "ar",
		"Deutsch":  "de",
		"mandarin": "zh",
		"xy":       "xy",
		"xyz":      "",
		" ":        "",
	}
	for input, want := range tests {
		if got := ToISO2(input); got != want {
			t.Errorf("ToISO2(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"en":   "English",
		"spa":  "Spanish",
		"ukr":  "Ukrainian",
		"zh":   "Chinese",
		"":     "Unknown",
		"und":  "Unknown",
		"tgl":  "TGL",
		" de ": "German",
	}
	for input, want := range tests {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestOpenGraphLocale(t *testing.T) {
	if got := OpenGraphLocale("pt"); got != "pt_BR" {
		t.Fatalf("OpenGraphLocale(pt) = %q", got)
	}
	if got := OpenGraphLocale("eng"); got != "en_US" {
		t.Fatalf("OpenGraphLocale(eng) = %q", got)
	}
	if got := OpenGraphLocale("und"); got != "" {
		t.Fatalf("expected no locale for und, got %q", got)
	}
}

func TestDetect(t *testing.T) {
	english := "The quick brown fox jumps over the lazy dog while the developers ship a new release of the compiler toolchain with better diagnostics and faster builds."
	if got := Detect(english); got.Code != "en" {
		t.Fatalf("expected en, got %+v", got)
	}
	german := "Die Bundesregierung hat heute neue Regeln für den Einsatz von künstlicher Intelligenz in der öffentlichen Verwaltung vorgestellt und will sie noch in diesem Jahr umsetzen."
	if got := Detect(german); got.Code != "de" {
		t.Fatalf("expected de, got %+v", got)
	}
	if got := Detect("   "); got.Code != "" {
		t.Fatalf("expected empty detection, got %+v", got)
	}
}
