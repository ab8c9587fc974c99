package language

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Lang
	}{
		{"empty", "", English},
		{"whitespace only", " \n\t  ", English},
		{"plain english", "Once upon a time in a land far away", English},
		{"plain arabic", "كان يامكان في قديم الزمان", Arabic},
		{"digits and punctuation", "1234 !!! ...", English},
		{"mostly english with one arabic word", "The merchant said كلمة and left for the market in the morning", English},
		{"arabic outnumbers latin", "قال التاجر hi", Arabic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

// Forty percent Arabic runes must classify as Arabic even when Latin runes
// are the majority (ratio > 0.3 rule).
func TestDetectRatioThreshold(t *testing.T) {
	// 4 Arabic runes, 6 Latin runes, no spaces inside counting.
	text := "ابجد abcdef"
	if got := Detect(text); got != Arabic {
		t.Fatalf("Detect(%q) = %q, want %q", text, got, Arabic)
	}
}
