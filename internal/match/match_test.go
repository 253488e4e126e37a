package match

import "testing"

func TestPolicy_Resolve(t *testing.T) {
	candidates := []string{
		"Chat/IMG-20230512-WA0001.jpg",
		"Chat/IMG-20230512-WA0001.jpg.bak",
		"Chat/PTT-20230512-WA0003.ogg",
		"Chat/STK-20230512-WA0004.webp",
		"Chat/Jane Doe.vcf",
	}

	tests := []struct {
		name      string
		reference string
		wantName  string
		wantRule  string
		wantFound bool
	}{
		{"exact base name with extra suffix", "img-20230512-wa0001.jpg.bak", "Chat/IMG-20230512-WA0001.jpg.bak", "exact", true},
		{"exact base name ignoring case", "IMG-20230512-WA0001.JPG", "Chat/IMG-20230512-WA0001.jpg", "exact", true},
		{"containment", "wa0004", "Chat/STK-20230512-WA0004.webp", "contains", true},
		{"relaxed opus stem", "PTT-20230512-WA0003.opus", "Chat/PTT-20230512-WA0003.ogg", "relaxed-extension", true},
		{"relaxed rule strips marker", "PTT-20230512-WA0003.opus (file attached)", "Chat/PTT-20230512-WA0003.ogg", "relaxed-extension", true},
		{"no match", "VID-20230512-WA0009.mp4", "", "", false},
		{"empty reference never matches", "   ", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := DefaultPolicy.Resolve(tt.reference, candidates)
			if found != tt.wantFound {
				t.Fatalf("Resolve() found = %v, want %v", found, tt.wantFound)
			}
			if got.Name != tt.wantName || got.Rule != tt.wantRule {
				t.Errorf("Resolve() = %+v, want {%s %s}", got, tt.wantName, tt.wantRule)
			}
		})
	}
}

func TestPolicy_DuplicateBaseNamesPickFirst(t *testing.T) {
	candidates := []string{"a/IMG-0001.jpg", "b/IMG-0001.jpg"}
	got, found := DefaultPolicy.Resolve("IMG-0001.jpg", candidates)
	if !found || got.Name != "a/IMG-0001.jpg" {
		t.Fatalf("Resolve() = %+v, %v; want first candidate", got, found)
	}
}

func TestPolicy_UnicodeNormalization(t *testing.T) {
	candidates := []string{"Caf\u00e9.jpg"}
	got, found := DefaultPolicy.Resolve("Cafe\u0301.jpg", candidates)
	if !found || got.Rule != "exact" {
		t.Fatalf("Resolve() = %+v, %v; want exact match", got, found)
	}
}

func TestPolicy_FirstCandidateInArchiveOrderWins(t *testing.T) {
	candidates := []string{"x/IMG-0001.jpg.bak", "x/IMG-0001.jpg"}
	got, found := DefaultPolicy.Resolve("IMG-0001.jpg", candidates)
	if !found || got.Name != "x/IMG-0001.jpg.bak" || got.Rule != "contains" {
		t.Fatalf("Resolve() = %+v, %v; want the earlier entry by containment", got, found)
	}

	reordered := []string{"x/IMG-0001.jpg", "x/IMG-0001.jpg.bak"}
	got, found = DefaultPolicy.Resolve("IMG-0001.jpg", reordered)
	if !found || got.Name != "x/IMG-0001.jpg" || got.Rule != "exact" {
		t.Fatalf("Resolve() = %+v, %v; want the exact entry", got, found)
	}
}

func TestPolicy_RuleOrderNamesTheMatch(t *testing.T) {
	candidates := []string{"IMG-0001.jpg"}
	got, _ := Policy{ContainsRule{}, ExactRule{}}.Resolve("IMG-0001.jpg", candidates)
	if got.Rule != "contains" {
		t.Fatalf("Resolve() rule = %q, want contains", got.Rule)
	}
	got, _ = DefaultPolicy.Resolve("IMG-0001.jpg", candidates)
	if got.Rule != "exact" {
		t.Fatalf("Resolve() rule = %q, want exact", got.Rule)
	}
}

func TestPolicy_ResolveAll(t *testing.T) {
	resolved := DefaultPolicy.ResolveAll(
		[]string{"IMG-1.jpg", "missing.pdf"},
		[]string{"IMG-1.jpg", "other.pdf"},
	)
	if len(resolved) != 1 || resolved["IMG-1.jpg"] != "IMG-1.jpg" {
		t.Fatalf("ResolveAll() = %v", resolved)
	}
}
