package knol

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	expected := "what is htmx?\na library for ajax.\nweb development"
	normalized := Normalize("  What is HTMX? \r\n", "A library for AJAX.", "Web Development")

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestFingerprint(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		content := map[string]string{"q": "Q", "a": "A", "c": "C"}
		// Hash for "q\na\nc"
		expectedHash := "eb2456c1ee4f36305069dd0f63a30e92d5443129f5e8fd9a5ec490fbc4d4d8a2"
		hash := Fingerprint(content, []string{"q", "a", "c"})

		if hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		a := map[string]string{"front": "  what is go? ", "back": "A programming language."}
		b := map[string]string{"front": "What Is Go?", "back": "A programming language."}
		fields := []string{"front", "back"}
		if Fingerprint(a, fields) != Fingerprint(b, fields) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("unwatched fields are ignored", func(t *testing.T) {
		a := map[string]string{"emoji": "🍎", "text": "apple"}
		b := map[string]string{"emoji": "🍎", "text": "pomme"}
		if Fingerprint(a, []string{"emoji"}) != Fingerprint(b, []string{"emoji"}) {
			t.Error("Expected hashes over the emoji field only to match")
		}
		if Fingerprint(a, []string{"emoji", "text"}) == Fingerprint(b, []string{"emoji", "text"}) {
			t.Error("Expected hashes over both fields to differ")
		}
	})
}

func TestNumericID(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		if NumericID("zh_CN") != NumericID("zh_CN") {
			t.Error("Expected the same id to map to the same number")
		}
	})

	t.Run("is positive", func(t *testing.T) {
		for _, id := range []string{"", "a", "deck", "a very long deck identifier that goes on"} {
			if n := NumericID(id); n <= 0 {
				t.Errorf("Expected a positive id for %q, got %d", id, n)
			}
		}
	})

	t.Run("shared prefixes do not collide", func(t *testing.T) {
		// Concatenating character codes and keeping ten digits maps both of
		// these to the same number.
		if NumericID("deck-spanish") == NumericID("deck-french") {
			t.Error("Expected ids with a shared prefix to map to different numbers")
		}
	})
}
