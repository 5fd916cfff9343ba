package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateURL_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ErrorKind
	}{
		{"empty", "", KindInvalidURL},
		{"whitespace only", "   ", KindInvalidURL},
		{"too short", "a.b", KindInvalidURL},
		{"file scheme", "file:///etc/passwd", KindInvalidURL},
		{"localhost", "http://localhost", KindInvalidURL},
		{"localhost with port", "localhost:3000/admin", KindInvalidURL},
		{"loopback", "http://127.0.0.1:8080", KindInvalidURL},
		{"facebook", "https://www.facebook.com/somepage", KindAccessDenied},
		{"amazon without scheme", "amazon.com/deals", KindAccessDenied},
		{"linkedin uppercase", "HTTPS://WWW.LINKEDIN.COM", KindAccessDenied},
		{"malformed host", "https://exa mple.com", KindInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateURL(tt.raw)
			if err == nil {
				t.Fatalf("ValidateURL(%q) succeeded, want %s", tt.raw, tt.want)
			}

			var classified *ClassifiedError
			if !errors.As(err, &classified) {
				t.Fatalf("error %v is not a ClassifiedError", err)
			}
			if classified.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", classified.Kind, tt.want)
			}
		})
	}
}

func TestValidateURL_Messages(t *testing.T) {
	_, err := ValidateURL("http://localhost")
	if err.Error() != "Localhost URLs cannot be analyzed. Please use a public website URL." {
		t.Errorf("localhost message = %q", err.Error())
	}

	_, err = ValidateURL("https://m.facebook.com")
	if err.Error() != "m.facebook.com typically blocks automated analysis. Try a different website." {
		t.Errorf("deny-list message = %q", err.Error())
	}
}

func TestValidateURL_Normalizes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"example.com", "https://example.com/"},
		{"  https://Example.com/about  ", "https://example.com/about"},
		{"http://shop.example.org/path?q=1", "http://shop.example.org/path?q=1"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ValidateURL(tt.raw)
			if err != nil {
				t.Fatalf("ValidateURL(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ValidateURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateURL_OnlyHTTPSchemesAreKept(t *testing.T) {
	// Anything that is not http(s) is treated as a bare host and gets https
	got, err := ValidateURL("ftp://files.example.org")
	if err != nil {
		t.Fatalf("ValidateURL() error = %v", err)
	}
	if !strings.HasPrefix(got, "https://ftp") {
		t.Errorf("ValidateURL() = %q, want https prefix added", got)
	}
}

func TestURLHash(t *testing.T) {
	// md5("https://example.com/")
	if got := URLHash("https://example.com/"); got != "182ccedb33a9e03fbf1079b209da1a31" {
		t.Errorf("URLHash() = %s", got)
	}
	if URLHash("https://a.example/") == URLHash("https://b.example/") {
		t.Error("distinct urls should hash differently")
	}
}
