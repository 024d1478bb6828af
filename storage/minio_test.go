package storage

import (
	"testing"
)

func TestMinio_ImplementsBackend(t *testing.T) {
	var _ Backend = (*Minio)(nil)
}

func TestMinio_BuildKey(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		expect string
	}{
		{"", "styles.css", "styles.css"},
		{"", "/styles.css", "styles.css"},
		{"static", "styles.css", "static/styles.css"},
		{"static/", "/styles.css", "static/styles.css"},
		{"site/static", "img/logo.png", "site/static/img/logo.png"},
		{"static", "", "static"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix+"+"+tt.path, func(t *testing.T) {
			b := &Minio{prefix: tt.prefix}
			actual := b.buildKey(tt.path)
			if actual != tt.expect {
				t.Errorf("buildKey(%q, %q) = %q; want %q", tt.prefix, tt.path, actual, tt.expect)
			}
		})
	}
}
