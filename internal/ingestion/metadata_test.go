package ingestion

import "testing"

func TestInferMetadata_URLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		location string
		label    string
		docType  string
	}{
		{"https://docs.example.com/guides/getting-started", "docs.example.com/guides", "html"},
		{"https://docs.example.com/", "docs.example.com", "html"},
		{"http://wiki.internal/runbooks/oncall.md", "wiki.internal/runbooks", "markdown"},
		{"https://status.example.com/incidents/2026-01.txt", "status.example.com/incidents", "text"},
		{"https://EXAMPLE.com/Docs/Page", "example.com/docs", "html"},
	}

	for _, tc := range tests {
		t.Run(tc.location, func(t *testing.T) {
			t.Parallel()
			got := InferMetadata(tc.location)
			if got.Kind != "url" {
				t.Errorf("Kind = %q, want %q", got.Kind, "url")
			}
			if got.Label != tc.label {
				t.Errorf("Label = %q, want %q", got.Label, tc.label)
			}
			if got.DocType != tc.docType {
				t.Errorf("DocType = %q, want %q", got.DocType, tc.docType)
			}
		})
	}
}

func TestInferMetadata_Files(t *testing.T) {
	t.Parallel()

	tests := []struct {
		location string
		label    string
		docType  string
	}{
		{"/var/log/relay/messages.log", "messages", "log"},
		{"notes.md", "notes", "markdown"},
		{"./docs/handbook.txt", "handbook", "text"},
		{"config.yaml", "config", "text"},
		{"/data/dump.bin", "dump", "text"}, // unknown extension defaults to text
	}

	for _, tc := range tests {
		t.Run(tc.location, func(t *testing.T) {
			t.Parallel()
			got := InferMetadata(tc.location)
			if got.Kind != "file" {
				t.Errorf("Kind = %q, want %q", got.Kind, "file")
			}
			if got.Label != tc.label {
				t.Errorf("Label = %q, want %q", got.Label, tc.label)
			}
			if got.DocType != tc.docType {
				t.Errorf("DocType = %q, want %q", got.DocType, tc.docType)
			}
		})
	}
}
