package gcsuploader

import "testing"

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://bkt/backups/2024/ledger.json", wantBucket: "bkt", wantObject: "backups/2024/ledger.json"},
		{uri: "gs://bkt/file.json", wantBucket: "bkt", wantObject: "file.json"},
		{uri: "gs://bkt", wantErr: true},
		{uri: "gs://bkt/", wantErr: true},
		{uri: "s3://bkt/file.json", wantErr: true},
	}
	for _, tt := range tests {
		bucket, object, err := ParseGCSURI(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGCSURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if bucket != tt.wantBucket || object != tt.wantObject {
			t.Errorf("ParseGCSURI(%q) = %q, %q", tt.uri, bucket, object)
		}
	}
}

func TestBuildGCSURI(t *testing.T) {
	if got := BuildGCSURI("bkt", "/a/b.json"); got != "gs://bkt/a/b.json" {
		t.Errorf("BuildGCSURI = %q", got)
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	if got := ExtractFilenameFromGCSURI("gs://bkt/backups/ledger.json"); got != "ledger.json" {
		t.Errorf("got %q", got)
	}
	if got := ExtractFilenameFromGCSURI("gs://bkt"); got != "bkt" {
		t.Errorf("got %q", got)
	}
}

func TestContentTypeFor(t *testing.T) {
	if got := contentTypeFor("x.json"); got != "application/json" {
		t.Errorf("got %q", got)
	}
	if got := contentTypeFor("x.bin"); got != "application/octet-stream" {
		t.Errorf("got %q", got)
	}
}
