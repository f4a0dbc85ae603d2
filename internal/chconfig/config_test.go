package chconfig

import "testing"

func TestParse(t *testing.T) {
	raw := []byte(`
addr: http://localhost:8123
database: default
user: default
compression: lz4
batch:
  batch_size: 50000
  max_parallel: 8
server_settings:
  max_execution_time: "60"
`)
	s, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Addr != "http://localhost:8123" {
		t.Fatalf("Addr = %q", s.Addr)
	}
	if s.Compression != "lz4" {
		t.Fatalf("Compression = %q", s.Compression)
	}
	if s.Batch.BatchSize != 50000 || s.Batch.MaxParallel != 8 {
		t.Fatalf("Batch = %+v", s.Batch)
	}
	if s.ServerSettings["max_execution_time"] != "60" {
		t.Fatalf("ServerSettings = %v", s.ServerSettings)
	}
}

func TestFingerprintStableAcrossEqualSettings(t *testing.T) {
	a := &Settings{Addr: "http://a", Database: "d"}
	b := &Settings{Addr: "http://a", Database: "d"}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("expected equal settings to fingerprint the same")
	}
}

func TestFingerprintChangesOnDrift(t *testing.T) {
	a := &Settings{Addr: "http://a", Database: "d"}
	b := &Settings{Addr: "http://a", Database: "d2"}
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("expected differing settings to fingerprint differently")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/chconfig.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
