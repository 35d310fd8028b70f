package logger

import "testing"

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"json info", Config{Level: "info", Format: "json"}, false},
		{"console debug", Config{Level: "debug", Format: "console"}, false},
		{"bad level", Config{Level: "verbose", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if log == nil {
				t.Fatal("expected logger, got nil")
			}
		})
	}
}

func TestNamedAndWith(t *testing.T) {
	log := NewNop()
	named := log.Named("segmentation")
	if named == nil {
		t.Fatal("Named returned nil")
	}
	with := named.With(String("chunk", "1"), Int("files", 5))
	if with == nil {
		t.Fatal("With returned nil")
	}
	with.Info("message", Int64("flight_id", 3))
}
