package utils

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{-1, "0 B"},
		{0, "0 B"},
		{512, "512 B"},
		{KB, "1.00 KB"},
		{1536, "1.50 KB"},
		{5 * MB, "5.00 MB"},
		{3 * GB, "3.00 GB"},
		{2 * TB, "2.00 TB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.input); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"512B", 512, false},
		{"64KB", 64 * KB, false},
		{"64k", 64 * KB, false},
		{"1.5MB", 1536 * KB, false},
		{"2 GB", 2 * GB, false},
		{"1TB", TB, false},
		{"100", 0, true},
		{"MB", 0, true},
		{"10PB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
