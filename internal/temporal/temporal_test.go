package temporal

import (
	"testing"
	"time"
)

var ref = time.Date(2024, 3, 12, 15, 4, 0, 0, Dhaka)

func TestResolve_Absolute(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"iso date", "2024-03-12", time.Date(2024, 3, 12, 0, 0, 0, 0, Dhaka)},
		{"day first", "12/03/2024", time.Date(2024, 3, 12, 0, 0, 0, 0, Dhaka)},
		{"bangla digits", "১২/০৩/২০২৪", time.Date(2024, 3, 12, 0, 0, 0, 0, Dhaka)},
		{"rfc1123z converted", "Tue, 12 Mar 2024 20:30:00 +0000", time.Date(2024, 3, 13, 2, 30, 0, 0, Dhaka)},
		{"utc iso converted", "2024-03-12T10:00:00Z", time.Date(2024, 3, 12, 16, 0, 0, 0, Dhaka)},
		{"fragment in text", "প্রকাশ: 2024-03-09 সকাল", time.Date(2024, 3, 9, 0, 0, 0, 0, Dhaka)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.input, ref)
			if !ok {
				t.Fatalf("Resolve(%q) returned no date", tt.input)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Location() != Dhaka {
				t.Errorf("expected Dhaka location, got %v", got.Location())
			}
		})
	}
}

func TestResolve_Relative(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"yesterday english", "yesterday", ref.AddDate(0, 0, -1)},
		{"yesterday bangla", "গতকাল রাজধানীতে", ref.AddDate(0, 0, -1)},
		{"today english", "TODAY", ref},
		{"today bangla", "যশোরে আজ সকালে", ref},
		{"last night bangla suffix", "গত রাতে", time.Date(2024, 3, 11, 22, 0, 0, 0, Dhaka)},
		{"last night joined", "গতরাত", time.Date(2024, 3, 11, 22, 0, 0, 0, Dhaka)},
		{"first pattern wins", "আজ নয়, গতকাল", ref.AddDate(0, 0, -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.input, ref)
			if !ok {
				t.Fatalf("Resolve(%q) returned no date", tt.input)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolve_ReferenceConvertedToDhaka(t *testing.T) {
	utcRef := time.Date(2024, 3, 11, 20, 0, 0, 0, time.UTC)
	got, ok := Resolve("আজ", utcRef)
	if !ok {
		t.Fatal("expected a date")
	}
	if got.Location() != Dhaka {
		t.Errorf("expected Dhaka location, got %v", got.Location())
	}
	if y, m, d := got.Date(); y != 2024 || m != 3 || d != 12 {
		t.Errorf("expected 2024-03-12 in Dhaka, got %v", got)
	}
}

func TestResolve_Absent(t *testing.T) {
	for _, in := range []string{"", "   ", "কোনো তারিখ নেই", "আজকের খবর"} {
		if got, ok := Resolve(in, ref); ok {
			t.Errorf("Resolve(%q) = %v, expected no date", in, got)
		}
	}
}

func TestResolveNow(t *testing.T) {
	got, ok := ResolveNow("today")
	if !ok {
		t.Fatal("expected a date")
	}
	if time.Since(got) > time.Minute {
		t.Errorf("expected roughly now, got %v", got)
	}
}

func TestDay(t *testing.T) {
	in := time.Date(2024, 3, 11, 20, 0, 0, 0, time.UTC)
	got := Day(in)
	want := time.Date(2024, 3, 12, 0, 0, 0, 0, Dhaka)
	if !got.Equal(want) {
		t.Errorf("Day(%v) = %v, want %v", in, got, want)
	}
}
