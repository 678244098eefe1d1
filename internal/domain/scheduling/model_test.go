package scheduling

import (
	"errors"
	"testing"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		label      string
		start, end int
	}{
		{"10:00AM-11:00AM", 600, 660},
		{"10.00AM-11.00AM", 600, 660},
		{"12:00PM-1:30PM", 720, 810},
		{"12:00AM-12:30AM", 0, 30},
		{"09:00-17:00", 540, 1020},
		{"10:00am-11:00am", 600, 660},
		{" 10:00AM - 11:00AM ", 600, 660},
	}
	for _, tt := range tests {
		w, err := ParseWindow(tt.label)
		if err != nil {
			t.Errorf("ParseWindow(%q): %v", tt.label, err)
			continue
		}
		if w.StartMinute != tt.start || w.EndMinute != tt.end {
			t.Errorf("ParseWindow(%q) = (%d, %d), want (%d, %d)",
				tt.label, w.StartMinute, w.EndMinute, tt.start, tt.end)
		}
	}
}

func TestParseWindowInvalid(t *testing.T) {
	for _, label := range []string{"", "10:00AM", "banana-orange", "11:00AM-10:00AM", "25:00-26:00"} {
		if _, err := ParseWindow(label); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseWindow(%q) err = %v, want ErrValidation", label, err)
		}
	}
}

func TestTimeWindowContains(t *testing.T) {
	w := TimeWindow{StartMinute: 600, EndMinute: 660}
	for minute, want := range map[int]bool{599: false, 600: true, 630: true, 660: true, 661: false} {
		if got := w.Contains(minute); got != want {
			t.Errorf("Contains(%d) = %v, want %v", minute, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	if d, err := ParseDate("2026-09-01"); err != nil || d != "2026-09-01" {
		t.Errorf("ParseDate = (%q, %v)", d, err)
	}
	for _, bad := range []string{"", "01-09-2026", "2026-13-01", "tomorrow"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseDate(%q) err = %v, want ErrValidation", bad, err)
		}
	}
}

func TestNewTicket(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ticket, err := NewTicket()
		if err != nil {
			t.Fatalf("NewTicket: %v", err)
		}
		if len(ticket) != 32 {
			t.Fatalf("ticket length = %d, want 32", len(ticket))
		}
		if seen[ticket] {
			t.Fatalf("duplicate ticket %q", ticket)
		}
		seen[ticket] = true
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[BookingStatus]bool{
		StatusBooked: false, StatusCheckedIn: false, StatusConsulted: false,
		StatusCompleted: true, StatusRejected: true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
