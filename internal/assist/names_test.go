package assist

import "testing"

func TestExtractPersonName(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"how is Brent Walker performing this month", "Brent Walker"},
		{"show me Sarah's deals", "Sarah"},
		{"What did Maria close in May", "Maria"},
		{"top opportunities in Salesforce", ""},
		{"Show Brent Walker's pipeline", "Brent Walker"},
		{"Show top reps", ""},
		{"Which reps closed deals in December", ""},
		{"pipeline for the legacy team", ""},
	}

	for _, tc := range cases {
		if got := ExtractPersonName(tc.query); got != tc.want {
			t.Errorf("ExtractPersonName(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestExtractTimeFloorDays(t *testing.T) {
	cases := []struct {
		query    string
		wantDays int
		wantOK   bool
	}{
		{"deals closed in the last 14 days", 14, true},
		{"meetings last week", 7, true},
		{"new leads this month", 30, true},
		{"what happened recently", 30, true},
		{"revenue this quarter", 90, true},
		{"wins this year", 365, true},
		{"top reps by revenue", 0, false},
		{"show all accounts", 0, false},
	}

	for _, tc := range cases {
		days, ok := ExtractTimeFloorDays(tc.query)
		if days != tc.wantDays || ok != tc.wantOK {
			t.Errorf("ExtractTimeFloorDays(%q) = (%d, %v), want (%d, %v)",
				tc.query, days, ok, tc.wantDays, tc.wantOK)
		}
	}
}
