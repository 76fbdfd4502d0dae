package calendar

import "testing"

func classified(classes ...Classification) []Classified {
	out := make([]Classified, len(classes))
	for i, c := range classes {
		out[i] = Classified{Event: Event{SequenceIndex: i}, Class: c}
	}
	return out
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		priority Priority
		items    []Classified
		want     Verdict
		wantOK   bool
	}{
		{"No events", WorkOverRest, nil, 0, false},
		{"Only neither", UseLatest, classified(Neither, Neither), 0, false},

		{"WorkOverRest any work", WorkOverRest, classified(Rest, Work, Rest), Workday, true},
		{"WorkOverRest both counts as work", WorkOverRest, classified(Rest, Both), Workday, true},
		{"WorkOverRest all rest", WorkOverRest, classified(Rest, Neither, Rest), RestDay, true},

		{"RestOverWork any rest", RestOverWork, classified(Work, Rest), RestDay, true},
		{"RestOverWork both counts as rest", RestOverWork, classified(Work, Both), RestDay, true},
		{"RestOverWork all work", RestOverWork, classified(Work, Work), Workday, true},

		{"KeepCurrent first wins", KeepCurrent, classified(Rest, Work), RestDay, true},
		{"KeepCurrent skips neither", KeepCurrent, classified(Neither, Work, Rest), Workday, true},
		{"KeepCurrent both is work", KeepCurrent, classified(Both, Rest), Workday, true},

		{"UseLatest last wins", UseLatest, classified(Rest, Work), Workday, true},
		{"UseLatest skips trailing neither", UseLatest, classified(Work, Rest, Neither), RestDay, true},
		{"UseLatest both is work", UseLatest, classified(Rest, Both), Workday, true},

		{"Unset priority", Priority(0), classified(Rest, Work), 0, false},
		{"Unknown priority", Priority(99), classified(Work), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.priority, tt.items)

			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPriority_Valid(t *testing.T) {
	for _, p := range []Priority{WorkOverRest, RestOverWork, KeepCurrent, UseLatest} {
		if !p.Valid() {
			t.Errorf("%v.Valid() = false, want true", p)
		}
	}
	for _, p := range []Priority{0, 5, -1} {
		if p.Valid() {
			t.Errorf("%v.Valid() = true, want false", p)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input   string
		want    Priority
		wantErr bool
	}{
		{"WorkOverRest", WorkOverRest, false},
		{"restoverwork", RestOverWork, false},
		{"keep_current", KeepCurrent, false},
		{"use-latest", UseLatest, false},
		{"", 0, true},
		{"Latest", 0, true},
	}

	for _, tt := range tests {
		got, err := ParsePriority(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriority(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
