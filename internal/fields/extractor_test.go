package fields

import (
	"regexp"
	"testing"
)

func value(m Matches, f Field) string {
	if v := m.Value(f); v != nil {
		return *v
	}
	return "<nil>"
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[Field]string
	}{
		{
			name: "labeled form",
			text: "Patient Name: John Doe\nDOB: 01/02/1990\nAddress: 123 Main St, Springfield, IL 62701\nPhone: (555) 123-4567\n",
			want: map[Field]string{
				FirstName:   "John",
				LastName:    "Doe",
				DateOfBirth: "01/02/1990",
				Address:     "123 Main St, Springfield, IL 62701",
				Phone:       "(555) 123-4567",
			},
		},
		{
			name: "collapsed single line",
			text: "First Name: John Last Name: Doe DOB: 01/02/1990",
			want: map[Field]string{
				FirstName:   "John",
				LastName:    "Doe",
				DateOfBirth: "01/02/1990",
				Address:     "<nil>",
				Phone:       "<nil>",
			},
		},
		{
			name: "last comma first",
			text: "Name: Doe, John",
			want: map[Field]string{FirstName: "John", LastName: "Doe"},
		},
		{
			name: "last name label alone leaves first name empty",
			text: "Last Name: Garcia Lopez\nDOB: 01/02/1990",
			want: map[Field]string{FirstName: "<nil>", LastName: "Garcia", DateOfBirth: "01/02/1990"},
		},
		{
			name: "first name label alone leaves last name empty",
			text: "First Name: Mary Ann\nDOB: 01/02/1990",
			want: map[Field]string{FirstName: "Mary", LastName: "<nil>"},
		},
		{
			name: "surname label with comma leaves first name empty",
			text: "Surname: Doe, John",
			want: map[Field]string{FirstName: "<nil>", LastName: "Doe"},
		},
		{
			name: "lowercase labels",
			text: "patient name: mary jones\ndate of birth: 1985-07-09",
			want: map[Field]string{FirstName: "mary", LastName: "jones", DateOfBirth: "1985-07-09"},
		},
		{
			name: "textual month",
			text: "DOB: March 5, 1990",
			want: map[Field]string{DateOfBirth: "March 5, 1990"},
		},
		{
			name: "heuristics only",
			text: "John Smith\n742 Evergreen Terrace, Springfield\n1990-05-17\nCall 555.867.5309 today",
			want: map[Field]string{
				FirstName:   "John",
				LastName:    "Smith",
				DateOfBirth: "1990-05-17",
				Address:     "742 Evergreen Terrace, Springfield",
				Phone:       "555.867.5309",
			},
		},
		{
			name: "labeled beats earlier heuristic",
			text: "Jane Roe\nLast Name: Smith\nFirst Name: Alice",
			want: map[Field]string{FirstName: "Alice", LastName: "Smith"},
		},
		{
			name: "labeled date beats earlier bare date",
			text: "Visit date: 03/04/2021\nDate of Birth: 1985-07-09",
			want: map[Field]string{DateOfBirth: "1985-07-09"},
		},
		{
			name: "earliest bare date",
			text: "Seen 03/04/2021 born 1985-07-09",
			want: map[Field]string{DateOfBirth: "03/04/2021"},
		},
		{
			name: "address stops before phone",
			text: "Address: 42 Elm Road Phone: 555-123-4567",
			want: map[Field]string{Address: "42 Elm Road", Phone: "555-123-4567"},
		},
		{
			name: "stop words skipped by name heuristic",
			text: "Medical Center\nJohn Smith",
			want: map[Field]string{FirstName: "John", LastName: "Smith"},
		},
		{
			name: "name heuristic is case sensitive",
			text: "JOHN SMITH\njohn smith",
			want: map[Field]string{FirstName: "<nil>", LastName: "<nil>"},
		},
		{
			name: "nothing found",
			text: "nothing here",
			want: map[Field]string{
				FirstName:   "<nil>",
				LastName:    "<nil>",
				DateOfBirth: "<nil>",
				Address:     "<nil>",
				Phone:       "<nil>",
			},
		},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			for f, want := range tt.want {
				if v := value(got, f); v != want {
					t.Errorf("%s = %q, want %q", f, v, want)
				}
			}
		})
	}
}

func TestExtractEmpty(t *testing.T) {
	got := NewExtractor().Extract("")
	if len(got) != 0 {
		t.Errorf("Extract(\"\") found %d fields, want 0", len(got))
	}
	for _, f := range All {
		if got.Value(f) != nil {
			t.Errorf("%s should be nil", f)
		}
	}
}

func TestExtractMatchDetails(t *testing.T) {
	got := NewExtractor().Extract("John Smith\nDOB: 1990-05-17")

	first := got[FirstName]
	if first.Strategy != "capitalized-pair" || first.Kind != Heuristic {
		t.Errorf("first name via %s/%s, want capitalized-pair/heuristic", first.Strategy, first.Kind)
	}
	if first.Offset != 0 {
		t.Errorf("first name offset = %d, want 0", first.Offset)
	}

	dob := got[DateOfBirth]
	if dob.Strategy != "dob-label" || dob.Kind != Labeled {
		t.Errorf("dob via %s/%s, want dob-label/labeled", dob.Strategy, dob.Kind)
	}
}

func TestNewExtractorWithOrdersLabeledFirst(t *testing.T) {
	word := regexp.MustCompile(`(\w+)`)
	e := NewExtractorWith(map[Field][]Strategy{
		FirstName: {
			{Name: "h1", Kind: Heuristic, Pattern: word, Group: 1},
			{Name: "l1", Kind: Labeled, Pattern: word, Group: 1},
			{Name: "h2", Kind: Heuristic, Pattern: word, Group: 1},
			{Name: "l2", Kind: Labeled, Pattern: word, Group: 1},
		},
	})

	var names []string
	for _, s := range e.Strategies(FirstName) {
		names = append(names, s.Name)
	}
	want := []string{"l1", "l2", "h1", "h2"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}

	m, ok := e.ExtractField("word", FirstName)
	if !ok || m.Strategy != "l1" {
		t.Errorf("ExtractField used %q, want l1", m.Strategy)
	}
}

func TestDefaultStrategiesLabeledBeforeHeuristic(t *testing.T) {
	e := NewExtractor()
	for _, f := range All {
		seenHeuristic := false
		for _, s := range e.Strategies(f) {
			if s.Kind == Heuristic {
				seenHeuristic = true
			} else if seenHeuristic {
				t.Errorf("%s: labeled strategy %s after a heuristic one", f, s.Name)
			}
		}
	}
}

func TestPrepare(t *testing.T) {
	got := Prepare("a\r\nb \t  c\u00a0d\rlast")
	want := "a\nb c d\nlast"
	if got != want {
		t.Errorf("Prepare = %q, want %q", got, want)
	}
}

func TestStrategyGuardAndValid(t *testing.T) {
	s := Strategy{
		Name:    "digits",
		Pattern: regexp.MustCompile(`(\d+)`),
		Group:   1,
		Valid:   func(v string) bool { return len(v) >= 3 },
	}
	v, off, ok := s.Find("a 12 b 3456")
	if !ok || v != "3456" || off != 7 {
		t.Errorf("Find = %q,%d,%v want 3456,7,true", v, off, ok)
	}

	s.Guard = func([]string) bool { return false }
	if _, _, ok := s.Find("3456"); ok {
		t.Error("guard should reject every match")
	}
}
