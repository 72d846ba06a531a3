package verify

import "testing"

func intPtr(n int) *int { return &n }

func TestDecidePrecedence(t *testing.T) {
	cases := []struct {
		name   string
		cand   Candidate
		reason Reason
		passed bool
	}{
		{"empty", Candidate{}, ReasonNoTag, false},
		{"no tag with level", Candidate{Level: intPtr(264)}, ReasonNoTag, false},
		{"wrong tag", Candidate{Tag: "warrior", Level: intPtr(264)}, ReasonWrongTag, false},
		{"wrong tag missing level", Candidate{Tag: "warrior"}, ReasonWrongTag, false},
		{"right tag no level", Candidate{Tag: "kain"}, ReasonNoLevel, false},
		{"low level", Candidate{Tag: "kain", Level: intPtr(180)}, ReasonLowLevel, false},
		{"exactly threshold", Candidate{Tag: "kain", Level: intPtr(260)}, ReasonOK, true},
		{"above threshold", Candidate{Tag: "kain", Level: intPtr(264)}, ReasonOK, true},
	}
	for _, tc := range cases {
		v := Decide(tc.cand, "kain", 260)
		if v.Reason != tc.reason {
			t.Errorf("%s: expected reason %s got %s", tc.name, tc.reason, v.Reason)
		}
		if v.Passed != tc.passed {
			t.Errorf("%s: expected passed=%v got %v", tc.name, tc.passed, v.Passed)
		}
		if v.Message == "" {
			t.Errorf("%s: empty message", tc.name)
		}
	}
}

func TestDecideTagCaseInsensitive(t *testing.T) {
	v := Decide(Candidate{Tag: "Kain", Level: intPtr(264)}, "KAIN", 260)
	if !v.Passed || v.Reason != ReasonOK {
		t.Fatalf("expected pass got %+v", v)
	}
}
