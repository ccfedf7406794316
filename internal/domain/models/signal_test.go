package models

import (
	"encoding/json"
	"testing"
)

func TestParseSignal(t *testing.T) {
	cases := map[string]Signal{
		"BUY":  SignalBuy,
		" buy": SignalBuy,
		"Sell": SignalSell,
		"HOLD": SignalNeutral,
		"":     SignalNeutral,
	}
	for in, want := range cases {
		if got := ParseSignal(in); got != want {
			t.Fatalf("ParseSignal(%q)=%s, want %s", in, got, want)
		}
	}
}

func TestSignalUnmarshalNormalizes(t *testing.T) {
	body := `{"votes":[
		{"model":"a","signal":"buy","confidence":70},
		{"model":"b","signal":"BUY","confidence":70},
		{"model":"c","signal":"HOLD","confidence":70}
	]}`
	var req ReplayRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Signal{SignalBuy, SignalBuy, SignalNeutral}
	for i, v := range req.Votes {
		if v.Signal != want[i] {
			t.Fatalf("vote %d signal=%q, want %s", i, v.Signal, want[i])
		}
	}

	if err := json.Unmarshal([]byte(`{"signal":7}`), &ClassifierVote{}); err == nil {
		t.Fatal("expected error for non-string signal")
	}
}

func TestVoteRecordNormalizesSignal(t *testing.T) {
	r := ClassifierVote{ModelID: "x", Signal: "sell", Confidence: 140}.Record()
	if r.Signal != SignalSell || !r.Signal.Valid() || r.Confidence != 100 {
		t.Fatalf("unexpected record %+v", r)
	}
	r = ClassifierVote{ModelID: "y", Signal: "HOLD"}.Record()
	if r.Signal != SignalNeutral {
		t.Fatalf("unknown signal kept as %q", r.Signal)
	}
}
