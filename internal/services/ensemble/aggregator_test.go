package ensemble

import (
	"encoding/json"
	"testing"

	"SignalFusion/internal/domain/models"
)

func TestNewVote(t *testing.T) {
	v := NewVote("xgboost", 1, []float64{0.3, 0.7})
	if v.Signal != models.SignalBuy || v.Confidence != 70 {
		t.Fatalf("got %s %.2f", v.Signal, v.Confidence)
	}
	v = NewVote("random_forest", 0, nil)
	if v.Signal != models.SignalSell || v.Confidence != 60 {
		t.Fatalf("got %s %.2f", v.Signal, v.Confidence)
	}
}

func TestAggregateMajority(t *testing.T) {
	res := Aggregate([]models.ClassifierVote{
		{ModelID: "a", Signal: models.SignalBuy, Confidence: 70},
		{ModelID: "b", Signal: models.SignalBuy, Confidence: 60},
		{ModelID: "c", Signal: models.SignalSell, Confidence: 80},
	})
	// avg 70 + 2/3*15
	if res.Signal != models.SignalBuy || res.Confidence != 80 {
		t.Fatalf("got %s %.2f", res.Signal, res.Confidence)
	}
	if len(res.Records) != 3 || res.Records[0].Kind != models.KindModel {
		t.Fatalf("unexpected records %+v", res.Records)
	}
}

func TestAggregateTieIsNeutral(t *testing.T) {
	res := Aggregate([]models.ClassifierVote{
		{ModelID: "a", Signal: models.SignalBuy, Confidence: 90},
		{ModelID: "b", Signal: models.SignalSell, Confidence: 70},
	})
	if res.Signal != models.SignalNeutral || res.Confidence != 60 {
		t.Fatalf("got %s %.2f", res.Signal, res.Confidence)
	}
}

func TestAggregateNeutralFloor(t *testing.T) {
	res := Aggregate([]models.ClassifierVote{
		{ModelID: "a", Signal: models.SignalBuy, Confidence: 30},
		{ModelID: "b", Signal: models.SignalSell, Confidence: 30},
	})
	if res.Confidence != 20 {
		t.Fatalf("confidence=%.2f want 20", res.Confidence)
	}
}

func TestAggregateEmpty(t *testing.T) {
	res := Aggregate(nil)
	if res.Signal != models.SignalNeutral || res.Confidence != 0 || res.Total != 0 {
		t.Fatalf("got %+v", res)
	}
}

func TestAggregateClampsConfidence(t *testing.T) {
	res := Aggregate([]models.ClassifierVote{
		{ModelID: "a", Signal: models.SignalSell, Confidence: 150},
	})
	if res.Signal != models.SignalSell || res.Confidence != 100 {
		t.Fatalf("got %s %.2f", res.Signal, res.Confidence)
	}
}

func TestAggregateDecodedVotes(t *testing.T) {
	var req models.ReplayRequest
	body := `{"votes":[{"model":"a","signal":"buy","confidence":70},{"model":"b","signal":"buy","confidence":70},{"model":"c","signal":"HOLD","confidence":70}]}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	res := Aggregate(req.Votes)
	// avg 70 + 2/3*15
	if res.Signal != models.SignalBuy || res.Confidence != 80 || res.BuyCount != 2 || res.NeutralCount != 1 {
		t.Fatalf("got %s %.2f buy=%d neutral=%d", res.Signal, res.Confidence, res.BuyCount, res.NeutralCount)
	}
	for _, r := range res.Records {
		if !r.Signal.Valid() {
			t.Fatalf("record %s has signal %q", r.Name, r.Signal)
		}
	}

	// Signals set directly in Go are normalized too.
	res = Aggregate([]models.ClassifierVote{{ModelID: "a", Signal: "sell", Confidence: 50}})
	if res.Signal != models.SignalSell || res.Records[0].Signal != models.SignalSell {
		t.Fatalf("got %s / %s", res.Signal, res.Records[0].Signal)
	}
}
