package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"type":"eventStream.subscribe","id":42,"sourceName":"homeTimeline"}`))
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}

	if req.Type != ActionSubscribe {
		t.Errorf("Type = %q, want %q", req.Type, ActionSubscribe)
	}
	if req.SourceName != "homeTimeline" {
		t.Errorf("SourceName = %q, want homeTimeline", req.SourceName)
	}
	if !req.ID.Valid() {
		t.Error("numeric id should be valid")
	}
	if req.ID.String() != "42" {
		t.Errorf("ID = %s, want 42", req.ID)
	}
	if req.HasCandy() {
		t.Error("HasCandy() = true without candy field")
	}
}

func TestParseRequest_StringID(t *testing.T) {
	req, err := ParseRequest([]byte(`{"type":"eventStream.unsubscribe","id":"req-1","sourceName":"homeTimeline"}`))
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if !req.ID.Valid() || req.ID.String() != "req-1" {
		t.Errorf("ID = %s, valid = %t", req.ID, req.ID.Valid())
	}
}

func TestParseRequest_CandyFlag(t *testing.T) {
	for _, raw := range []string{`true`, `1`, `{}`, `"yes"`} {
		req, err := ParseRequest([]byte(`{"type":"eventStream.subscribe","id":1,"sourceName":"homeTimeline","candy":` + raw + `}`))
		if err != nil {
			t.Fatalf("ParseRequest(candy=%s) error = %v", raw, err)
		}
		if !req.HasCandy() {
			t.Errorf("HasCandy() = false for candy=%s", raw)
		}
	}

	req, err := ParseRequest([]byte(`{"type":"eventStream.subscribe","id":1,"sourceName":"homeTimeline","candy":null}`))
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if req.HasCandy() {
		t.Error("HasCandy() = true for candy=null")
	}
}

func TestParseRequest_Malformed(t *testing.T) {
	if _, err := ParseRequest([]byte(`{not json`)); err == nil {
		t.Error("ParseRequest() accepted malformed JSON")
	}
	if _, err := ParseRequest([]byte(`{"id":1}`)); err == nil {
		t.Error("ParseRequest() accepted request without type")
	}
}

func TestID_WrongType(t *testing.T) {
	req, err := ParseRequest([]byte(`{"type":"eventStream.subscribe","id":{"nested":true},"sourceName":"homeTimeline"}`))
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if req.ID.Valid() {
		t.Error("object id should be invalid")
	}
}

func TestID_RoundTrip(t *testing.T) {
	ack := Ack{ID: NumberID(7), Success: true, Message: "subscribed home timeline"}
	data, err := json.Marshal(ack)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":7,"success":true,"message":"subscribed home timeline"}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	str, _ := json.Marshal(Ack{ID: StringID("a"), Success: true, Message: "m"})
	if string(str) != `{"id":"a","success":true,"message":"m"}` {
		t.Errorf("Marshal() = %s", str)
	}
}
