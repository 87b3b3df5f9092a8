package pipeline

import "testing"

func TestExtractJSONPlain(t *testing.T) {
	raw, err := extractJSON(`{"verdict": "CORRECT"}`)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if raw != `{"verdict": "CORRECT"}` {
		t.Errorf("unexpected extraction: %q", raw)
	}
}

func TestExtractJSONFenced(t *testing.T) {
	input := "```json\n{\"verdict\": \"INCORRECT\", \"rationale\": \"not supported\"}\n```"
	raw, err := extractJSON(input)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}

	var v Verdict
	if err := decodeModelJSON(raw, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Verdict != "INCORRECT" {
		t.Errorf("expected INCORRECT, got %q", v.Verdict)
	}
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	input := "Sure! Here is the result:\n{\"verdict\": \"CORRECT\", \"rationale\": \"ok\"}\nHope this helps."
	var v Verdict
	if err := decodeModelJSON(input, &v); err != nil {
		t.Fatalf("decodeModelJSON: %v", err)
	}
	if v.Verdict != "CORRECT" {
		t.Errorf("expected CORRECT, got %q", v.Verdict)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := extractJSON("the answer is correct"); err == nil {
		t.Error("expected error for response without JSON")
	}
}

func TestDecodeModelJSONMalformed(t *testing.T) {
	var v Verdict
	if err := decodeModelJSON(`{"verdict": CORRECT}`, &v); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
