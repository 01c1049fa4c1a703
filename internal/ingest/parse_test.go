package ingest

import "testing"

func TestParseLineMessageString(t *testing.T) {
	role, content, ok := parseLine([]byte(`{"type":"message","role":"user","content":"hi there"}`))
	if !ok || role != "user" || content != "hi there" {
		t.Fatalf("got role=%q content=%q ok=%v", role, content, ok)
	}
}

func TestParseLineMessageArrayParts(t *testing.T) {
	line := `{"type":"message","role":"assistant","content":[
		{"type":"text","text":"looking it up"},
		{"type":"tool_use","name":"search","input":{"q":"foo"}},
		{"type":"tool_result","content":"result text"},
		"plain string part"
	]}`
	role, content, ok := parseLine([]byte(line))
	if !ok || role != "assistant" {
		t.Fatalf("got role=%q ok=%v", role, ok)
	}
	want := "looking it up\n[Tool: search({\"q\":\"foo\"})]\n[ToolResult: result text]\nplain string part"
	if content != want {
		t.Fatalf("content = %q, want %q", content, want)
	}
}

func TestParseLineEmptyContentSkipped(t *testing.T) {
	_, _, ok := parseLine([]byte(`{"type":"message","role":"user","content":""}`))
	if ok {
		t.Fatal("expected empty content to be skipped")
	}
}

func TestParseLineHuman(t *testing.T) {
	role, content, ok := parseLine([]byte(`{"type":"human","message":"hello"}`))
	if !ok || role != "user" || content != "hello" {
		t.Fatalf("got role=%q content=%q ok=%v", role, content, ok)
	}
}

func TestParseLineAssistantContentField(t *testing.T) {
	role, content, ok := parseLine([]byte(`{"type":"assistant","content":"reply text"}`))
	if !ok || role != "assistant" || content != "reply text" {
		t.Fatalf("got role=%q content=%q ok=%v", role, content, ok)
	}
}

func TestParseLineToolResult(t *testing.T) {
	role, content, ok := parseLine([]byte(`{"type":"tool_result","content":"output"}`))
	if !ok || role != "tool" || content != "output" {
		t.Fatalf("got role=%q content=%q ok=%v", role, content, ok)
	}
}

func TestParseLineToolResultTruncated(t *testing.T) {
	long := make([]byte, 0, 1100)
	for i := 0; i < 1100; i++ {
		long = append(long, 'x')
	}
	line := `{"type":"tool_result","content":"` + string(long) + `"}`
	_, content, ok := parseLine([]byte(line))
	if !ok || len(content) != 1000 {
		t.Fatalf("len(content) = %d, want 1000", len(content))
	}
}

func TestParseLineUnknownTypeSkipped(t *testing.T) {
	_, _, ok := parseLine([]byte(`{"type":"unknown_thing","foo":"bar"}`))
	if ok {
		t.Fatal("expected unknown type to be skipped")
	}
}

func TestParseLineMalformedJSONSkipped(t *testing.T) {
	_, _, ok := parseLine([]byte(`not json at all`))
	if ok {
		t.Fatal("expected malformed JSON to be skipped")
	}
}
