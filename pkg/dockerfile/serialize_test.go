package dockerfile

import (
	"encoding/json"
	"testing"
)

const serializeFixture = `
FROM golang:1.22 AS build
ARG VERSION
ENV APP_HOME=/app
LABEL team=platform
RUN go build -o /bin/app

FROM gcr.io/distroless/static
COPY --from=build /bin/app /app
EXPOSE 8080
`

func TestToMapFieldOrder(t *testing.T) {
	a := mustAnalyze(t, serializeFixture)

	want := []string{
		"num_stages", "images", "stage_names", "copy_from_stages",
		"add_from_stages", "multistage_analysis", "exposed_ports",
		"instructions", "args", "labels", "env_vars",
	}

	m := a.ToMap()
	if m.Len() != len(want) {
		t.Fatalf("got %d keys, want %d", m.Len(), len(want))
	}
	i := 0
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key != want[i] {
			t.Errorf("key %d: got %q, want %q", i, pair.Key, want[i])
		}
		i++
	}
}

func TestToMapMatchesJSONEncoding(t *testing.T) {
	a := mustAnalyze(t, serializeFixture)

	direct, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal analysis: %v", err)
	}
	viaMap, err := json.Marshal(a.ToMap())
	if err != nil {
		t.Fatalf("marshal map: %v", err)
	}
	if string(direct) != string(viaMap) {
		t.Errorf("encodings differ:\n%s\n%s", direct, viaMap)
	}
}

func TestAnalysisJSONRoundTrip(t *testing.T) {
	a := mustAnalyze(t, serializeFixture)

	first, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Analysis
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second, err := json.Marshal(&decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("round trip changed the encoding:\n%s\n%s", first, second)
	}
}

func TestJSONFieldNames(t *testing.T) {
	a := mustAnalyze(t, serializeFixture)

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{
		"num_stages", "images", "stage_names", "copy_from_stages",
		"add_from_stages", "multistage_analysis", "exposed_ports",
		"instructions", "args", "labels", "env_vars",
	} {
		if _, ok := generic[field]; !ok {
			t.Errorf("missing field %q in %s", field, data)
		}
	}

	var multistage map[string]json.RawMessage
	if err := json.Unmarshal(generic["multistage_analysis"], &multistage); err != nil {
		t.Fatalf("unmarshal multistage_analysis: %v", err)
	}
	for _, field := range []string{
		"is_multistage", "stages_used_as_base_images", "stages_copied_from",
		"stages_added_from", "unused_stages",
	} {
		if _, ok := multistage[field]; !ok {
			t.Errorf("missing multistage field %q", field)
		}
	}
}
