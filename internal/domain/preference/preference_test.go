package preference

import "testing"

func TestDefaultText_AllAttributes(t *testing.T) {
	a := Attributes{
		Title:          "Data Scientist",
		Industry:       "Healthcare",
		Skills:         []string{"python", " ", "sql"},
		WorkPreference: "remote",
	}
	want := "Looking for Data Scientist roles in the Healthcare industry using skills: python, sql with remote work arrangement"
	if got := a.DefaultText(); got != want {
		t.Errorf("DefaultText() =\n%q\nwant\n%q", got, want)
	}
}

func TestDefaultText_Partial(t *testing.T) {
	a := Attributes{Industry: "Fintech"}
	if got := a.DefaultText(); got != "in the Fintech industry" {
		t.Errorf("DefaultText() = %q", got)
	}
}

func TestDefaultText_EmptyFallsBackToPlaceholder(t *testing.T) {
	got := Attributes{}.DefaultText()
	want := Placeholder().DefaultText()
	if got != want || got == "" {
		t.Errorf("DefaultText() = %q, want %q", got, want)
	}
}

func TestProfileHasEmbedding(t *testing.T) {
	p := Profile{OwnerID: "u"}
	if p.HasEmbedding() {
		t.Error("empty profile must not report an embedding")
	}
	p.Embedding = []float32{0.1}
	if !p.HasEmbedding() {
		t.Error("expected embedding")
	}
}
