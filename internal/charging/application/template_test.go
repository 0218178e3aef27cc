package application

import (
	"testing"

	charging "blastcharge/internal/charging/domain"
)

func TestTemplateFillIndex(t *testing.T) {
	if got := stemAndFill().FillIndex(); got != 1 {
		t.Fatalf("expected fill at position 1, got %d", got)
	}
	noFill := Template{
		Decks: []DeckEntry{
			{Idx: 1, Type: charging.DeckInert, Mode: ModeFixed, Length: 2, ProductRef: "Stemming"},
			{Idx: 2, Type: charging.DeckCoupled, Mode: ModeMass, MassKg: 50, ProductRef: "ANFO"},
		},
	}
	if got := noFill.FillIndex(); got != -1 {
		t.Fatalf("expected -1 without a fill entry, got %d", got)
	}
}
