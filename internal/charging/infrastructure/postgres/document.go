package postgres

import (
	charging "blastcharge/internal/charging/domain"
)

// chargingDocument is the stored JSON shape of a charge column. Field
// names are stable storage contract; renaming a domain field must not
// change the document.
type chargingDocument struct {
	EntityName     string           `json:"entityName"`
	HoleID         string           `json:"holeId"`
	HoleDiameterMm float64          `json:"holeDiameterMm"`
	HoleLength     float64          `json:"holeLength"`
	Decks          []deckDocument   `json:"decks"`
	Primers        []primerDocument `json:"primers,omitempty"`
}

type deckDocument struct {
	DeckID           string            `json:"deckId"`
	HoleID           string            `json:"holeId"`
	Type             string            `json:"type"`
	TopDepth         float64           `json:"topDepth"`
	BaseDepth        float64           `json:"baseDepth"`
	Product          productDocument   `json:"product"`
	Scaling          string            `json:"scaling"`
	TopDepthFormula  string            `json:"topDepthFormula,omitempty"`
	BaseDepthFormula string            `json:"baseDepthFormula,omitempty"`
	OverlapPattern   string            `json:"overlapPattern,omitempty"`
	Contains         []contentDocument `json:"contains,omitempty"`
}

type productDocument struct {
	Name       string  `json:"name"`
	Density    float64 `json:"density"`
	ColorHex   string  `json:"colorHex,omitempty"`
	DiameterMm float64 `json:"diameterMm,omitempty"`
	LengthMm   float64 `json:"lengthMm,omitempty"`
	MassGrams  float64 `json:"massGrams,omitempty"`
}

type contentDocument struct {
	ContentID             string  `json:"contentId"`
	Type                  string  `json:"type"`
	LengthFromCollar      float64 `json:"lengthFromCollar"`
	Length                float64 `json:"length"`
	Diameter              float64 `json:"diameter,omitempty"`
	Density               float64 `json:"density,omitempty"`
	DeliveryVodMs         float64 `json:"deliveryVodMs,omitempty"`
	DelayMs               float64 `json:"delayMs,omitempty"`
	CoreLoadGramsPerMetre float64 `json:"coreLoadGramsPerMetre,omitempty"`
}

type primerDocument struct {
	PrimerID         string  `json:"primerId"`
	HoleID           string  `json:"holeId"`
	LengthFromCollar float64 `json:"lengthFromCollar"`
	DepthFormula     string  `json:"depthFormula,omitempty"`
	DetonatorRef     string  `json:"detonatorRef"`
	InitiatorType    string  `json:"initiatorType,omitempty"`
	DeliveryVodMs    float64 `json:"deliveryVodMs,omitempty"`
	DelayMs          float64 `json:"delayMs,omitempty"`
	BoosterRef       string  `json:"boosterRef,omitempty"`
	BoosterMassGrams float64 `json:"boosterMassGrams,omitempty"`
	AssignedDeckID   string  `json:"assignedDeckId,omitempty"`
}

func toDocument(column *charging.HoleCharging) chargingDocument {
	doc := chargingDocument{
		EntityName:     column.EntityName,
		HoleID:         column.HoleID,
		HoleDiameterMm: column.HoleDiameterMm,
		HoleLength:     column.HoleLength,
		Decks:          make([]deckDocument, 0, len(column.Decks)),
	}
	for _, deck := range column.Decks {
		deckDoc := deckDocument{
			DeckID:    deck.DeckID,
			HoleID:    deck.HoleID,
			Type:      string(deck.Type),
			TopDepth:  deck.TopDepth,
			BaseDepth: deck.BaseDepth,
			Product: productDocument{
				Name:       deck.Product.Name,
				Density:    deck.Product.Density,
				ColorHex:   deck.Product.ColorHex,
				DiameterMm: deck.Product.DiameterMm,
				LengthMm:   deck.Product.LengthMm,
				MassGrams:  deck.Product.MassGrams,
			},
			Scaling:          string(deck.Scaling),
			TopDepthFormula:  deck.TopDepthFormula,
			BaseDepthFormula: deck.BaseDepthFormula,
			OverlapPattern:   deck.OverlapPattern,
		}
		for _, content := range deck.Contains {
			deckDoc.Contains = append(deckDoc.Contains, contentDocument{
				ContentID:             content.ContentID,
				Type:                  string(content.Type),
				LengthFromCollar:      content.LengthFromCollar,
				Length:                content.Length,
				Diameter:              content.Diameter,
				Density:               content.Density,
				DeliveryVodMs:         content.DeliveryVodMs,
				DelayMs:               content.DelayMs,
				CoreLoadGramsPerMetre: content.CoreLoadGramsPerMetre,
			})
		}
		doc.Decks = append(doc.Decks, deckDoc)
	}
	for _, primer := range column.Primers {
		doc.Primers = append(doc.Primers, primerDocument{
			PrimerID:         primer.PrimerID,
			HoleID:           primer.HoleID,
			LengthFromCollar: primer.LengthFromCollar,
			DepthFormula:     primer.DepthFormula,
			DetonatorRef:     primer.Detonator.ProductRef,
			InitiatorType:    primer.Detonator.InitiatorType,
			DeliveryVodMs:    primer.Detonator.DeliveryVodMs,
			DelayMs:          primer.Detonator.DelayMs,
			BoosterRef:       primer.Booster.ProductRef,
			BoosterMassGrams: primer.Booster.MassGrams,
			AssignedDeckID:   primer.AssignedDeckID,
		})
	}
	return doc
}

func (d chargingDocument) toDomain() *charging.HoleCharging {
	column := &charging.HoleCharging{
		EntityName:     d.EntityName,
		HoleID:         d.HoleID,
		HoleDiameterMm: d.HoleDiameterMm,
		HoleLength:     d.HoleLength,
	}
	for _, deckDoc := range d.Decks {
		deck := charging.Deck{
			DeckID:    deckDoc.DeckID,
			HoleID:    deckDoc.HoleID,
			Type:      charging.DeckType(deckDoc.Type),
			TopDepth:  deckDoc.TopDepth,
			BaseDepth: deckDoc.BaseDepth,
			Product: charging.ProductSnapshot{
				Name:       deckDoc.Product.Name,
				Density:    deckDoc.Product.Density,
				ColorHex:   deckDoc.Product.ColorHex,
				DiameterMm: deckDoc.Product.DiameterMm,
				LengthMm:   deckDoc.Product.LengthMm,
				MassGrams:  deckDoc.Product.MassGrams,
			},
			Scaling:          charging.ScalingMode(deckDoc.Scaling),
			TopDepthFormula:  deckDoc.TopDepthFormula,
			BaseDepthFormula: deckDoc.BaseDepthFormula,
			OverlapPattern:   deckDoc.OverlapPattern,
		}
		for _, contentDoc := range deckDoc.Contains {
			deck.Contains = append(deck.Contains, charging.DecoupledContent{
				ContentID:             contentDoc.ContentID,
				Type:                  charging.ContentType(contentDoc.Type),
				LengthFromCollar:      contentDoc.LengthFromCollar,
				Length:                contentDoc.Length,
				Diameter:              contentDoc.Diameter,
				Density:               contentDoc.Density,
				DeliveryVodMs:         contentDoc.DeliveryVodMs,
				DelayMs:               contentDoc.DelayMs,
				CoreLoadGramsPerMetre: contentDoc.CoreLoadGramsPerMetre,
			})
		}
		column.Decks = append(column.Decks, deck)
	}
	for _, primerDoc := range d.Primers {
		column.Primers = append(column.Primers, charging.Primer{
			PrimerID:         primerDoc.PrimerID,
			HoleID:           primerDoc.HoleID,
			LengthFromCollar: primerDoc.LengthFromCollar,
			DepthFormula:     primerDoc.DepthFormula,
			Detonator: charging.Detonator{
				ProductRef:    primerDoc.DetonatorRef,
				InitiatorType: primerDoc.InitiatorType,
				DeliveryVodMs: primerDoc.DeliveryVodMs,
				DelayMs:       primerDoc.DelayMs,
			},
			Booster: charging.Booster{
				ProductRef: primerDoc.BoosterRef,
				MassGrams:  primerDoc.BoosterMassGrams,
			},
			AssignedDeckID: primerDoc.AssignedDeckID,
		})
	}
	return column
}
