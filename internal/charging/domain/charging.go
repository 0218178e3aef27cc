package charging

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// GapWarnTolerance is the adjacent-deck gap (m) above which
	// validation warns. Templates may deliberately leave gaps, so a
	// gap is never an error.
	GapWarnTolerance = 0.001
	// EmbedTolerance is how far (m) embedded content may exceed its
	// deck's bounds before embedding is rejected.
	EmbedTolerance = 0.001
	// intervalEpsilon separates touching intervals during splitting.
	intervalEpsilon = 1e-9
)

// HoleCharging is the aggregate root owning one hole's charge column:
// its decks, primers and the cached geometry they were resolved
// against. One aggregate exists per (entityName, holeID).
//
// All interval arithmetic runs in axis space (depth multiplied by the
// hole's sign), so downholes and upholes share one code path; deck
// depths are stored in the hole's sign convention.
type HoleCharging struct {
	EntityName     string
	HoleID         string
	HoleDiameterMm float64
	HoleLength     float64
	Decks          []Deck
	Primers        []Primer
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewHoleCharging constructs an empty aggregate for a hole.
func NewHoleCharging(entityName, holeID string, holeDiameterMm, holeLength float64) *HoleCharging {
	now := time.Now().UTC()
	return &HoleCharging{
		EntityName:     entityName,
		HoleID:         holeID,
		HoleDiameterMm: holeDiameterMm,
		HoleLength:     holeLength,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewChargingID generates a storage identity for an aggregate.
func NewChargingID() string { return "charging-" + uuid.NewString() }

func (c *HoleCharging) sign() float64 {
	if c.HoleLength < 0 {
		return -1
	}
	return 1
}

// AxisLength returns the unsigned hole length.
func (c *HoleCharging) AxisLength() float64 { return math.Abs(c.HoleLength) }

func (c *HoleCharging) toAxis(depth float64) float64   { return depth * c.sign() }
func (c *HoleCharging) fromAxis(depth float64) float64 { return depth * c.sign() }

// SortDecks orders decks collar to toe.
func (c *HoleCharging) SortDecks() {
	s := c.sign()
	sort.SliceStable(c.Decks, func(i, j int) bool {
		return c.Decks[i].TopDepth*s < c.Decks[j].TopDepth*s
	})
}

// DeckByID returns a pointer into the deck slice, nil when unknown.
func (c *HoleCharging) DeckByID(deckID string) *Deck {
	for i := range c.Decks {
		if c.Decks[i].DeckID == deckID {
			return &c.Decks[i]
		}
	}
	return nil
}

// deckSpan returns the deck interval in axis space, lo <= hi.
func (c *HoleCharging) deckSpan(d Deck) (float64, float64) {
	lo := c.toAxis(d.TopDepth)
	hi := c.toAxis(d.BaseDepth)
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi
}

// InsertDeck places a deck, splitting any existing decks overlapping
// its span into up-to-two remainder decks that keep their product and
// scaling. O(n) over existing decks.
func (c *HoleCharging) InsertDeck(newDeck Deck) {
	if newDeck.DeckID == "" {
		newDeck.DeckID = NewDeckID()
	}
	if newDeck.HoleID == "" {
		newDeck.HoleID = c.HoleID
	}
	if newDeck.Scaling == "" {
		newDeck.Scaling = ScaleProportional
	}
	newLo := c.toAxis(newDeck.TopDepth)
	newHi := c.toAxis(newDeck.BaseDepth)
	if newHi < newLo {
		newLo, newHi = newHi, newLo
		newDeck.TopDepth, newDeck.BaseDepth = c.fromAxis(newLo), c.fromAxis(newHi)
	}

	kept := make([]Deck, 0, len(c.Decks)+2)
	for _, existing := range c.Decks {
		lo, hi := c.deckSpan(existing)
		if hi <= newLo+intervalEpsilon || lo >= newHi-intervalEpsilon {
			kept = append(kept, existing)
			continue
		}
		if lo < newLo-intervalEpsilon {
			kept = append(kept, c.remainderDeck(existing, lo, newLo))
		}
		if hi > newHi+intervalEpsilon {
			kept = append(kept, c.remainderDeck(existing, newHi, hi))
		}
	}
	kept = append(kept, newDeck)
	c.Decks = kept
	c.SortDecks()
	c.UpdatedAt = time.Now().UTC()
}

// remainderDeck cuts a copy of deck down to [lo, hi] (axis space),
// keeping embedded content that still fits.
func (c *HoleCharging) remainderDeck(deck Deck, lo, hi float64) Deck {
	remainder := deck.clone()
	remainder.DeckID = NewDeckID()
	remainder.TopDepth = c.fromAxis(lo)
	remainder.BaseDepth = c.fromAxis(hi)
	var kept []DecoupledContent
	for _, content := range remainder.Contains {
		start := c.toAxis(content.LengthFromCollar)
		if start >= lo-EmbedTolerance && start+content.Length <= hi+EmbedTolerance {
			kept = append(kept, content)
		}
	}
	remainder.Contains = kept
	return remainder
}

// FillInterval inserts a deck of the given type and product over
// [top, base] and returns it.
func (c *HoleCharging) FillInterval(top, base float64, deckType DeckType, product ProductSnapshot) Deck {
	deck := Deck{
		DeckID:    NewDeckID(),
		HoleID:    c.HoleID,
		Type:      deckType,
		TopDepth:  top,
		BaseDepth: base,
		Product:   product,
		Scaling:   ScaleProportional,
	}
	c.InsertDeck(deck)
	return deck
}

// FillToMass derives a deck length from a target mass at the current
// hole diameter and fills it from the deepest unallocated ("Air")
// interval, or from the toe when no air deck exists.
func (c *HoleCharging) FillToMass(massKg float64, deckType DeckType, product ProductSnapshot) (Deck, error) {
	if product.Density <= 0 {
		return Deck{}, ErrNonPositiveDensity
	}
	radius := c.HoleDiameterMm / 2000
	length := massKg / (product.Density * 1000 * math.Pi * radius * radius)

	base := c.AxisLength()
	top := base - length
	if air := c.deepestAirDeck(); air != nil {
		lo, hi := c.deckSpan(*air)
		base = hi
		top = math.Max(lo, hi-length)
	}
	if top < 0 {
		top = 0
	}
	deck := c.FillInterval(c.fromAxis(top), c.fromAxis(base), deckType, product)
	return deck, nil
}

func (c *HoleCharging) deepestAirDeck() *Deck {
	var deepest *Deck
	deepestHi := -1.0
	for i := range c.Decks {
		deck := &c.Decks[i]
		if deck.Type != DeckInert || deck.Product.Name != "Air" {
			continue
		}
		_, hi := c.deckSpan(*deck)
		if hi > deepestHi {
			deepest = deck
			deepestHi = hi
		}
	}
	return deepest
}

// InitializeDefaultDeck creates one INERT "Air" deck spanning the
// whole hole when no explicit decks exist.
func (c *HoleCharging) InitializeDefaultDeck(air ProductSnapshot) {
	if len(c.Decks) > 0 {
		return
	}
	if air.Name == "" {
		air.Name = "Air"
	}
	c.Decks = append(c.Decks, Deck{
		DeckID:    NewDeckID(),
		HoleID:    c.HoleID,
		Type:      DeckInert,
		TopDepth:  0,
		BaseDepth: c.HoleLength,
		Product:   air,
		Scaling:   ScaleProportional,
	})
	c.UpdatedAt = time.Now().UTC()
}

// EmbedContent places content inside a deck, rejecting spans that
// exceed the deck's bounds by more than EmbedTolerance.
func (c *HoleCharging) EmbedContent(deckID string, content DecoupledContent) error {
	deck := c.DeckByID(deckID)
	if deck == nil {
		return ErrDeckNotFound
	}
	if content.ContentID == "" {
		content.ContentID = NewContentID()
	}
	lo, hi := c.deckSpan(*deck)
	start := c.toAxis(content.LengthFromCollar)
	end := start + content.Length
	if start < lo-EmbedTolerance || end > hi+EmbedTolerance {
		return ErrContentOutOfBounds
	}
	deck.Contains = append(deck.Contains, content)
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// TotalExplosiveMass returns the column's explosive mass in kg,
// including primer boosters.
func (c *HoleCharging) TotalExplosiveMass() float64 {
	var total float64
	for _, deck := range c.Decks {
		total += deck.ExplosiveMass(c.HoleDiameterMm)
	}
	for _, primer := range c.Primers {
		total += primer.Booster.MassGrams / 1000
	}
	return total
}

// PowderFactor returns kg of explosive per cubic metre of rock for
// the given burden and spacing (m). Zero volume yields zero.
func (c *HoleCharging) PowderFactor(burden, spacing float64) float64 {
	volume := burden * spacing * c.AxisLength()
	if volume <= 0 {
		return 0
	}
	return c.TotalExplosiveMass() / volume
}

// AddPrimer attaches a primer and assigns its deck.
func (c *HoleCharging) AddPrimer(primer Primer) {
	if primer.PrimerID == "" {
		primer.PrimerID = NewPrimerID()
	}
	if primer.HoleID == "" {
		primer.HoleID = c.HoleID
	}
	primer.Validate(c.Decks, c.HoleLength)
	c.Primers = append(c.Primers, primer)
	c.UpdatedAt = time.Now().UTC()
}

// AssignPrimers re-resolves every primer's deck assignment.
func (c *HoleCharging) AssignPrimers() {
	for i := range c.Primers {
		c.Primers[i].Validate(c.Decks, c.HoleLength)
	}
}

// Validate performs structural checks: an empty column is an error,
// inverted decks are errors, adjacent gaps above GapWarnTolerance and
// unassigned primers are warnings.
func (c *HoleCharging) Validate() ValidationResult {
	var result ValidationResult
	if c == nil {
		result.AddError(ErrNilCharging.Error())
		return result
	}
	if len(c.Decks) == 0 {
		result.AddError("charging: no decks")
		return result
	}
	for _, deck := range c.Decks {
		lo, hi := c.toAxis(deck.TopDepth), c.toAxis(deck.BaseDepth)
		if lo > hi+intervalEpsilon {
			result.AddError(fmt.Sprintf("deck %s: top %.3f beyond base %.3f", deck.DeckID, deck.TopDepth, deck.BaseDepth))
		}
	}
	for i := 1; i < len(c.Decks); i++ {
		_, prevHi := c.deckSpan(c.Decks[i-1])
		lo, _ := c.deckSpan(c.Decks[i])
		if gap := lo - prevHi; gap > GapWarnTolerance {
			result.AddWarning(fmt.Sprintf("gap of %.3f m between deck %s and %s", gap, c.Decks[i-1].DeckID, c.Decks[i].DeckID))
		}
	}
	for i := range c.Primers {
		result.Merge(c.Primers[i].Validate(c.Decks, c.HoleLength))
	}
	return result
}

// Clone returns a detached deep copy.
func (c *HoleCharging) Clone() *HoleCharging {
	if c == nil {
		return nil
	}
	copy := *c
	copy.Decks = make([]Deck, len(c.Decks))
	for i, deck := range c.Decks {
		copy.Decks[i] = deck.clone()
	}
	copy.Primers = append([]Primer(nil), c.Primers...)
	return &copy
}
