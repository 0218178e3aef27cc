package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	catalog "blastcharge/internal/catalog/domain"
	catalogmemory "blastcharge/internal/catalog/infrastructure/memory"
	chargingapp "blastcharge/internal/charging/application"
	charging "blastcharge/internal/charging/domain"
	chargingmemory "blastcharge/internal/charging/infrastructure/memory"
	drillhole "blastcharge/internal/drillhole/domain"
	drillholememory "blastcharge/internal/drillhole/infrastructure/memory"
	"blastcharge/internal/formula"
)

type handlerFixture struct {
	handler *ChargingHandler
	service *chargingapp.ChargingService
	holes   *drillholememory.HoleRepository
}

func newHandlerFixture(t *testing.T) handlerFixture {
	t.Helper()
	productCatalog, err := catalog.NewCatalog(catalogmemory.NewSeededProductRepository())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	engine, err := chargingapp.NewTemplateEngine(productCatalog, formula.NewEvaluator(productCatalog))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	holes := drillholememory.NewHoleRepository()
	service, err := chargingapp.NewChargingService(engine, chargingmemory.NewChargingStore(), holes, nil)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	library := chargingapp.NewTemplateLibrary()
	if err := library.Put(chargingapp.Template{
		Name: "production",
		Decks: []chargingapp.DeckEntry{
			{Idx: 1, Type: charging.DeckInert, Mode: chargingapp.ModeFixed, Length: 4, ProductRef: "Stemming"},
			{Idx: 2, Type: charging.DeckCoupled, Mode: chargingapp.ModeFill, ProductRef: "ANFO"},
		},
		Primers: []chargingapp.PrimerEntry{
			{Idx: 1, DepthFormula: "fx: chargeBase - 1", DetonatorRef: "MS Detonator", BoosterRef: "Booster 400g", DelayMs: 500},
		},
	}); err != nil {
		t.Fatalf("library: %v", err)
	}
	handler, err := NewChargingHandler(service, library, nil, nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return handlerFixture{handler: handler, service: service, holes: holes}
}

func (f handlerFixture) saveHole(t *testing.T, hole *drillhole.BlastHole) {
	t.Helper()
	if err := f.holes.Save(context.Background(), hole); err != nil {
		t.Fatalf("save hole: %v", err)
	}
}

func (f handlerFixture) do(method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestChargingHandlerApplyFlow(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.saveHole(t, &drillhole.BlastHole{
		HoleID: "H001", EntityName: "bench-1", HoleDiameterMm: 200, HoleLength: 12,
		Burden: 3, Spacing: 3.5,
	})

	body := []byte(`{"entity_name":"bench-1","hole_id":"H001","template":"production"}`)
	rec := fixture.do(http.MethodPost, "/api/v1/chargings/apply", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply status %d: %s", rec.Code, rec.Body.String())
	}
	var applied struct {
		Charging struct {
			EntityName      string  `json:"entity_name"`
			ExplosiveMassKg float64 `json:"explosive_mass_kg"`
			Decks           []struct {
				Type   string  `json:"type"`
				Length float64 `json:"length"`
			} `json:"decks"`
			Primers []struct {
				LengthFromCollar float64 `json:"length_from_collar"`
			} `json:"primers"`
		} `json:"charging"`
		Validation struct {
			Errors []string `json:"errors"`
		} `json:"validation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &applied); err != nil {
		t.Fatalf("decode apply response: %v", err)
	}
	if len(applied.Charging.Decks) != 2 || applied.Charging.ExplosiveMassKg <= 0 {
		t.Fatalf("apply response wrong: %+v", applied.Charging)
	}
	if len(applied.Charging.Primers) != 1 || applied.Charging.Primers[0].LengthFromCollar != 11 {
		t.Fatalf("primer wrong: %+v", applied.Charging.Primers)
	}
	if len(applied.Validation.Errors) != 0 {
		t.Fatalf("unexpected validation errors: %v", applied.Validation.Errors)
	}

	rec = fixture.do(http.MethodGet, "/api/v1/chargings/bench-1/H001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}

	rec = fixture.do(http.MethodGet, "/api/v1/chargings?entity_name=bench-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var listed []json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil || len(listed) != 1 {
		t.Fatalf("list response wrong: %v %s", err, rec.Body.String())
	}

	rec = fixture.do(http.MethodGet, "/api/v1/chargings/bench-1/H001/powder-factor", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("powder factor status %d", rec.Code)
	}
	var report struct {
		PowderFactor float64 `json:"powder_factor"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil || report.PowderFactor <= 0 {
		t.Fatalf("powder factor wrong: %v %s", err, rec.Body.String())
	}

	rec = fixture.do(http.MethodDelete, "/api/v1/chargings/bench-1/H001", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status %d", rec.Code)
	}
	rec = fixture.do(http.MethodGet, "/api/v1/chargings/bench-1/H001", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cleared column should 404, got %d", rec.Code)
	}
}

func TestChargingHandlerRescale(t *testing.T) {
	fixture := newHandlerFixture(t)
	hole := &drillhole.BlastHole{HoleID: "H001", EntityName: "bench-1", HoleDiameterMm: 200, HoleLength: 12}
	fixture.saveHole(t, hole)

	body := []byte(`{"entity_name":"bench-1","hole_id":"H001","template":"production"}`)
	if rec := fixture.do(http.MethodPost, "/api/v1/chargings/apply", body); rec.Code != http.StatusOK {
		t.Fatalf("apply status %d", rec.Code)
	}

	rec := fixture.do(http.MethodPost, "/api/v1/chargings/bench-1/H001/rescale", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rescale status %d", rec.Code)
	}
	var result struct {
		Changed bool `json:"changed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil || result.Changed {
		t.Fatalf("unchanged geometry should report changed=false: %v %s", err, rec.Body.String())
	}

	hole.HoleLength = 15
	fixture.saveHole(t, hole)
	rec = fixture.do(http.MethodPost, "/api/v1/chargings/bench-1/H001/rescale", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rescale status %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil || !result.Changed {
		t.Fatalf("length edit should report changed=true: %v %s", err, rec.Body.String())
	}
}

func TestChargingHandlerErrors(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.saveHole(t, &drillhole.BlastHole{HoleID: "H001", EntityName: "bench-1", HoleDiameterMm: 200, HoleLength: 12})

	rec := fixture.do(http.MethodPost, "/api/v1/chargings/apply", []byte(`{"entity_name":"bench-1","hole_id":"H001","template":"missing"}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown template should 404, got %d", rec.Code)
	}

	rec = fixture.do(http.MethodPost, "/api/v1/chargings/apply", []byte(`{"entity_name":"bench-1"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields should 400, got %d", rec.Code)
	}

	rec = fixture.do(http.MethodPost, "/api/v1/chargings/apply", []byte(`{"entity_name":"bench-1","hole_id":"nope","template":"production"}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown hole should 404, got %d", rec.Code)
	}

	rec = fixture.do(http.MethodPost, "/api/v1/chargings/bench-1/H001/rescale", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("uncharged rescale should 404, got %d", rec.Code)
	}
}

func TestChargingHandlerTemplates(t *testing.T) {
	fixture := newHandlerFixture(t)
	rec := fixture.do(http.MethodGet, "/api/v1/templates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("templates status %d", rec.Code)
	}
	var listing struct {
		Templates []string `json:"templates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode templates: %v", err)
	}
	if len(listing.Templates) != 1 || listing.Templates[0] != "production" {
		t.Fatalf("expected [production], got %v", listing.Templates)
	}
}

func TestChargingHandlerExports(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.saveHole(t, &drillhole.BlastHole{HoleID: "H001", EntityName: "bench-1", HoleDiameterMm: 200, HoleLength: 12})
	body := []byte(`{"entity_name":"bench-1","hole_id":"H001","template":"production"}`)
	if rec := fixture.do(http.MethodPost, "/api/v1/chargings/apply", body); rec.Code != http.StatusOK {
		t.Fatalf("apply status %d", rec.Code)
	}

	rec := fixture.do(http.MethodGet, "/api/v1/chargings/bench-1/H001/export.pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf status %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("pdf content type %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("pdf export missing magic bytes")
	}

	rec = fixture.do(http.MethodGet, "/api/v1/chargings/bench-1/H001/export.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("xlsx status %d", rec.Code)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("xlsx export missing zip magic bytes")
	}

	rec = fixture.do(http.MethodGet, "/api/v1/chargings/bench-1/missing/export.pdf", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("uncharged export should 404, got %d", rec.Code)
	}
}
