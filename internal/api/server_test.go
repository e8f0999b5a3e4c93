package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/parcel.station/internal/fusion"
	"github.com/banshee-data/parcel.station/internal/serialmux"
)

type fakeStore struct {
	packages []fusion.PackageRecord
	counts   map[string]int
	err      error

	gotLimit int
}

func (s *fakeStore) Packages(_ context.Context, limit int) ([]fusion.PackageRecord, error) {
	s.gotLimit = limit
	return s.packages, s.err
}

func (s *fakeStore) StatusCounts(context.Context) (map[string]int, error) {
	return s.counts, s.err
}

type fakeMux struct {
	sent    []string
	sendErr error
}

func (m *fakeMux) Name() string                     { return "fake" }
func (m *fakeMux) Subscribe() (string, chan string) { return "", nil }
func (m *fakeMux) Unsubscribe(string)               {}
func (m *fakeMux) Monitor(context.Context) error    { return nil }
func (m *fakeMux) Close() error                     { return nil }
func (m *fakeMux) AttachAdminRoutes(*http.ServeMux) {}
func (m *fakeMux) SendCommand(command string) error {
	m.sent = append(m.sent, command)
	return m.sendErr
}

func newTestServer(store *fakeStore, scale, scanner *fakeMux) *Server {
	pallets := fusion.NewPalletRegistry(
		fusion.PalletProfile{Name: "euro", TareWeightKg: 2.5, LengthCm: 120, WidthCm: 80, HeightCm: 14.4},
	)
	var scaleMux, scannerMux serialmux.SerialMuxInterface
	if scale != nil {
		scaleMux = scale
	}
	if scanner != nil {
		scannerMux = scanner
	}
	return NewServer(store, pallets, fusion.NewAdmission(), scaleMux, scannerMux)
}

func TestListPackages(t *testing.T) {
	store := &fakeStore{
		packages: []fusion.PackageRecord{
			{ID: "id-1", Barcode: "PKG0001", CreateTime: time.Now(), Status: fusion.StatusSuccess},
		},
	}
	srv := newTestServer(store, nil, nil)

	rr := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/packages?limit=5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if store.gotLimit != 5 {
		t.Errorf("store queried with limit %d, want 5", store.gotLimit)
	}

	var got []fusion.PackageRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 1 || got[0].Barcode != "PKG0001" {
		t.Errorf("response = %+v", got)
	}
}

func TestListPackagesEmptyIsArray(t *testing.T) {
	srv := newTestServer(&fakeStore{}, nil, nil)

	rr := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/packages", nil))

	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("empty list serialized as %q, want []", body)
	}
}

func TestListPackagesBadLimit(t *testing.T) {
	srv := newTestServer(&fakeStore{}, nil, nil)

	for _, q := range []string{"limit=0", "limit=-3", "limit=abc"} {
		rr := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/packages?"+q, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rr.Code)
		}
	}
}

func TestListPackagesStoreError(t *testing.T) {
	srv := newTestServer(&fakeStore{err: errors.New("locked")}, nil, nil)

	rr := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/packages", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

func TestShowStatus(t *testing.T) {
	store := &fakeStore{counts: map[string]int{"success": 7, "failed": 2}}
	srv := newTestServer(store, nil, nil)

	rr := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var got struct {
		Busy           bool                 `json:"busy"`
		SelectedPallet fusion.PalletProfile `json:"selected_pallet"`
		PackageCounts  map[string]int       `json:"package_counts"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Busy {
		t.Error("busy = true on idle station")
	}
	if got.SelectedPallet.Name != "none" {
		t.Errorf("selected pallet = %q, want none", got.SelectedPallet.Name)
	}
	if got.PackageCounts["success"] != 7 {
		t.Errorf("counts = %v", got.PackageCounts)
	}
}

func TestSelectPallet(t *testing.T) {
	srv := newTestServer(&fakeStore{}, nil, nil)
	mux := srv.ServeMux()

	form := url.Values{"name": {"euro"}}
	req := httptest.NewRequest(http.MethodPost, "/api/pallets/select", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if srv.pallets.Selected().Name != "euro" {
		t.Errorf("selected pallet = %q after select", srv.pallets.Selected().Name)
	}

	// Unknown profile is a 404 and leaves the selection alone.
	form = url.Values{"name": {"nonexistent"}}
	req = httptest.NewRequest(http.MethodPost, "/api/pallets/select", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if srv.pallets.Selected().Name != "euro" {
		t.Errorf("selection changed after failed select: %q", srv.pallets.Selected().Name)
	}
}

func TestListPallets(t *testing.T) {
	srv := newTestServer(&fakeStore{}, nil, nil)

	rr := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/pallets", nil))

	var got struct {
		Profiles []fusion.PalletProfile `json:"profiles"`
		Selected string                 `json:"selected"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got.Profiles) != 2 {
		t.Errorf("profiles = %+v, want none + euro", got.Profiles)
	}
	if got.Selected != "none" {
		t.Errorf("selected = %q, want none", got.Selected)
	}
}

func TestSendCommand(t *testing.T) {
	scale := &fakeMux{}
	srv := newTestServer(&fakeStore{}, scale, nil)
	mux := srv.ServeMux()

	form := url.Values{"device": {"scale"}, "command": {"Z"}}
	req := httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if len(scale.sent) != 1 || scale.sent[0] != "Z" {
		t.Errorf("commands sent = %v, want [Z]", scale.sent)
	}

	// Unknown device.
	form = url.Values{"device": {"toaster"}, "command": {"Z"}}
	req = httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}

	// Detached device.
	form = url.Values{"device": {"scanner"}, "command": {"Z"}}
	req = httptest.NewRequest(http.MethodPost, "/api/command", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeStore{}, nil, nil)
	mux := srv.ServeMux()

	for _, tt := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/packages"},
		{http.MethodPost, "/api/status"},
		{http.MethodGet, "/api/pallets/select"},
		{http.MethodGet, "/api/command"},
	} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tt.method, tt.path, rr.Code)
		}
	}
}
