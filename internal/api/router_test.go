package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"vehicle_parking/internal/api/middleware"
	"vehicle_parking/internal/domain"
	"vehicle_parking/internal/repository"
	"vehicle_parking/internal/service"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// In-memory stand-ins for the postgres repositories, enough to exercise the
// HTTP surface end to end.

type memUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func (f *memUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := f.users[user.Username]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	u := *user
	u.ID = f.nextID
	f.nextID++
	f.users[u.Username] = &u
	out := u
	return &out, nil
}

func (f *memUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (f *memUserRepo) FindByID(_ context.Context, id int) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memLotRepo struct {
	lots   map[int]*domain.ParkingLot
	nextID int
}

func (f *memLotRepo) CreateWithSpots(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	lot.ID = f.nextID
	f.nextID++
	f.lots[lot.ID] = lot
	return lot, nil
}

func (f *memLotRepo) FindByID(_ context.Context, id int) (*domain.ParkingLot, error) {
	lot, ok := f.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return lot, nil
}

func (f *memLotRepo) FindAllWithAvailability(_ context.Context) ([]domain.ParkingLotSummary, error) {
	var out []domain.ParkingLotSummary
	for _, lot := range f.lots {
		out = append(out, domain.ParkingLotSummary{ParkingLot: *lot, AvailableSpots: lot.Capacity})
	}
	return out, nil
}

func (f *memLotRepo) UpdateWithResize(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	if _, ok := f.lots[lot.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	f.lots[lot.ID] = lot
	return lot, nil
}

func (f *memLotRepo) DeleteIfAllAvailable(_ context.Context, id int) error {
	if _, ok := f.lots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.lots, id)
	return nil
}

type memSpotRepo struct{}

func (f *memSpotRepo) FindByLotID(_ context.Context, lotID int) ([]domain.ParkingSpot, error) {
	return nil, nil
}

type memReservationRepo struct {
	reservations map[int]*domain.Reservation
	nextID       int
}

func (f *memReservationRepo) Book(_ context.Context, lotID, userID int, code string, startTime time.Time) (*domain.Reservation, error) {
	for _, res := range f.reservations {
		if res.UserID == userID && !res.EndTime.Valid {
			return nil, repository.ErrOpenReservation
		}
	}
	res := &domain.Reservation{
		ID: f.nextID, Code: code, UserID: userID, SpotID: null.IntFrom(int64(lotID * 100)), StartTime: startTime,
		Spot: &domain.ParkingSpot{ID: lotID * 100, LotID: lotID, SpotNumber: 1, Status: domain.StatusOccupied},
		Lot:  &domain.ParkingLot{ID: lotID, PricePerHour: 1.5},
	}
	f.nextID++
	f.reservations[res.ID] = res
	return res, nil
}

func (f *memReservationRepo) Close(_ context.Context, id int, endTime time.Time, cost float64) (*domain.Reservation, error) {
	res, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if res.EndTime.Valid {
		return nil, repository.ErrAlreadyClosed
	}
	res.EndTime = null.TimeFrom(endTime)
	res.Cost = null.FloatFrom(cost)
	res.Spot.Status = domain.StatusAvailable
	return res, nil
}

func (f *memReservationRepo) FindByID(_ context.Context, id int) (*domain.Reservation, error) {
	res, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return res, nil
}

func (f *memReservationRepo) FindOpenByUserID(_ context.Context, userID int) (*domain.Reservation, error) {
	for _, res := range f.reservations {
		if res.UserID == userID && !res.EndTime.Valid {
			return res, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *memReservationRepo) FindClosedByUserID(_ context.Context, userID int) ([]domain.Reservation, error) {
	return nil, nil
}

func (f *memReservationRepo) FindAllClosed(_ context.Context) ([]domain.Reservation, error) {
	return nil, nil
}

type memDenylist struct {
	revoked map[string]bool
}

func (d *memDenylist) Revoke(_ context.Context, jti string, _ time.Duration) error {
	d.revoked[jti] = true
	return nil
}

func (d *memDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	return d.revoked[jti], nil
}

type testEnv struct {
	router   *gin.Engine
	authSvc  *service.AuthService
	lots     *memLotRepo
	denylist *memDenylist
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	userRepo := &memUserRepo{users: map[string]*domain.User{}, nextID: 1}
	lotRepo := &memLotRepo{lots: map[int]*domain.ParkingLot{}, nextID: 1}
	resRepo := &memReservationRepo{reservations: map[int]*domain.Reservation{}, nextID: 1}
	denylist := &memDenylist{revoked: map[string]bool{}}

	authSvc := service.NewAuthService(userRepo, "testsecret", time.Hour)
	parkingSvc := service.NewParkingService(lotRepo, &memSpotRepo{})
	reservationSvc := service.NewReservationService(resRepo, lotRepo, nil)

	if err := authSvc.EnsureAdmin(context.Background(), "admin", "admin_password", "Admin User"); err != nil {
		t.Fatalf("seeding admin: %v", err)
	}

	authMw := middleware.NewAuthMiddleware(authSvc, denylist)
	router := SetupRouter(authSvc, parkingSvc, reservationSvc, authMw, denylist, nil)
	return &testEnv{router: router, authSvc: authSvc, lots: lotRepo, denylist: denylist}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": password})
	if resp.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, resp.Code, resp.Body.String())
	}
	var out domain.AuthResponseDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return out.Token
}

func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"username": username, "password": "secret123", "full_name": "Test User",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", username, resp.Code, resp.Body.String())
	}
	return e.login(t, username, "secret123")
}

func TestRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/v1/parking-lots", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	env := newTestEnv(t)
	body := gin.H{"username": "dana", "password": "secret123", "full_name": "Dana D"}
	if resp := env.do(t, http.MethodPost, "/auth/register", "", body); resp.Code != http.StatusCreated {
		t.Fatalf("first register: %d", resp.Code)
	}
	if resp := env.do(t, http.MethodPost, "/auth/register", "", body); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate register, got %d", resp.Code)
	}
}

func TestAdminRoutesRefuseUserRole(t *testing.T) {
	env := newTestEnv(t)
	userToken := env.registerAndLogin(t, "carol")

	resp := env.do(t, http.MethodPost, "/api/v1/parking-lots", userToken,
		gin.H{"name": "Central", "capacity": 5, "price_per_hour": 2.0})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminCreatesLotUserBooksAndIsLimitedToOne(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin", "admin_password")
	userToken := env.registerAndLogin(t, "erin")

	resp := env.do(t, http.MethodPost, "/api/v1/parking-lots", adminToken,
		gin.H{"name": "Central", "capacity": 5, "price_per_hour": 2.0})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create lot: %d: %s", resp.Code, resp.Body.String())
	}
	var lot domain.ParkingLot
	if err := json.Unmarshal(resp.Body.Bytes(), &lot); err != nil {
		t.Fatalf("decoding lot: %v", err)
	}

	// Admins manage lots, they do not book.
	resp = env.do(t, http.MethodPost, "/api/v1/reservations", adminToken, gin.H{"lot_id": lot.ID})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin booking, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/reservations", userToken, gin.H{"lot_id": lot.ID})
	if resp.Code != http.StatusCreated {
		t.Fatalf("book: %d: %s", resp.Code, resp.Body.String())
	}

	// Second open reservation for the same user is refused.
	resp = env.do(t, http.MethodPost, "/api/v1/reservations", userToken, gin.H{"lot_id": lot.ID})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second booking, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestReleaseForbiddenForOtherUser(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin", "admin_password")
	ownerToken := env.registerAndLogin(t, "frank")
	otherToken := env.registerAndLogin(t, "grace")

	resp := env.do(t, http.MethodPost, "/api/v1/parking-lots", adminToken,
		gin.H{"name": "East", "capacity": 2, "price_per_hour": 1.5})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create lot: %d", resp.Code)
	}
	var lot domain.ParkingLot
	if err := json.Unmarshal(resp.Body.Bytes(), &lot); err != nil {
		t.Fatalf("decoding lot: %v", err)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/reservations", ownerToken, gin.H{"lot_id": lot.ID})
	if resp.Code != http.StatusCreated {
		t.Fatalf("book: %d", resp.Code)
	}
	var res domain.Reservation
	if err := json.Unmarshal(resp.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding reservation: %v", err)
	}

	releasePath := fmt.Sprintf("/api/v1/reservations/%d/release", res.ID)
	if resp := env.do(t, http.MethodPost, releasePath, otherToken, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 releasing another user's reservation, got %d", resp.Code)
	}
	if resp := env.do(t, http.MethodPost, releasePath, ownerToken, nil); resp.Code != http.StatusOK {
		t.Fatalf("owner release: %d: %s", resp.Code, resp.Body.String())
	}
	// Releasing again conflicts.
	if resp := env.do(t, http.MethodPost, releasePath, ownerToken, nil); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double release, got %d", resp.Code)
	}
}

func TestUserDashboardShowsProfile(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "ivy")

	resp := env.do(t, http.MethodGet, "/api/v1/dashboard/user", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("dashboard: %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Username string `json:"username"`
		FullName string `json:"full_name"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding dashboard: %v", err)
	}
	if out.Username != "ivy" || out.FullName != "Test User" {
		t.Errorf("expected profile from the user record, got %+v", out)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "henry")

	if resp := env.do(t, http.MethodGet, "/api/v1/dashboard/user", token, nil); resp.Code != http.StatusOK {
		t.Fatalf("dashboard before logout: %d: %s", resp.Code, resp.Body.String())
	}
	if resp := env.do(t, http.MethodPost, "/auth/logout", token, nil); resp.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", resp.Code)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/dashboard/user", token, nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.Code)
	}
}
