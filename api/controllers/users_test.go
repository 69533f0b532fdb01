package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/api/middleware"
	"github.com/freshlane/freshlane-backend/internal/users"
	"github.com/freshlane/freshlane-backend/pkg/enums"
)

type stubUserService struct {
	profileUserID uuid.UUID
	profileInput  users.UpdateProfileInput
	sellers       []users.SellerDTO
}

func (s *stubUserService) Get(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

func (s *stubUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input users.UpdateProfileInput) (*users.UserDTO, error) {
	s.profileUserID = userID
	s.profileInput = input
	dto := &users.UserDTO{ID: userID}
	if input.FirstName != nil {
		dto.FirstName = *input.FirstName
	}
	return dto, nil
}

func (s *stubUserService) ListSellers(ctx context.Context) ([]users.SellerDTO, error) {
	return s.sellers, nil
}

func (s *stubUserService) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role enums.UserRole) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID, Role: role}, nil
}

func TestUpdateCurrentUser(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	body := `{"first_name":"Grace","phone":"+44 20 7946 0000"}`

	t.Run("missing user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/users/me", strings.NewReader(body))
		rec := httptest.NewRecorder()
		UpdateCurrentUser(&stubUserService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without identity, got %d", rec.Code)
		}
	})

	t.Run("invalid avatar url", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/users/me", strings.NewReader(`{"avatar_url":"not a url"}`))
		req = req.WithContext(middleware.WithIdentity(req.Context(), userID, enums.UserRoleCustomer))
		rec := httptest.NewRecorder()
		UpdateCurrentUser(&stubUserService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad avatar url, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubUserService{}
		req := httptest.NewRequest(http.MethodPut, "/api/v1/users/me", strings.NewReader(body))
		req = req.WithContext(middleware.WithIdentity(req.Context(), userID, enums.UserRoleCustomer))
		rec := httptest.NewRecorder()
		UpdateCurrentUser(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if stub.profileUserID != userID {
			t.Fatalf("profile update targeted wrong user: %s", stub.profileUserID)
		}
		if stub.profileInput.FirstName == nil || *stub.profileInput.FirstName != "Grace" {
			t.Fatalf("first name not forwarded: %+v", stub.profileInput)
		}
		if stub.profileInput.Phone == nil || *stub.profileInput.Phone != "+44 20 7946 0000" {
			t.Fatalf("phone not forwarded: %+v", stub.profileInput)
		}
		if stub.profileInput.LastName != nil {
			t.Fatalf("last name should stay untouched, got %q", *stub.profileInput.LastName)
		}
	})
}

func TestListSellersIsPublic(t *testing.T) {
	logg := testLogger()
	stub := &stubUserService{sellers: []users.SellerDTO{{ID: uuid.New(), FirstName: "Sam"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sellers", nil)
	rec := httptest.NewRecorder()
	ListSellers(stub, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Sam") {
		t.Fatalf("seller missing from body: %s", rec.Body.String())
	}
}

func TestListCategoriesIsPublic(t *testing.T) {
	logg := testLogger()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/categories", nil)
	rec := httptest.NewRecorder()
	ListCategories(&stubCatalogService{}, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), string(enums.CategoryProduce)) {
		t.Fatalf("categories missing from body: %s", rec.Body.String())
	}
}
