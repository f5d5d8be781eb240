package user

import (
	"context"
	"errors"
	"testing"

	"github.com/totustuus/totus/internal/model"
	"github.com/totustuus/totus/internal/repository"
)

type mockUserRepo struct {
	findByIDFunc          func(ctx context.Context, id string) (*model.User, error)
	findByIDForUpdateFunc func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc       func(ctx context.Context, email string) (*model.User, error)
	createFunc            func(ctx context.Context, user *model.User) error
	updateProfileFunc     func(ctx context.Context, id, name, email string) error
	updateCurrentDayFunc  func(ctx context.Context, id string, currentDay int) error
	updateLibreModeFunc   func(ctx context.Context, id string, libreMode bool) error
	setStartDayFunc       func(ctx context.Context, id string, startDay int) error
	deleteByIDFunc        func(ctx context.Context, id string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}
func (m *mockUserRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDForUpdateFunc(ctx, id)
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc == nil {
		return nil, nil
	}
	return m.findByEmailFunc(ctx, email)
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.createFunc(ctx, user)
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, name, email string) error {
	if m.updateProfileFunc == nil {
		return nil
	}
	return m.updateProfileFunc(ctx, id, name, email)
}
func (m *mockUserRepo) UpdateCurrentDay(ctx context.Context, id string, currentDay int) error {
	if m.updateCurrentDayFunc == nil {
		return nil
	}
	return m.updateCurrentDayFunc(ctx, id, currentDay)
}
func (m *mockUserRepo) UpdateLibreMode(ctx context.Context, id string, libreMode bool) error {
	if m.updateLibreModeFunc == nil {
		return nil
	}
	return m.updateLibreModeFunc(ctx, id, libreMode)
}
func (m *mockUserRepo) SetStartDay(ctx context.Context, id string, startDay int) error {
	if m.setStartDayFunc == nil {
		return nil
	}
	return m.setStartDayFunc(ctx, id, startDay)
}
func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFunc(ctx, id)
}

type mockTxRunner struct {
	users *mockUserRepo
}

func (m *mockTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	return fn(ctx, repository.TxRepos{Users: m.users})
}

func activeUser() *model.User {
	return &model.User{
		ID:         "user-1",
		Name:       "María",
		Email:      "maria@gmail.com",
		CurrentDay: 5,
		StartDay:   1,
		IsActive:   true,
	}
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError with code %s, got %v", wantCode, err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("code = %q, want %q", apiErr.Code, wantCode)
	}
}

func TestService_GetProfile(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return activeUser(), nil
			}
			return nil, nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	user, err := svc.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetProfile returned error: %v", err)
	}
	if user.Email != "maria@gmail.com" {
		t.Errorf("Email = %q", user.Email)
	}

	_, err = svc.GetProfile(context.Background(), "ghost")
	assertAPIErrorCode(t, err, "USER_NOT_FOUND")
}

func TestService_UpdateProfile_Success(t *testing.T) {
	var gotName, gotEmail string
	repo := &mockUserRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id string) (*model.User, error) {
			return activeUser(), nil
		},
		updateProfileFunc: func(ctx context.Context, id, name, email string) error {
			gotName, gotEmail = name, email
			return nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	updated, err := svc.UpdateProfile(context.Background(), "user-1", ProfileUpdate{
		Name:  "  María José ",
		Email: " MARIA.JOSE@Gmail.com ",
	})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}

	if gotName != "María José" {
		t.Errorf("persisted name = %q, want trimmed", gotName)
	}
	if gotEmail != "maria.jose@gmail.com" {
		t.Errorf("persisted email = %q, want normalized", gotEmail)
	}
	if updated.Name != "María José" || updated.Email != "maria.jose@gmail.com" {
		t.Errorf("returned user not updated: %+v", updated)
	}
}

func TestService_UpdateProfile_AdvancesCurrentDay(t *testing.T) {
	var persistedDay int
	repo := &mockUserRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id string) (*model.User, error) {
			return activeUser(), nil
		},
		updateCurrentDayFunc: func(ctx context.Context, id string, currentDay int) error {
			persistedDay = currentDay
			return nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	day := 8
	updated, err := svc.UpdateProfile(context.Background(), "user-1", ProfileUpdate{
		Name:       "María",
		Email:      "maria@gmail.com",
		CurrentDay: &day,
	})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if persistedDay != 8 || updated.CurrentDay != 8 {
		t.Errorf("CurrentDay persisted=%d returned=%d, want 8", persistedDay, updated.CurrentDay)
	}
}

func TestService_UpdateProfile_RejectsCurrentDayDecrease(t *testing.T) {
	repo := &mockUserRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id string) (*model.User, error) {
			return activeUser(), nil
		},
		updateCurrentDayFunc: func(ctx context.Context, id string, currentDay int) error {
			t.Error("current_day must not be persisted on a rejected decrease")
			return nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	day := 3
	_, err := svc.UpdateProfile(context.Background(), "user-1", ProfileUpdate{
		Name:       "María",
		Email:      "maria@gmail.com",
		CurrentDay: &day,
	})
	assertAPIErrorCode(t, err, "BUSINESS_RULE_VIOLATION")
}

func TestService_UpdateProfile_InvalidDay(t *testing.T) {
	repo := &mockUserRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id string) (*model.User, error) {
			t.Error("validation must run before any read")
			return nil, nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	for _, day := range []int{0, 34} {
		d := day
		_, err := svc.UpdateProfile(context.Background(), "user-1", ProfileUpdate{
			Name:       "María",
			Email:      "maria@gmail.com",
			CurrentDay: &d,
		})
		assertAPIErrorCode(t, err, "INVALID_DAY")
	}
}

func TestService_UpdateProfile_RejectsTakenEmail(t *testing.T) {
	repo := &mockUserRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id string) (*model.User, error) {
			return activeUser(), nil
		},
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-2", Email: email}, nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	_, err := svc.UpdateProfile(context.Background(), "user-1", ProfileUpdate{
		Name:  "María",
		Email: "otra@gmail.com",
	})
	assertAPIErrorCode(t, err, "EMAIL_ALREADY_EXISTS")
}

func TestService_ToggleLibreMode(t *testing.T) {
	var persisted bool
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return activeUser(), nil
		},
		updateLibreModeFunc: func(ctx context.Context, id string, libreMode bool) error {
			persisted = libreMode
			return nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	user, err := svc.ToggleLibreMode(context.Background(), "user-1", true)
	if err != nil {
		t.Fatalf("ToggleLibreMode returned error: %v", err)
	}
	if !persisted || !user.LibreMode {
		t.Errorf("libre mode not enabled: persisted=%v user=%v", persisted, user.LibreMode)
	}
}

func TestService_ToggleLibreMode_RejectsBeyondFinalDay(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			u := activeUser()
			u.CurrentDay = 34
			return u, nil
		},
		updateLibreModeFunc: func(ctx context.Context, id string, libreMode bool) error {
			t.Error("libre mode must not be persisted past the final day")
			return nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	_, err := svc.ToggleLibreMode(context.Background(), "user-1", true)
	assertAPIErrorCode(t, err, "BUSINESS_RULE_VIOLATION")
}

func TestService_SetStartDay_Success(t *testing.T) {
	var gotStartDay, gotCurrentDay int
	repo := &mockUserRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id string) (*model.User, error) {
			u := activeUser()
			u.CurrentDay = 1
			u.HasChosenStartDay = false
			return u, nil
		},
		setStartDayFunc: func(ctx context.Context, id string, startDay int) error {
			gotStartDay = startDay
			return nil
		},
		updateCurrentDayFunc: func(ctx context.Context, id string, currentDay int) error {
			gotCurrentDay = currentDay
			return nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	user, err := svc.SetStartDay(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("SetStartDay returned error: %v", err)
	}

	// start_dayとcurrent_dayの両方が選択された日に揃う
	if gotStartDay != 5 || gotCurrentDay != 5 {
		t.Errorf("persisted start_day=%d current_day=%d, want both 5", gotStartDay, gotCurrentDay)
	}
	if user.StartDay != 5 || user.CurrentDay != 5 || !user.HasChosenStartDay {
		t.Errorf("returned user not updated: %+v", user)
	}
}

func TestService_SetStartDay_SingleShot(t *testing.T) {
	repo := &mockUserRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id string) (*model.User, error) {
			u := activeUser()
			u.HasChosenStartDay = true
			return u, nil
		},
		setStartDayFunc: func(ctx context.Context, id string, startDay int) error {
			t.Error("start day must not be persisted twice")
			return nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	for _, day := range []int{1, 5, 33} {
		_, err := svc.SetStartDay(context.Background(), "user-1", day)
		assertAPIErrorCode(t, err, "BUSINESS_RULE_VIOLATION")
	}
}

func TestService_SetStartDay_InvalidDay(t *testing.T) {
	repo := &mockUserRepo{
		findByIDForUpdateFunc: func(ctx context.Context, id string) (*model.User, error) {
			t.Error("validation must run before any read")
			return nil, nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	for _, day := range []int{0, -1, 34} {
		_, err := svc.SetStartDay(context.Background(), "user-1", day)
		assertAPIErrorCode(t, err, "INVALID_DAY")
	}
}

func TestService_DeleteAccount(t *testing.T) {
	deleted := false
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return activeUser(), nil
		},
		deleteByIDFunc: func(ctx context.Context, id string) error {
			if id != "user-1" {
				t.Errorf("DeleteByID called with %q", id)
			}
			deleted = true
			return nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	if err := svc.DeleteAccount(context.Background(), "user-1"); err != nil {
		t.Fatalf("DeleteAccount returned error: %v", err)
	}
	if !deleted {
		t.Error("expected user row to be deleted")
	}
}

func TestService_DeleteAccount_UserNotFound(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
		deleteByIDFunc: func(ctx context.Context, id string) error {
			t.Error("DeleteByID must not be called for a missing user")
			return nil
		},
	}
	svc := NewService(repo, &mockTxRunner{users: repo})

	err := svc.DeleteAccount(context.Background(), "ghost")
	assertAPIErrorCode(t, err, "USER_NOT_FOUND")
}
