package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/engagenetwork/engage-api/database"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, func()) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	prev := database.DB
	database.DB = gdb
	return mock, func() {
		database.DB = prev
		sqlDB.Close()
	}
}

// newTestApp wires a handler behind a stub of the auth middleware's locals.
func newTestApp(userID uuid.UUID, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": userID.String(), "role": role}})
		return c.Next()
	})
	return app
}

// A registration can land between loading the listing and soft-deleting it;
// the delete statement itself guards on registered_id so the late delete
// matches nothing and reports a conflict instead of hiding a live session.
func TestDeleteListingRefusesWhenRegistrationLands(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	ownerID := uuid.New()
	slateID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "slates" WHERE id = \$1 AND deleted = false`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "deleted"}).
			AddRow(slateID.String(), ownerID.String(), false))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "slates" SET .+ WHERE id = \$\d+ AND deleted = false AND registered_id IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	app := newTestApp(ownerID, "tutor")
	app.Delete("/listings/:id", DeleteListing)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/listings/"+slateID.String(), nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusConflict)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateListingRefusesWhenRegistrationLands(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	ownerID := uuid.New()
	slateID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "slates" WHERE id = \$1 AND deleted = false`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "deleted"}).
			AddRow(slateID.String(), ownerID.String(), false))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "slates" SET .+ WHERE id = \$\d+ AND deleted = false AND registered_id IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	app := newTestApp(ownerID, "tutor")
	app.Patch("/listings/:id", UpdateListing)

	req := httptest.NewRequest("PATCH", "/listings/"+slateID.String(), strings.NewReader(`{"details":"bring your own textbook"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusConflict)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Cancellation takes the slate row lock and re-checks for rooms inside the
// transaction, so a session with a video encounter cannot be reverted.
func TestCancelRegistrationRefusesOnceRoomExists(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	ownerID := uuid.New()
	studentID := uuid.New()
	slateID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "slates" WHERE id = \$1 AND deleted = false .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "registered_id", "deleted"}).
			AddRow(slateID.String(), ownerID.String(), studentID.String(), false))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "video_rooms" WHERE slate_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	app := newTestApp(studentID, "student")
	app.Post("/sessions/:id/cancel", CancelRegistration)

	resp, err := app.Test(httptest.NewRequest("POST", "/sessions/"+slateID.String()+"/cancel", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusConflict)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkCompleteRejectsMalformedID(t *testing.T) {
	mock, cleanup := newMockDB(t)
	defer cleanup()

	app := newTestApp(uuid.New(), "student")
	app.Post("/sessions/:id/complete", MarkComplete)

	resp, err := app.Test(httptest.NewRequest("POST", "/sessions/not-a-uuid/complete", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusNotFound)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database access: %v", err)
	}
}
