package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/bitfantasy/garage-erp/internal/notify"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/bitfantasy/garage-erp/internal/testutil"
	"gorm.io/gorm"
)

func setupSessionTest(t *testing.T) (*SessionService, *gorm.DB, string, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	client, vehicle := testutil.SeedClientWithVehicle(t, db, testutil.TestCompanyID)

	repos := repository.NewRepositories(db)
	svc := NewSessionService(repos.Session, repos.Client, db, notify.NoopNotifier{})
	return svc, db, client.ID, vehicle.ID
}

func TestSessionCreateAssignsDailyNumber(t *testing.T) {
	svc, _, clientID, vehicleID := setupSessionTest(t)

	first, err := svc.Create(CreateSessionRequest{
		ClientID:        clientID,
		ClientVehicleID: vehicleID,
		MileageIn:       42000,
	}, testutil.TestCompanyID, "test-user-001")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	day := time.Now().Format("20060102")
	want := fmt.Sprintf("SES-%s-0001", day)
	if first.SessionNumber != want {
		t.Errorf("expected session number %s, got %s", want, first.SessionNumber)
	}
	if first.Status != entity.SessionStatusCheckedIn {
		t.Errorf("expected status CHECKED_IN, got %s", first.Status)
	}
	if first.CheckInAt == nil {
		t.Error("expected check-in timestamp to be set")
	}

	second, err := svc.Create(CreateSessionRequest{
		ClientID:        clientID,
		ClientVehicleID: vehicleID,
	}, testutil.TestCompanyID, "test-user-001")
	if err != nil {
		t.Fatalf("create second session: %v", err)
	}
	if second.SessionNumber != fmt.Sprintf("SES-%s-0002", day) {
		t.Errorf("expected sequence 0002, got %s", second.SessionNumber)
	}
}

func TestSessionNumberSequencePerCompany(t *testing.T) {
	svc, db, clientID, vehicleID := setupSessionTest(t)

	otherClient, otherVehicle := testutil.SeedClientWithVehicle(t, db, "company-test-002")

	if _, err := svc.Create(CreateSessionRequest{
		ClientID:        clientID,
		ClientVehicleID: vehicleID,
	}, testutil.TestCompanyID, "u1"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	other, err := svc.Create(CreateSessionRequest{
		ClientID:        otherClient.ID,
		ClientVehicleID: otherVehicle.ID,
	}, "company-test-002", "u1")
	if err != nil {
		t.Fatalf("create session for second company: %v", err)
	}

	// 每个租户有独立的当日序列
	day := time.Now().Format("20060102")
	if other.SessionNumber != fmt.Sprintf("SES-%s-0001", day) {
		t.Errorf("expected independent sequence per company, got %s", other.SessionNumber)
	}
}

func TestSessionStatusOnlyMovesForward(t *testing.T) {
	svc, _, clientID, vehicleID := setupSessionTest(t)

	session, err := svc.Create(CreateSessionRequest{
		ClientID:        clientID,
		ClientVehicleID: vehicleID,
	}, testutil.TestCompanyID, "u1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// 向前推进生效
	updated, err := svc.AdvanceStatus(session.ID, testutil.TestCompanyID, entity.SessionStatusInspection)
	if err != nil {
		t.Fatalf("advance to INSPECTION: %v", err)
	}
	if updated.Status != entity.SessionStatusInspection {
		t.Errorf("expected INSPECTION, got %s", updated.Status)
	}

	// 回退是无操作，不报错也不改状态
	updated, err = svc.AdvanceStatus(session.ID, testutil.TestCompanyID, entity.SessionStatusCheckedIn)
	if err != nil {
		t.Fatalf("backward advance should be a no-op: %v", err)
	}
	if updated.Status != entity.SessionStatusInspection {
		t.Errorf("status regressed to %s", updated.Status)
	}

	// 未知状态被拒绝
	if _, err := svc.AdvanceStatus(session.ID, testutil.TestCompanyID, "LIMBO"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for unknown status, got %v", err)
	}
}

func TestStaleSnapshotCannotRegressSession(t *testing.T) {
	svc, db, clientID, vehicleID := setupSessionTest(t)

	session, err := svc.Create(CreateSessionRequest{
		ClientID:        clientID,
		ClientVehicleID: vehicleID,
	}, testutil.TestCompanyID, "u1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// 另一个请求先把会话推进到了更靠后的里程碑
	if _, err := svc.AdvanceStatus(session.ID, testutil.TestCompanyID, entity.SessionStatusAwaitingApproval); err != nil {
		t.Fatalf("advance to AWAITING_APPROVAL: %v", err)
	}

	// 持旧快照的事务试图推进到更低序的里程碑，锁内重读必须拦下
	stale := &entity.GarageSession{
		ID:        session.ID,
		CompanyID: session.CompanyID,
		Status:    entity.SessionStatusCheckedIn,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		return advanceSessionTx(tx, stale, entity.SessionStatusCustomerRequest)
	})
	if err != nil {
		t.Fatalf("stale advance should be a no-op, got %v", err)
	}
	if stale.Status != entity.SessionStatusAwaitingApproval {
		t.Errorf("no-op should refresh the snapshot to the stored status, got %s", stale.Status)
	}

	var reloaded entity.GarageSession
	if err := db.Where("id = ?", session.ID).First(&reloaded).Error; err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if reloaded.Status != entity.SessionStatusAwaitingApproval {
		t.Errorf("session regressed to %s", reloaded.Status)
	}
}

func TestConcurrentSessionCreatesGetDistinctNumbers(t *testing.T) {
	svc, _, clientID, vehicleID := setupSessionTest(t)

	const workers = 8
	var wg sync.WaitGroup
	numbers := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := svc.Create(CreateSessionRequest{
				ClientID:        clientID,
				ClientVehicleID: vehicleID,
			}, testutil.TestCompanyID, "u1")
			if err != nil {
				errs <- err
				return
			}
			numbers <- session.SessionNumber
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent create: %v", err)
	}
	seen := make(map[string]bool, workers)
	for number := range numbers {
		if seen[number] {
			t.Errorf("duplicate session number %s", number)
		}
		seen[number] = true
	}
	if len(seen) != workers {
		t.Errorf("expected %d distinct numbers, got %d", workers, len(seen))
	}
}

func TestStageCreationAdvancesSession(t *testing.T) {
	svc, _, clientID, vehicleID := setupSessionTest(t)

	session, _ := svc.Create(CreateSessionRequest{
		ClientID:        clientID,
		ClientVehicleID: vehicleID,
	}, testutil.TestCompanyID, "u1")

	if _, err := svc.CreateCustomerRequest(session.ID, testutil.TestCompanyID, "u1", CreateCustomerRequestRequest{
		Description: "异响排查",
	}); err != nil {
		t.Fatalf("create customer request: %v", err)
	}

	view, err := svc.Get(session.ID, testutil.TestCompanyID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if view.Status != entity.SessionStatusCustomerRequest {
		t.Errorf("expected CUSTOMER_REQUEST, got %s", view.Status)
	}
	if !view.HasCustomerRequest {
		t.Error("expected has_customer_request flag")
	}

	if _, err := svc.CreateInspection(session.ID, testutil.TestCompanyID, "u1", CreateInspectionRequest{
		Findings: "刹车片磨损",
	}); err != nil {
		t.Fatalf("create inspection: %v", err)
	}
	if _, err := svc.CreateTestDrive(session.ID, testutil.TestCompanyID, "u1", CreateTestDriveRequest{
		Findings: "低速抖动",
	}); err != nil {
		t.Fatalf("create test drive: %v", err)
	}

	view, _ = svc.Get(session.ID, testutil.TestCompanyID)
	if view.Status != entity.SessionStatusTestDrive {
		t.Errorf("expected TEST_DRIVE, got %s", view.Status)
	}
}

func TestCheckOutIsIdempotent(t *testing.T) {
	svc, _, clientID, vehicleID := setupSessionTest(t)

	session, _ := svc.Create(CreateSessionRequest{
		ClientID:        clientID,
		ClientVehicleID: vehicleID,
	}, testutil.TestCompanyID, "u1")

	closed, err := svc.CheckOut(session.ID, testutil.TestCompanyID, 42100)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if closed.Status != entity.SessionStatusClosed {
		t.Errorf("expected CLOSED, got %s", closed.Status)
	}
	if closed.CheckOutAt == nil {
		t.Fatal("expected checkout timestamp")
	}
	firstCheckout := *closed.CheckOutAt

	time.Sleep(10 * time.Millisecond)
	again, err := svc.CheckOut(session.ID, testutil.TestCompanyID, 0)
	if err != nil {
		t.Fatalf("repeat checkout: %v", err)
	}
	if !again.CheckOutAt.Equal(firstCheckout) {
		t.Error("repeat checkout must not overwrite the original checkout time")
	}
	if again.MileageOut != 42100 {
		t.Errorf("mileage out overwritten, got %d", again.MileageOut)
	}
}

func TestClosedSessionRejectsStages(t *testing.T) {
	svc, _, clientID, vehicleID := setupSessionTest(t)

	session, _ := svc.Create(CreateSessionRequest{
		ClientID:        clientID,
		ClientVehicleID: vehicleID,
	}, testutil.TestCompanyID, "u1")
	if _, err := svc.CheckOut(session.ID, testutil.TestCompanyID, 0); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, err := svc.CreateInspection(session.ID, testutil.TestCompanyID, "u1", CreateInspectionRequest{}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := svc.UpdateCustomerRequest(session.ID, testutil.TestCompanyID, UpdateStageRequest{Status: entity.StageCompleted}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed on stage update, got %v", err)
	}
}

func TestSessionViewFallbacks(t *testing.T) {
	svc, db, _, _ := setupSessionTest(t)

	// 悬空的客户和车辆外键不应让投影失败
	session := &entity.GarageSession{
		ID:              "sess-dangling",
		CompanyID:       testutil.TestCompanyID,
		SessionNumber:   "SES-19700101-0001",
		ClientID:        "missing-client",
		ClientVehicleID: "missing-vehicle",
		Status:          entity.SessionStatusCheckedIn,
		CreatedBy:       "u1",
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}

	view, err := svc.Get(session.ID, testutil.TestCompanyID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if view.ClientName != "Unknown Client" {
		t.Errorf("expected Unknown Client, got %s", view.ClientName)
	}
	if view.VehicleName != "Unknown Vehicle" {
		t.Errorf("expected Unknown Vehicle, got %s", view.VehicleName)
	}
}
