package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/bitfantasy/garage-erp/internal/notify"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/bitfantasy/garage-erp/internal/testutil"
	"gorm.io/gorm"
)

type jobCardEnv struct {
	db       *gorm.DB
	sessions *SessionService
	cards    *JobCardService
	stock    *StockService
	session  *entity.GarageSession
}

func setupJobCardTest(t *testing.T) *jobCardEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	client, vehicle := testutil.SeedClientWithVehicle(t, db, testutil.TestCompanyID)

	repos := repository.NewRepositories(db)
	notifier := notify.NoopNotifier{}
	sessions := NewSessionService(repos.Session, repos.Client, db, notifier)
	stock := NewStockService(repos.Inventory, db, nil, notifier)
	cards := NewJobCardService(repos.JobCard, repos.Session, stock, db, notifier)

	session, err := sessions.Create(CreateSessionRequest{
		ClientID:        client.ID,
		ClientVehicleID: vehicle.ID,
	}, testutil.TestCompanyID, "advisor-001")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	return &jobCardEnv{db: db, sessions: sessions, cards: cards, stock: stock, session: session}
}

func (e *jobCardEnv) sessionStatus(t *testing.T) string {
	t.Helper()
	var session entity.GarageSession
	if err := e.db.Where("id = ?", e.session.ID).First(&session).Error; err != nil {
		t.Fatalf("reload session: %v", err)
	}
	return session.Status
}

func TestJobCardCreateMovesSessionToAwaitingApproval(t *testing.T) {
	env := setupJobCardTest(t)

	card, err := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "刹车系统维修",
	}, testutil.TestCompanyID, "advisor-001")
	if err != nil {
		t.Fatalf("create job card: %v", err)
	}

	day := time.Now().Format("20060102")
	if card.JobCardNumber != fmt.Sprintf("JC-%s-0001", day) {
		t.Errorf("unexpected job card number %s", card.JobCardNumber)
	}
	if card.Status != entity.JobCardStatusPending {
		t.Errorf("expected PENDING, got %s", card.Status)
	}
	if got := env.sessionStatus(t); got != entity.SessionStatusAwaitingApproval {
		t.Errorf("expected session AWAITING_APPROVAL, got %s", got)
	}
}

func TestApproveIsIdempotentAndStartsWork(t *testing.T) {
	env := setupJobCardTest(t)
	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "保养",
	}, testutil.TestCompanyID, "advisor-001")

	approved, err := env.cards.Approve(card.ID, testutil.TestCompanyID, "manager-001", ApproveRequest{Notes: "ok"})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.IsApproved {
		t.Fatal("expected approved flag")
	}
	if approved.Status != entity.JobCardStatusInProgress {
		t.Errorf("expected IN_PROGRESS after approval, got %s", approved.Status)
	}
	if approved.ActualStartAt == nil {
		t.Error("expected actual start timestamp")
	}
	if got := env.sessionStatus(t); got != entity.SessionStatusInProgress {
		t.Errorf("expected session IN_PROGRESS, got %s", got)
	}

	firstApprovedAt := *approved.ApprovedAt
	time.Sleep(10 * time.Millisecond)
	again, err := env.cards.Approve(card.ID, testutil.TestCompanyID, "manager-002", ApproveRequest{})
	if err != nil {
		t.Fatalf("repeat approve: %v", err)
	}
	if !again.ApprovedAt.Equal(firstApprovedAt) {
		t.Error("repeat approval must not overwrite the original approval")
	}
	if again.ApprovedByID != "manager-001" {
		t.Errorf("repeat approval overwrote approver: %s", again.ApprovedByID)
	}
}

func TestStartWorkRequiresBothApprovals(t *testing.T) {
	env := setupJobCardTest(t)
	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "大修",
	}, testutil.TestCompanyID, "advisor-001")

	// 双重授权缺一不可
	if _, err := env.cards.StartWork(card.ID, testutil.TestCompanyID); !errors.Is(err, ErrNotApproved) {
		t.Errorf("expected ErrNotApproved without any approval, got %v", err)
	}

	if _, err := env.cards.AuthorizeByCustomer(card.ID, testutil.TestCompanyID, AuthorizeRequest{Method: "PHONE"}); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if _, err := env.cards.StartWork(card.ID, testutil.TestCompanyID); !errors.Is(err, ErrNotApproved) {
		t.Errorf("expected ErrNotApproved with customer authorization only, got %v", err)
	}

	if _, err := env.cards.Approve(card.ID, testutil.TestCompanyID, "manager-001", ApproveRequest{}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	started, err := env.cards.StartWork(card.ID, testutil.TestCompanyID)
	if err != nil {
		t.Fatalf("start work: %v", err)
	}
	if started.Status != entity.JobCardStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", started.Status)
	}
}

func TestJobCardStatusTransitions(t *testing.T) {
	env := setupJobCardTest(t)
	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "变速箱维修",
	}, testutil.TestCompanyID, "advisor-001")
	env.cards.Approve(card.ID, testutil.TestCompanyID, "manager-001", ApproveRequest{})

	// IN_PROGRESS -> WAITING_PARTS -> IN_PROGRESS
	if _, err := env.cards.MoveToWaitingParts(card.ID, testutil.TestCompanyID); err != nil {
		t.Fatalf("wait parts: %v", err)
	}
	// 等配件状态下不能直接完工
	if _, err := env.cards.CompleteWork(card.ID, testutil.TestCompanyID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from WAITING_PARTS, got %v", err)
	}
	if _, err := env.cards.ResumeWork(card.ID, testutil.TestCompanyID); err != nil {
		t.Fatalf("resume: %v", err)
	}

	// 质检 -> 完工，会话跟随到 COMPLETED
	if _, err := env.cards.MoveToQualityCheck(card.ID, testutil.TestCompanyID); err != nil {
		t.Fatalf("quality check: %v", err)
	}
	if got := env.sessionStatus(t); got != entity.SessionStatusQualityCheck {
		t.Errorf("expected session QUALITY_CHECK, got %s", got)
	}
	done, err := env.cards.CompleteWork(card.ID, testutil.TestCompanyID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.ActualCompletionAt == nil {
		t.Error("expected completion timestamp")
	}
	if got := env.sessionStatus(t); got != entity.SessionStatusCompleted {
		t.Errorf("expected session COMPLETED, got %s", got)
	}

	// 完工是终态
	if _, err := env.cards.ResumeWork(card.ID, testutil.TestCompanyID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from COMPLETED, got %v", err)
	}
}

func TestCompleteWorkAggregatesItemHours(t *testing.T) {
	env := setupJobCardTest(t)
	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "综合维修",
	}, testutil.TestCompanyID, "advisor-001")
	env.cards.Approve(card.ID, testutil.TestCompanyID, "manager-001", ApproveRequest{})

	item1, _ := env.cards.AddItem(card.ID, testutil.TestCompanyID, AddItemRequest{Title: "换刹车片"})
	item2, _ := env.cards.AddItem(card.ID, testutil.TestCompanyID, AddItemRequest{Title: "换机油"})
	env.cards.CompleteItem(card.ID, item1.ID, testutil.TestCompanyID, CompleteItemRequest{ActualHours: 1.5})
	env.cards.CompleteItem(card.ID, item2.ID, testutil.TestCompanyID, CompleteItemRequest{ActualHours: 0.5})

	done, err := env.cards.CompleteWork(card.ID, testutil.TestCompanyID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.ActualHours != 2.0 {
		t.Errorf("expected actual hours 2.0, got %v", done.ActualHours)
	}
}

func TestQualityCheckBlockedByOpenItems(t *testing.T) {
	env := setupJobCardTest(t)
	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "发动机大修",
	}, testutil.TestCompanyID, "advisor-001")
	env.cards.Approve(card.ID, testutil.TestCompanyID, "manager-001", ApproveRequest{})

	item, _ := env.cards.AddItem(card.ID, testutil.TestCompanyID, AddItemRequest{Title: "更换正时皮带"})

	// 有未完成项时不能进质检
	if _, err := env.cards.MoveToQualityCheck(card.ID, testutil.TestCompanyID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition with open items, got %v", err)
	}
	reloaded, _ := env.cards.Get(card.ID, testutil.TestCompanyID)
	if reloaded.Status != entity.JobCardStatusInProgress {
		t.Errorf("rejected transition must roll back, card at %s", reloaded.Status)
	}

	// 项完成后进质检，实际工时从项汇总
	env.cards.CompleteItem(card.ID, item.ID, testutil.TestCompanyID, CompleteItemRequest{ActualHours: 2.5})
	moved, err := env.cards.MoveToQualityCheck(card.ID, testutil.TestCompanyID)
	if err != nil {
		t.Fatalf("quality check: %v", err)
	}
	if moved.ActualHours != 2.5 {
		t.Errorf("expected actual hours 2.5 after quality check, got %v", moved.ActualHours)
	}
}

func TestQualityCheckRequiresCompletedItem(t *testing.T) {
	env := setupJobCardTest(t)
	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "底盘检修",
	}, testutil.TestCompanyID, "advisor-001")
	env.cards.Approve(card.ID, testutil.TestCompanyID, "manager-001", ApproveRequest{})

	item, _ := env.cards.AddItem(card.ID, testutil.TestCompanyID, AddItemRequest{Title: "底盘紧固"})

	// 未完成的项不能质检
	if _, err := env.cards.QualityCheckItem(card.ID, item.ID, testutil.TestCompanyID, "qc-001", QualityCheckItemRequest{Passed: true}); !errors.Is(err, ErrItemNotCompleted) {
		t.Errorf("expected ErrItemNotCompleted, got %v", err)
	}

	env.cards.StartItem(card.ID, item.ID, testutil.TestCompanyID, "tech-001")
	if _, err := env.cards.QualityCheckItem(card.ID, item.ID, testutil.TestCompanyID, "qc-001", QualityCheckItemRequest{Passed: true}); !errors.Is(err, ErrItemNotCompleted) {
		t.Errorf("expected ErrItemNotCompleted for in-progress item, got %v", err)
	}

	env.cards.CompleteItem(card.ID, item.ID, testutil.TestCompanyID, CompleteItemRequest{ActualHours: 1})
	checked, err := env.cards.QualityCheckItem(card.ID, item.ID, testutil.TestCompanyID, "qc-001", QualityCheckItemRequest{Passed: true, Notes: "合格"})
	if err != nil {
		t.Fatalf("quality check item: %v", err)
	}
	if !checked.QualityChecked || checked.QualityCheckedAt == nil {
		t.Error("expected quality check to be recorded")
	}
}

func TestQualityCheckFailureReopensItem(t *testing.T) {
	env := setupJobCardTest(t)
	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "喷漆",
	}, testutil.TestCompanyID, "advisor-001")
	env.cards.Approve(card.ID, testutil.TestCompanyID, "manager-001", ApproveRequest{})

	item, _ := env.cards.AddItem(card.ID, testutil.TestCompanyID, AddItemRequest{Title: "左前门喷漆"})
	env.cards.CompleteItem(card.ID, item.ID, testutil.TestCompanyID, CompleteItemRequest{ActualHours: 3})

	failed, err := env.cards.QualityCheckItem(card.ID, item.ID, testutil.TestCompanyID, "qc-001", QualityCheckItemRequest{Passed: false, Notes: "色差"})
	if err != nil {
		t.Fatalf("quality check: %v", err)
	}
	if failed.Status != entity.StageInProgress {
		t.Errorf("failed item should return to IN_PROGRESS, got %s", failed.Status)
	}
	if failed.CompletedAt != nil {
		t.Error("failed item should clear its completion timestamp")
	}
}

func TestCommentThreadingOneLevel(t *testing.T) {
	env := setupJobCardTest(t)
	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "电路排查",
	}, testutil.TestCompanyID, "advisor-001")

	top, err := env.cards.AddComment(card.ID, testutil.TestCompanyID, "u1", AddCommentRequest{Content: "客户反馈偶发熄火"})
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}
	reply, err := env.cards.AddComment(card.ID, testutil.TestCompanyID, "u2", AddCommentRequest{
		Content:         "已检查点火线圈",
		ParentCommentID: top.ID,
	})
	if err != nil {
		t.Fatalf("add reply: %v", err)
	}

	// 不允许对回复再回复
	if _, err := env.cards.AddComment(card.ID, testutil.TestCompanyID, "u3", AddCommentRequest{
		Content:         "三层",
		ParentCommentID: reply.ID,
	}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected reply-to-reply to be rejected, got %v", err)
	}

	// 有回复的评论不能删
	if err := env.cards.DeleteComment(top.ID, testutil.TestCompanyID); !errors.Is(err, ErrCommentHasReplies) {
		t.Errorf("expected ErrCommentHasReplies, got %v", err)
	}

	// 先删回复再删顶层
	if err := env.cards.DeleteComment(reply.ID, testutil.TestCompanyID); err != nil {
		t.Fatalf("delete reply: %v", err)
	}
	if err := env.cards.DeleteComment(top.ID, testutil.TestCompanyID); err != nil {
		t.Fatalf("delete top comment: %v", err)
	}

	comments, err := env.cards.ListComments(card.ID, testutil.TestCompanyID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("expected no comments, got %d", len(comments))
	}
}

func TestPartConsumesInventoryInSameTransaction(t *testing.T) {
	env := setupJobCardTest(t)
	item := testutil.SeedInventoryItem(t, env.db, testutil.TestCompanyID, "BRK-PAD-01", 10)

	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "刹车维修",
	}, testutil.TestCompanyID, "advisor-001")

	part, err := env.cards.AddPart(card.ID, testutil.TestCompanyID, "tech-001", AddPartRequest{
		InventoryItemID: item.ID,
		QuantityUsed:    4,
	})
	if err != nil {
		t.Fatalf("add part: %v", err)
	}
	// 名称与价格从物料档案带出
	if part.PartName != item.Name {
		t.Errorf("expected part name from catalog, got %s", part.PartName)
	}
	if part.UnitPrice != item.SellingPrice {
		t.Errorf("expected unit price %.2f, got %.2f", item.SellingPrice, part.UnitPrice)
	}
	if part.TotalPrice != 100 {
		t.Errorf("expected total price 100, got %.2f", part.TotalPrice)
	}

	reloaded, _ := env.stock.GetItem(item.ID, testutil.TestCompanyID)
	if reloaded.QuantityOnHand != 6 {
		t.Errorf("expected on-hand 6 after sale, got %v", reloaded.QuantityOnHand)
	}

	// 删除配件退回库存
	if err := env.cards.DeletePart(card.ID, part.ID, testutil.TestCompanyID, "tech-001"); err != nil {
		t.Fatalf("delete part: %v", err)
	}
	reloaded, _ = env.stock.GetItem(item.ID, testutil.TestCompanyID)
	if reloaded.QuantityOnHand != 10 {
		t.Errorf("expected on-hand restored to 10, got %v", reloaded.QuantityOnHand)
	}
}

func TestPartRejectedWhenStockInsufficient(t *testing.T) {
	env := setupJobCardTest(t)
	item := testutil.SeedInventoryItem(t, env.db, testutil.TestCompanyID, "OIL-5W30", 2)

	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "换油",
	}, testutil.TestCompanyID, "advisor-001")

	_, err := env.cards.AddPart(card.ID, testutil.TestCompanyID, "tech-001", AddPartRequest{
		InventoryItemID: item.ID,
		QuantityUsed:    5,
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// 失败的事务不留下任何痕迹
	reloaded, _ := env.stock.GetItem(item.ID, testutil.TestCompanyID)
	if reloaded.QuantityOnHand != 2 {
		t.Errorf("on-hand changed by failed transaction: %v", reloaded.QuantityOnHand)
	}
	detail, _ := env.cards.Get(card.ID, testutil.TestCompanyID)
	if len(detail.Parts) != 0 {
		t.Errorf("expected no parts, got %d", len(detail.Parts))
	}
}

func TestUpdatePartAdjustsInventoryByDelta(t *testing.T) {
	env := setupJobCardTest(t)
	item := testutil.SeedInventoryItem(t, env.db, testutil.TestCompanyID, "FLT-AIR-01", 8)

	card, _ := env.cards.Create(CreateJobCardRequest{
		SessionID: env.session.ID,
		Title:     "滤芯更换",
	}, testutil.TestCompanyID, "advisor-001")
	part, _ := env.cards.AddPart(card.ID, testutil.TestCompanyID, "tech-001", AddPartRequest{
		InventoryItemID: item.ID,
		QuantityUsed:    2,
	})

	// 用量上调补差出库
	qty := 5.0
	if _, err := env.cards.UpdatePart(card.ID, part.ID, testutil.TestCompanyID, "tech-001", UpdatePartRequest{QuantityUsed: &qty}); err != nil {
		t.Fatalf("update part: %v", err)
	}
	reloaded, _ := env.stock.GetItem(item.ID, testutil.TestCompanyID)
	if reloaded.QuantityOnHand != 3 {
		t.Errorf("expected on-hand 3, got %v", reloaded.QuantityOnHand)
	}

	// 用量下调退回库存
	qty = 1
	if _, err := env.cards.UpdatePart(card.ID, part.ID, testutil.TestCompanyID, "tech-001", UpdatePartRequest{QuantityUsed: &qty}); err != nil {
		t.Fatalf("update part down: %v", err)
	}
	reloaded, _ = env.stock.GetItem(item.ID, testutil.TestCompanyID)
	if reloaded.QuantityOnHand != 7 {
		t.Errorf("expected on-hand 7, got %v", reloaded.QuantityOnHand)
	}
}
